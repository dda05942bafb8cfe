package gitver

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/blang/semver"
)

// Strategy turns a resolved base commit into a version. The engine
// calls Build exactly once per computation, after base-commit
// resolution, with a single-element slice holding the base.
type Strategy interface {
	// IsVersionTag reports whether the tag participates in version
	// resolution at all.
	IsVersionTag(tag TagRef) bool

	// VersionFromTag parses the tag name into a comparable version.
	VersionFromTag(tag TagRef) (semver.Version, error)

	// Build derives the version from HEAD and the base commits
	// selected by the resolver.
	Build(head Commit, bases []Commit) (semver.Version, error)
}

// DefaultTagPattern matches the usual release tag shapes: an optional
// "v" prefix, two or three dotted numerals, optional pre-release and
// build suffixes.
const DefaultTagPattern = `^v?\d+(\.\d+){0,2}([-+][0-9A-Za-z.+-]+)?$`

// TagStrategy is the default derivation strategy: tags matching a
// regular expression are version tags, versions parse as (tolerant)
// semver, and off-tag builds qualify the base version with the
// ancestry distance and the short head commit id.
type TagStrategy struct {
	// AutoPatch bumps the patch number when HEAD has moved past the
	// base tag, so derived versions sort after the released one.
	AutoPatch bool

	// UseDistance appends the commit distance as a numeric
	// pre-release field on off-tag builds.
	UseDistance bool

	// UseCommitID appends the abbreviated head commit id as build
	// metadata on off-tag builds.
	UseCommitID bool

	// CommitIDLength is the abbreviation length for UseCommitID.
	CommitIDLength int

	pattern *regexp.Regexp
}

// NewTagStrategy builds a TagStrategy matching tags against the given
// pattern ("" means DefaultTagPattern). Distance qualification is on
// by default.
func NewTagStrategy(pattern string) (*TagStrategy, error) {
	if pattern == "" {
		pattern = DefaultTagPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid tag pattern %q: %w", pattern, err)
	}
	return &TagStrategy{
		UseDistance:    true,
		CommitIDLength: 8,
		pattern:        re,
	}, nil
}

// IsVersionTag reports whether the tag name matches the strategy's
// version pattern.
func (s *TagStrategy) IsVersionTag(tag TagRef) bool {
	return s.pattern.MatchString(tag.Name)
}

// VersionFromTag parses the tag name as a version, tolerating a "v"
// prefix, a monorepo-style path prefix ("sdk/v2.1.0") and missing
// minor/patch components.
func (s *TagStrategy) VersionFromTag(tag TagRef) (semver.Version, error) {
	return semver.ParseTolerant(stripTagPrefixes(tag.Name))
}

// Build derives a version from the base commit. On the tagged commit
// itself the tag's version is returned untouched; past it, the version
// is qualified by distance and head commit id according to the
// strategy's knobs.
func (s *TagStrategy) Build(head Commit, bases []Commit) (semver.Version, error) {
	if len(bases) == 0 {
		return semver.Version{}, fmt.Errorf("no base commit to build a version from")
	}
	base := bases[0]

	version := semver.Version{} // 0.0.0 when nothing is tagged
	if tag, ok := s.maxVersionTag(base); ok {
		parsed, err := s.VersionFromTag(tag)
		if err != nil {
			return semver.Version{}, fmt.Errorf("parsing version from tag %q: %w", tag.Name, err)
		}
		version = parsed
	}

	if base.Distance == 0 {
		return version, nil
	}

	if s.AutoPatch && len(version.Pre) == 0 {
		version.Patch++
	}
	if s.UseDistance {
		version.Pre = append(version.Pre, semver.PRVersion{
			VersionNum: uint64(base.Distance),
			IsNum:      true,
		})
	}
	if s.UseCommitID {
		version.Build = append(version.Build, s.shortID(head.ID.String()))
	}

	return version, nil
}

// maxVersionTag picks the greatest-versioned tag sitting on the base
// commit, annotated and lightweight alike, first-seen winning ties.
func (s *TagStrategy) maxVersionTag(base Commit) (TagRef, bool) {
	max := runningMax[semver.Version]{
		key:     s.VersionFromTag,
		compare: semver.Version.Compare,
	}
	// Unparseable tags simply lose the fold.
	for _, tag := range base.AnnotatedTags {
		_ = max.consider(tag)
	}
	for _, tag := range base.LightweightTags {
		_ = max.consider(tag)
	}
	return max.result()
}

func (s *TagStrategy) shortID(id string) string {
	n := s.CommitIDLength
	if n <= 0 || n > len(id) {
		n = len(id)
	}
	return id[:n]
}

// stripTagPrefixes drops monorepo path components and the leading "v"
// from a tag name, e.g. "sdk/nodejs/v2.1.0" becomes "2.1.0".
func stripTagPrefixes(tag string) string {
	_, versionComponent := path.Split(tag)
	return strings.TrimPrefix(versionComponent, "v")
}
