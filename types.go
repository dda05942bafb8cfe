// Package gitver derives version identifiers from the shape of a Git
// repository's history: the reachable tags, their distance from HEAD,
// and a pluggable derivation strategy.
package gitver

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// LookupPolicy selects which reachable version tag wins when several
// qualify as base-commit candidates.
type LookupPolicy string

const (
	// LookupMax picks the tag with the greatest parsed version.
	LookupMax LookupPolicy = "max"

	// LookupLatest picks the most recently created annotated tag.
	// Lightweight tags carry no reliable timestamp and are ignored.
	LookupLatest LookupPolicy = "latest"

	// LookupNearest picks the tag closest to HEAD by commit distance,
	// breaking distance ties with the LookupLatest rule.
	LookupNearest LookupPolicy = "nearest"
)

// ParseLookupPolicy converts a policy name into a LookupPolicy.
// Unknown names are a configuration error, never a silent default.
func ParseLookupPolicy(name string) (LookupPolicy, error) {
	switch LookupPolicy(name) {
	case LookupMax, LookupLatest, LookupNearest:
		return LookupPolicy(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// TagRef is a named pointer to a tagged object, read once from the
// repository and immutable afterwards.
type TagRef struct {
	// Name is the short tag name, e.g. "v1.0.0".
	Name string

	// Hash is the object the ref points at directly: the tag object
	// for annotated tags, the commit itself for lightweight ones.
	Hash plumbing.Hash

	// Target is the commit the tag ultimately designates, after
	// peeling annotated tags. Equal to Hash for lightweight tags.
	Target plumbing.Hash

	// Annotated reports whether the tag is an annotated tag object.
	Annotated bool
}

func (t TagRef) String() string {
	return t.Name
}

// Commit is the outcome of base-commit resolution: a commit id, its
// distance from HEAD in ancestry edges, and the version tags sitting
// on it. Distance is 0 exactly when ID is HEAD itself.
type Commit struct {
	ID              plumbing.Hash
	Distance        int
	AnnotatedTags   []TagRef
	LightweightTags []TagRef
}

// TagSets holds the twelve overlapping tag classifications produced by
// classifyTags. Membership cascades: a tag in HeadVersionAnnotated is
// also in HeadVersion, Head, AllVersionAnnotated, AllVersion and
// AllAnnotated. Sets are input-ordered and duplicate-free.
type TagSets struct {
	All            []TagRef
	AllAnnotated   []TagRef
	AllLightweight []TagRef

	AllVersion            []TagRef
	AllVersionAnnotated   []TagRef
	AllVersionLightweight []TagRef

	Head            []TagRef
	HeadAnnotated   []TagRef
	HeadLightweight []TagRef

	HeadVersion            []TagRef
	HeadVersionAnnotated   []TagRef
	HeadVersionLightweight []TagRef
}
