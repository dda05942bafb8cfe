package gitver

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/blang/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// runningMax is a stateful fold accumulator: compare each candidate to
// the current best and keep the greater one. Ties keep the first-seen
// candidate, so selection is stable regardless of how many candidates
// share the maximum key.
type runningMax[K any] struct {
	key     func(TagRef) (K, error)
	compare func(K, K) int

	best    TagRef
	bestKey K
	seen    bool
}

func (m *runningMax[K]) consider(tag TagRef) error {
	key, err := m.key(tag)
	if err != nil {
		return err
	}
	if !m.seen || m.compare(m.bestKey, key) < 0 {
		m.best = tag
		m.bestKey = key
		m.seen = true
	}
	return nil
}

func (m *runningMax[K]) result() (TagRef, bool) {
	return m.best, m.seen
}

// findBaseCommit picks the single base commit among reachable version
// tags under the given lookup policy. It returns (nil, nil) when no
// version tag is reachable, or when the selected tag sits beyond the
// distance ceiling; callers then fall back to deepestReachableCommit.
func findBaseCommit(repo *git.Repository, headID plumbing.Hash, sets TagSets, maxDepth int, policy LookupPolicy, strategy Strategy) (*Commit, error) {
	reachable, err := reachableTags(repo, headID, sets.AllVersion)
	if err != nil {
		return nil, err
	}

	// Lightweight tags carry no creation date; under the latest
	// policy only annotated tags can compete.
	if policy == LookupLatest {
		reachable = keepAnnotated(reachable)
	}

	baseID, found, err := selectBaseCommitID(repo, headID, reachable, policy, strategy)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	if baseID == headID {
		return &Commit{
			ID:              headID,
			Distance:        0,
			AnnotatedTags:   tagsOf(sets.AllVersionAnnotated, headID),
			LightweightTags: tagsOf(sets.AllVersionLightweight, headID),
		}, nil
	}

	dc := newDistanceCalculator(repo, headID, maxDepth)
	defer dc.Close()

	distance, ok, err := dc.distanceTo(baseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The tag is reachable but its commit sits past the depth
		// ceiling; report "no base" rather than a bogus distance.
		return nil, nil
	}

	return &Commit{
		ID:              baseID,
		Distance:        distance,
		AnnotatedTags:   tagsOf(sets.AllVersionAnnotated, baseID),
		LightweightTags: tagsOf(sets.AllVersionLightweight, baseID),
	}, nil
}

// selectBaseCommitID applies the lookup policy to the reachable tag
// stream and yields the target commit of the winning tag.
func selectBaseCommitID(repo *git.Repository, headID plumbing.Hash, reachable []TagRef, policy LookupPolicy, strategy Strategy) (plumbing.Hash, bool, error) {
	switch policy {
	case LookupMax:
		max := runningMax[semver.Version]{
			key: func(tag TagRef) (semver.Version, error) {
				v, err := strategy.VersionFromTag(tag)
				if err != nil {
					return semver.Version{}, fmt.Errorf("parsing version from tag %q: %w", tag.Name, err)
				}
				return v, nil
			},
			compare: semver.Version.Compare,
		}
		for _, tag := range reachable {
			if err := max.consider(tag); err != nil {
				return plumbing.ZeroHash, false, err
			}
		}
		best, ok := max.result()
		return best.Target, ok, nil

	case LookupLatest:
		best, ok := latestTag(repo, reachable)
		return best.Target, ok, nil

	case LookupNearest:
		return nearestTagTarget(repo, headID, reachable)

	default:
		return plumbing.ZeroHash, false, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

// latestTag folds the tags to the one with the greatest creation date,
// first-seen winning ties.
func latestTag(repo *git.Repository, tags []TagRef) (TagRef, bool) {
	max := runningMax[time.Time]{
		key: func(tag TagRef) (time.Time, error) {
			return tagDate(repo, tag), nil
		},
		compare: func(a, b time.Time) int { return a.Compare(b) },
	}
	for _, tag := range tags {
		_ = max.consider(tag) // key func never fails
	}
	return max.result()
}

// nearestTagTarget groups reachable tags by their distance from head
// and picks from the minimum-distance group: the single member when
// the group is a singleton, otherwise the latest-created member.
func nearestTagTarget(repo *git.Repository, headID plumbing.Hash, reachable []TagRef) (plumbing.Hash, bool, error) {
	if len(reachable) == 0 {
		return plumbing.ZeroHash, false, nil
	}

	dc := newDistanceCalculator(repo, headID, unboundedDepth)
	defer dc.Close()

	tagsByDistance := make(map[int][]TagRef)
	minDistance := -1
	for _, tag := range reachable {
		distance, ok, err := dc.distanceTo(tag.Target)
		if err != nil {
			return plumbing.ZeroHash, false, err
		}
		if !ok {
			return plumbing.ZeroHash, false, fmt.Errorf("tag %q passed the reachability filter but has no computable distance from %s", tag.Name, headID)
		}
		tagsByDistance[distance] = append(tagsByDistance[distance], tag)
		if minDistance < 0 || distance < minDistance {
			minDistance = distance
		}
	}

	nearest := tagsByDistance[minDistance]
	if len(nearest) == 1 {
		return nearest[0].Target, true, nil
	}
	best, ok := latestTag(repo, nearest)
	return best.Target, ok, nil
}

func keepAnnotated(tags []TagRef) []TagRef {
	var out []TagRef
	for _, tag := range tags {
		if tag.Annotated {
			out = append(out, tag)
		}
	}
	return out
}

// deepestReachableCommit walks ancestry from headID counting visited
// commits up to the depth ceiling, and returns the last commit visited
// with empty tag slices. HEAD itself does not count towards the
// distance. Used only when no version tag is reachable at all; always
// succeeds when headID resolves.
func deepestReachableCommit(repo *git.Repository, headID plumbing.Hash, maxDepth int) (*Commit, error) {
	head, err := repo.CommitObject(headID)
	if err != nil {
		return nil, fmt.Errorf("resolving traversal start %s: %w", headID, err)
	}

	walker := object.NewCommitPreorderIter(head, nil, nil)
	defer walker.Close()

	depth := 0
	last := head
	for depth <= maxDepth {
		commit, err := walker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walking history from %s: %w", headID, err)
		}
		last = commit
		depth++
	}

	return &Commit{ID: last.Hash, Distance: depth - 1}, nil
}
