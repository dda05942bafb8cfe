package gitver

import (
	"fmt"
	"math"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// unboundedDepth disables the traversal ceiling.
const unboundedDepth = math.MaxInt

// distanceCalculator computes the minimal number of ancestry edges
// between a fixed source commit and arbitrary ancestors, by breadth
// first search over parent links. Traversal state survives between
// queries: a second distanceTo on the same instance resumes the walk
// where the first one stopped instead of restarting from the source.
//
// Not safe for concurrent use; one instance serves one computation.
type distanceCalculator struct {
	repo     *git.Repository
	from     plumbing.Hash
	maxDepth int

	depths map[string]int // minimal discovered depth per commit
	queue  []queuedCommit // BFS frontier, nondecreasing depth
}

type queuedCommit struct {
	id    plumbing.Hash
	depth int
}

// newDistanceCalculator prepares a bounded ancestry walk starting at
// from. maxDepth caps how many edges the walk may traverse; pass
// unboundedDepth for no ceiling.
func newDistanceCalculator(repo *git.Repository, from plumbing.Hash, maxDepth int) *distanceCalculator {
	return &distanceCalculator{
		repo:     repo,
		from:     from,
		maxDepth: maxDepth,
		depths:   map[string]int{from.String(): 0},
		queue:    []queuedCommit{{id: from, depth: 0}},
	}
}

// distanceTo reports the minimal edge count from the source to the
// given commit. ok is false when the commit is not an ancestor of the
// source within the depth ceiling; that is a search miss, not an
// error. Storage failures while walking are fatal.
func (dc *distanceCalculator) distanceTo(to plumbing.Hash) (int, bool, error) {
	key := to.String()
	if depth, ok := dc.depths[key]; ok {
		return depth, true, nil
	}

	for len(dc.queue) > 0 {
		next := dc.queue[0]
		dc.queue = dc.queue[1:]

		if next.depth >= dc.maxDepth {
			continue
		}

		commit, err := dc.repo.CommitObject(next.id)
		if err != nil {
			return 0, false, fmt.Errorf("reading commit %s at depth %d: %w", next.id, next.depth, err)
		}

		// All parents of the current commit are recorded before the
		// found depth is reported, so a later query on this instance
		// still sees the full frontier.
		found := false
		for _, parent := range commit.ParentHashes {
			parentKey := parent.String()
			if _, seen := dc.depths[parentKey]; seen {
				continue
			}
			dc.depths[parentKey] = next.depth + 1
			dc.queue = append(dc.queue, queuedCommit{id: parent, depth: next.depth + 1})
			if parentKey == key {
				found = true
			}
		}
		if found {
			return next.depth + 1, true, nil
		}
	}

	return 0, false, nil
}

// Close releases the traversal state. The calculator must not be used
// afterwards.
func (dc *distanceCalculator) Close() {
	dc.depths = nil
	dc.queue = nil
}
