package gitver

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// reachableTags restricts candidates to tags whose target commit is an
// ancestor of (or equal to) headID. The result is ordered by ancestry
// traversal, not by input order, so nearer tags come first.
//
// A one-time index from target id to tags keeps the cost at O(tags)
// plus one walk over reachable history, instead of one walk per tag.
func reachableTags(repo *git.Repository, headID plumbing.Hash, candidates []TagRef) ([]TagRef, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	// Tags can share a target commit.
	taggedCommits := make(map[string][]TagRef, len(candidates))
	for _, tag := range candidates {
		key := tag.Target.String()
		taggedCommits[key] = append(taggedCommits[key], tag)
	}

	head, err := repo.CommitObject(headID)
	if err != nil {
		return nil, fmt.Errorf("resolving traversal start %s: %w", headID, err)
	}

	var reachable []TagRef
	walker := object.NewCommitPreorderIter(head, nil, nil)
	defer walker.Close()

	err = walker.ForEach(func(commit *object.Commit) error {
		if tags, ok := taggedCommits[commit.Hash.String()]; ok {
			reachable = append(reachable, tags...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking history from %s: %w", headID, err)
	}

	return reachable, nil
}
