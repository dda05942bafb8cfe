package gitver

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// OpenRepository opens the Git repository containing path, walking up
// the directory tree to find the .git directory.
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// resolveHead returns the commit id HEAD points at. A repository with
// no commits yet is not an error: it reports ok=false so callers can
// special-case the empty repository before running the pipeline.
func resolveHead(repo *git.Repository) (plumbing.Hash, bool, error) {
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("resolving HEAD: %w", err)
	}
	return head.Hash(), true, nil
}

// listTags enumerates refs/tags as raw references, in ref-database
// iteration order.
func listTags(repo *git.Repository) ([]*plumbing.Reference, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var refs []*plumbing.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return refs, nil
}

// peelTag resolves a raw tag reference into a TagRef, following an
// annotated tag object to the commit it designates. Peel failures are
// recoverable: the tag keeps its un-peeled target and is treated as
// lightweight.
func peelTag(repo *git.Repository, ref *plumbing.Reference) TagRef {
	tag := TagRef{
		Name:   ref.Name().Short(),
		Hash:   ref.Hash(),
		Target: ref.Hash(),
	}

	obj, err := repo.TagObject(ref.Hash())
	if err == nil {
		tag.Annotated = true
		tag.Target = obj.Target
	}
	return tag
}

// tagDate returns the creation timestamp of an annotated tag.
// Lightweight tags have no timestamp of their own and sort before
// every annotated tag (zero time).
func tagDate(repo *git.Repository, tag TagRef) time.Time {
	if !tag.Annotated {
		return time.Time{}
	}
	obj, err := repo.TagObject(tag.Hash)
	if err != nil {
		return time.Time{}
	}
	return obj.Tagger.When
}

// headCommitter returns the committer identity of the given commit,
// used only to surface authorship alongside computed versions.
func headCommitter(repo *git.Repository, id plumbing.Hash) (*object.Signature, error) {
	commit, err := repo.CommitObject(id)
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}
	sig := commit.Committer
	return &sig, nil
}

// workTreeIsDirty reports whether the working tree has uncommitted
// changes.
func workTreeIsDirty(repo *git.Repository) (bool, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	// Fast path for filesystem storage: go-git status is slow on
	// large checkouts, the git binary is not.
	if _, ok := repo.Storer.(*filesystem.Storage); ok {
		return checkDirtyWithGitCommand(workTree.Filesystem.Root())
	}

	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}
	return !status.IsClean(), nil
}

func checkDirtyWithGitCommand(repoPath string) (bool, error) {
	// Refresh index first
	cmd := exec.Command("git", "update-index", "-q", "--refresh")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		// If update-index fails, assume dirty
		return true, nil
	}

	cmd = exec.Command("git", "diff-files", "--name-status", "--ignore-space-at-eol")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return true, nil
		}
		return false, err
	}

	return len(output) > 0, nil
}
