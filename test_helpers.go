package gitver

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Tests build repositories with a fake advancing clock so commit and
// tag timestamps order deterministically.
var testClock = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func nextTestTime() time.Time {
	testClock = testClock.Add(time.Minute)
	return testClock
}

func testSignature() *object.Signature {
	return &object.Signature{
		Name:  "test",
		Email: "test@example.com",
		When:  nextTestTime(),
	}
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testCommitFile writes a file and commits it, returning the commit
// hash.
func testCommitFile(repo *git.Repository, filename, content string) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if err := writeFile(workTree.Filesystem, filename, content); err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err := workTree.Add(filename); err != nil {
		return plumbing.ZeroHash, err
	}

	sig := testSignature()
	return workTree.Commit("Commit "+filename, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
}

// testCommitChain appends n linear commits and returns their hashes,
// oldest first.
func testCommitChain(repo *git.Repository, n int) ([]plumbing.Hash, error) {
	hashes := make([]plumbing.Hash, 0, n)
	for i := 0; i < n; i++ {
		hash, err := testCommitFile(repo, fmt.Sprintf("file_%d.txt", i), fmt.Sprintf("content %d", i))
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// testTagLight places a lightweight tag on the given commit.
func testTagLight(repo *git.Repository, name string, target plumbing.Hash) error {
	_, err := repo.CreateTag(name, target, nil)
	return err
}

// testTagAnnotated places an annotated tag on the given commit with
// the given creation time.
func testTagAnnotated(repo *git.Repository, name string, target plumbing.Hash, when time.Time) error {
	_, err := repo.CreateTag(name, target, &git.CreateTagOptions{
		Tagger: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  when,
		},
		Message: "release " + name,
	})
	return err
}

// testHead returns the repository's current HEAD hash.
func testHead(repo *git.Repository) (plumbing.Hash, error) {
	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return head.Hash(), nil
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
