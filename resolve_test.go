package gitver

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

func defaultStrategy(t *testing.T) *TagStrategy {
	t.Helper()
	strategy, err := NewTagStrategy("")
	require.NoError(t, err)
	return strategy
}

func TestFindBaseCommitMax(t *testing.T) {
	t.Run("greatest version wins regardless of distance", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 3)
		require.NoError(t, err)

		require.NoError(t, testTagLight(repo, "v2.0.0", commits[0]))
		require.NoError(t, testTagLight(repo, "v1.5.0", commits[1]))

		base := resolveBase(t, repo, commits[2], unboundedDepth, LookupMax)
		require.NotNil(t, base)
		require.Equal(t, commits[0], base.ID)
		require.Equal(t, 2, base.Distance)
		require.Equal(t, []string{"v2.0.0"}, tagNames(base.LightweightTags))
	})

	t.Run("equal versions keep the first seen", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 3)
		require.NoError(t, err)

		// Both names parse to 2.0.0; the walk meets the nearer one
		// first and the tie must keep it, on every run.
		require.NoError(t, testTagLight(repo, "v2.0.0", commits[0]))
		require.NoError(t, testTagLight(repo, "2.0.0", commits[1]))

		for i := 0; i < 5; i++ {
			base := resolveBase(t, repo, commits[2], unboundedDepth, LookupMax)
			require.NotNil(t, base)
			require.Equal(t, commits[1], base.ID)
			require.Equal(t, 1, base.Distance)
		}
	})

	t.Run("tag on head resolves to distance zero", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 1)
		require.NoError(t, err)

		require.NoError(t, testTagAnnotated(repo, "v1.0.0", commits[0], nextTestTime()))

		base := resolveBase(t, repo, commits[0], unboundedDepth, LookupMax)
		require.NotNil(t, base)
		require.Equal(t, commits[0], base.ID)
		require.Equal(t, 0, base.Distance)
		require.Equal(t, []string{"v1.0.0"}, tagNames(base.AnnotatedTags))
		require.Empty(t, base.LightweightTags)
	})

	t.Run("unreachable tag is never selected", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 2)
		require.NoError(t, err)

		workTree, err := repo.Worktree()
		require.NoError(t, err)
		require.NoError(t, workTree.Checkout(&git.CheckoutOptions{Hash: commits[0]}))
		diverged, err := testCommitFile(repo, "diverged.txt", "diverged")
		require.NoError(t, err)

		// v9 sits on the abandoned tip; only v1 is an ancestor.
		require.NoError(t, testTagLight(repo, "v9.0.0", commits[1]))
		require.NoError(t, testTagLight(repo, "v1.0.0", commits[0]))

		base := resolveBase(t, repo, diverged, unboundedDepth, LookupMax)
		require.NotNil(t, base)
		require.Equal(t, commits[0], base.ID)
	})
}

func TestFindBaseCommitLatest(t *testing.T) {
	t.Run("later creation date wins over greater version", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 3)
		require.NoError(t, err)

		older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, testTagAnnotated(repo, "v3.0.0", commits[0], older))
		require.NoError(t, testTagAnnotated(repo, "v1.0.0", commits[1], newer))

		base := resolveBase(t, repo, commits[2], unboundedDepth, LookupLatest)
		require.NotNil(t, base)
		require.Equal(t, commits[1], base.ID)
		require.Equal(t, 1, base.Distance)
	})

	t.Run("lightweight tags are ignored", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 3)
		require.NoError(t, err)

		// The lightweight tag is nearer and higher-versioned, but
		// carries no timestamp and must not compete.
		require.NoError(t, testTagAnnotated(repo, "v1.0.0", commits[0], nextTestTime()))
		require.NoError(t, testTagLight(repo, "v5.0.0", commits[1]))

		base := resolveBase(t, repo, commits[2], unboundedDepth, LookupLatest)
		require.NotNil(t, base)
		require.Equal(t, commits[0], base.ID)
		require.Equal(t, 2, base.Distance)
	})

	t.Run("only lightweight tags means no base", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 2)
		require.NoError(t, err)

		require.NoError(t, testTagLight(repo, "v1.0.0", commits[0]))

		base := resolveBase(t, repo, commits[1], unboundedDepth, LookupLatest)
		require.Nil(t, base)
	})
}

func TestFindBaseCommitNearest(t *testing.T) {
	t.Run("nearest tag wins regardless of version", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 4)
		require.NoError(t, err)

		require.NoError(t, testTagLight(repo, "v9.0.0", commits[0]))
		require.NoError(t, testTagLight(repo, "v1.2.0", commits[2]))

		base := resolveBase(t, repo, commits[3], unboundedDepth, LookupNearest)
		require.NotNil(t, base)
		require.Equal(t, commits[2], base.ID)
		require.Equal(t, 1, base.Distance)
	})

	t.Run("head three commits past a lightweight tag", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 4)
		require.NoError(t, err)

		require.NoError(t, testTagLight(repo, "v1.2.0", commits[0]))

		base := resolveBase(t, repo, commits[3], unboundedDepth, LookupNearest)
		require.NotNil(t, base)
		require.Equal(t, commits[0], base.ID)
		require.Equal(t, 3, base.Distance)
		require.Equal(t, []string{"v1.2.0"}, tagNames(base.LightweightTags))
	})

	t.Run("distance tie breaks by later creation date", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 2)
		require.NoError(t, err)

		workTree, err := repo.Worktree()
		require.NoError(t, err)
		require.NoError(t, workTree.Checkout(&git.CheckoutOptions{Hash: commits[0]}))
		side, err := testCommitFile(repo, "side.txt", "side branch")
		require.NoError(t, err)

		merge := mergeCommits(t, repo, "merge side", commits[1], side)

		older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, testTagAnnotated(repo, "v2.0.0", commits[1], older))
		require.NoError(t, testTagAnnotated(repo, "v1.0.0", side, newer))

		// Both tags sit one edge from the merge; the later-created
		// v1.0.0 must win even though v2.0.0 compares greater.
		base := resolveBase(t, repo, merge, unboundedDepth, LookupNearest)
		require.NotNil(t, base)
		require.Equal(t, side, base.ID)
		require.Equal(t, 1, base.Distance)
	})
}

func TestFindBaseCommitEdgeCases(t *testing.T) {
	t.Run("no version tags means no base", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 2)
		require.NoError(t, err)

		base := resolveBase(t, repo, commits[1], unboundedDepth, LookupMax)
		require.Nil(t, base)
	})

	t.Run("selected tag beyond the depth ceiling means no base", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 5)
		require.NoError(t, err)

		require.NoError(t, testTagLight(repo, "v1.0.0", commits[0]))

		base := resolveBase(t, repo, commits[4], 2, LookupMax)
		require.Nil(t, base)
	})

	t.Run("unknown policy is fatal", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 1)
		require.NoError(t, err)

		require.NoError(t, testTagLight(repo, "v1.0.0", commits[0]))

		sets := classifyRepo(t, repo, commits[0])
		_, err = findBaseCommit(repo, commits[0], sets, unboundedDepth, LookupPolicy("newest"), defaultStrategy(t))
		require.ErrorIs(t, err, ErrUnknownPolicy)
	})
}

func TestDeepestReachableCommit(t *testing.T) {
	t.Run("single commit repository", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 1)
		require.NoError(t, err)

		commit, err := deepestReachableCommit(repo, commits[0], unboundedDepth)
		require.NoError(t, err)
		require.Equal(t, commits[0], commit.ID)
		require.Equal(t, 0, commit.Distance)
		require.Empty(t, commit.AnnotatedTags)
		require.Empty(t, commit.LightweightTags)
	})

	t.Run("unbounded walk reaches the root", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 5)
		require.NoError(t, err)

		commit, err := deepestReachableCommit(repo, commits[4], unboundedDepth)
		require.NoError(t, err)
		require.Equal(t, commits[0], commit.ID)
		require.Equal(t, 4, commit.Distance)
	})

	t.Run("depth ceiling of one is respected exactly", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		commits, err := testCommitChain(repo, 5)
		require.NoError(t, err)

		commit, err := deepestReachableCommit(repo, commits[4], 1)
		require.NoError(t, err)
		require.Equal(t, 1, commit.Distance)
		require.Equal(t, commits[3], commit.ID)
	})
}

// resolveBase classifies the repository's tags and runs base-commit
// resolution from the given head under the given policy.
func resolveBase(t *testing.T, repo *git.Repository, head plumbing.Hash, maxDepth int, policy LookupPolicy) *Commit {
	t.Helper()
	sets := classifyRepo(t, repo, head)
	base, err := findBaseCommit(repo, head, sets, maxDepth, policy, defaultStrategy(t))
	require.NoError(t, err)
	return base
}

func classifyRepo(t *testing.T, repo *git.Repository, head plumbing.Hash) TagSets {
	t.Helper()
	rawTags, err := listTags(repo)
	require.NoError(t, err)
	return classifyTags(repo, rawTags, head, defaultStrategy(t).IsVersionTag)
}
