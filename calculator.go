package gitver

import (
	"fmt"
	"time"

	"github.com/blang/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Sentinel versions for positions where no version can be derived from
// history.
var (
	// EmptyRepositoryVersion is reported for repositories that have
	// no commits yet.
	EmptyRepositoryVersion = semver.Version{Pre: []semver.PRVersion{{VersionStr: "empty-repository"}}}

	// NotGitVersion is reported when the target directory is not
	// inside a Git repository at all.
	NotGitVersion = semver.Version{Pre: []semver.PRVersion{{VersionStr: "not-a-git-repository"}}}
)

// Options configures a Calculator.
type Options struct {
	// Repository is the Git repository to analyze. Required.
	Repository *git.Repository

	// Strategy derives the final version from the resolved base
	// commit. Defaults to NewTagStrategy(TagPattern).
	Strategy Strategy

	// Policy selects among multiple reachable version tags.
	// Defaults to LookupMax.
	Policy LookupPolicy

	// MaxDepth bounds ancestry traversal by visited-commit count.
	// Zero means unbounded.
	MaxDepth int

	// UseDirty appends "dirty" build metadata when the working tree
	// has uncommitted changes.
	UseDirty bool

	// TagPattern is the version-tag regex used when Strategy is nil.
	TagPattern string
}

// Result is one full version computation: the derived version plus the
// graph facts it was derived from.
type Result struct {
	Version semver.Version

	// Head is the current position with its on-HEAD version tags;
	// nil for an empty repository.
	Head *Commit

	// Base is the resolved base commit the version was derived
	// from; nil for an empty repository.
	Base *Commit

	// Tags is the full twelve-way tag classification.
	Tags TagSets

	// CommittedAt is the committer timestamp of HEAD.
	CommittedAt time.Time

	// Dirty reports uncommitted working tree changes. Only set when
	// the calculator was configured with UseDirty.
	Dirty bool

	// EmptyRepository is true when the repository has no commits.
	EmptyRepository bool
}

// Calculator resolves versions from a repository's history and caches
// the last computation until HEAD moves. Not safe for concurrent use:
// one Calculator serves one logical computation at a time.
type Calculator struct {
	repo     *git.Repository
	strategy Strategy
	policy   LookupPolicy
	maxDepth int
	useDirty bool

	computed     *Result
	computedHead string
}

// NewCalculator validates the options and builds a Calculator. An
// unknown lookup policy is rejected here, not silently defaulted at
// computation time.
func NewCalculator(opts Options) (*Calculator, error) {
	if opts.Repository == nil {
		return nil, ErrNoRepository
	}

	policy := opts.Policy
	if policy == "" {
		policy = LookupMax
	}
	if _, err := ParseLookupPolicy(string(policy)); err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == nil {
		var err error
		strategy, err = NewTagStrategy(opts.TagPattern)
		if err != nil {
			return nil, err
		}
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = unboundedDepth
	}

	return &Calculator{
		repo:     opts.Repository,
		strategy: strategy,
		policy:   policy,
		maxDepth: maxDepth,
		useDirty: opts.UseDirty,
	}, nil
}

// Version returns the version for the current HEAD, recomputing only
// when HEAD has moved since the last computation.
func (c *Calculator) Version() (semver.Version, error) {
	result, err := c.Result()
	if err != nil {
		return semver.Version{}, err
	}
	return result.Version, nil
}

// Result returns the full computation for the current HEAD, reusing
// the cached one while HEAD stays put.
func (c *Calculator) Result() (*Result, error) {
	stale, err := c.needsRecompute()
	if err != nil {
		return nil, err
	}
	if stale {
		if err := c.compute(); err != nil {
			return nil, err
		}
	}
	return c.computed, nil
}

// Refresh drops the cached computation so the next call recomputes
// regardless of HEAD.
func (c *Calculator) Refresh() {
	c.computed = nil
}

func (c *Calculator) needsRecompute() (bool, error) {
	if c.computed == nil {
		return true, nil
	}
	headID, ok, err := resolveHead(c.repo)
	if err != nil {
		return false, err
	}
	live := ""
	if ok {
		live = headID.String()
	}
	return live != c.computedHead, nil
}

// compute runs one full resolution pass: classify tags, special-case
// the empty repository, resolve the base commit under the configured
// policy (falling back to the deepest reachable commit), and hand the
// result to the strategy.
func (c *Calculator) compute() error {
	rawTags, err := listTags(c.repo)
	if err != nil {
		return err
	}

	headID, hasHead, err := resolveHead(c.repo)
	if err != nil {
		return err
	}

	sets := classifyTags(c.repo, rawTags, headID, c.strategy.IsVersionTag)

	if !hasHead {
		c.computed = &Result{
			Version:         EmptyRepositoryVersion,
			Tags:            sets,
			EmptyRepository: true,
		}
		c.computedHead = ""
		return nil
	}

	dirty := false
	if c.useDirty {
		dirty, err = workTreeIsDirty(c.repo)
		if err != nil {
			return fmt.Errorf("checking if worktree is dirty: %w", err)
		}
	}

	committer, err := headCommitter(c.repo, headID)
	if err != nil {
		return err
	}

	head := &Commit{
		ID:              headID,
		Distance:        0,
		AnnotatedTags:   sets.HeadVersionAnnotated,
		LightweightTags: sets.HeadVersionLightweight,
	}

	base, err := findBaseCommit(c.repo, headID, sets, c.maxDepth, c.policy, c.strategy)
	if err != nil {
		return fmt.Errorf("resolving base commit: %w", err)
	}
	if base == nil {
		// No version tag reachable; anchor on the deepest commit
		// the ceiling allows.
		base, err = deepestReachableCommit(c.repo, headID, c.maxDepth)
		if err != nil {
			return fmt.Errorf("finding deepest reachable commit: %w", err)
		}
	}

	version, err := c.strategy.Build(*head, []Commit{*base})
	if err != nil {
		return fmt.Errorf("building version: %w", err)
	}

	if dirty {
		version.Build = append(version.Build, "dirty")
	}

	c.computed = &Result{
		Version:     version,
		Head:        head,
		Base:        base,
		Tags:        sets,
		CommittedAt: committer.When,
		Dirty:       dirty,
	}
	c.computedHead = headID.String()
	return nil
}

// headPosition exposes the hash the cached result was computed at,
// mainly for tests of the invalidation rule.
func (c *Calculator) headPosition() plumbing.Hash {
	return plumbing.NewHash(c.computedHead)
}
