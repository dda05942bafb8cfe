package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/gitver/gitver"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	Path        string `arg:"" optional:"" help:"Repository path (default: current directory)"`
	Policy      string `short:"p" default:"max" enum:"max,latest,nearest" help:"Tag lookup policy"`
	TagPattern  string `help:"Regex a tag must match to count as a version tag"`
	MaxDepth    int    `help:"Ancestry traversal ceiling in commits (0 = unbounded)"`
	AutoPatch   bool   `help:"Bump the patch number on commits past the base tag"`
	Distance    bool   `default:"true" negatable:"" help:"Qualify off-tag builds with the commit distance"`
	CommitID    bool   `short:"c" help:"Append the abbreviated head commit id as build metadata"`
	Dirty       bool   `short:"d" help:"Mark versions built from a dirty worktree"`
	JSON        bool   `short:"j" help:"Output as JSON"`
	Verbose     bool   `short:"v" help:"Enable debug logging"`
	ShowVersion bool   `help:"Show version information" name:"version"`
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name("gitver"),
		kong.Description("Derive a version from the Git history: reachable tags, their distance from HEAD, and a lookup policy"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	if err := cli.Run(); err != nil {
		log.Error("version computation failed", "err", err)
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	if c.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if c.ShowVersion {
		return c.showVersion()
	}

	repoPath := c.Path
	if repoPath == "" {
		var err error
		repoPath, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	repo, err := gitver.OpenRepository(repoPath)
	if err != nil {
		// Not a git repository at all: report the sentinel rather
		// than failing, so build scripts always get a version.
		log.Debug("could not open repository", "path", repoPath, "err", err)
		return c.print(gitver.NotGitVersion.String(), nil)
	}

	strategy, err := gitver.NewTagStrategy(c.TagPattern)
	if err != nil {
		return err
	}
	strategy.AutoPatch = c.AutoPatch
	strategy.UseDistance = c.Distance
	strategy.UseCommitID = c.CommitID

	policy, err := gitver.ParseLookupPolicy(c.Policy)
	if err != nil {
		return err
	}

	calc, err := gitver.NewCalculator(gitver.Options{
		Repository: repo,
		Strategy:   strategy,
		Policy:     policy,
		MaxDepth:   c.MaxDepth,
		UseDirty:   c.Dirty,
	})
	if err != nil {
		return err
	}

	result, err := calc.Result()
	if err != nil {
		return err
	}

	if result.Base != nil {
		log.Debug("resolved base commit",
			"id", result.Base.ID.String(),
			"distance", result.Base.Distance,
			"annotated", len(result.Base.AnnotatedTags),
			"lightweight", len(result.Base.LightweightTags))
	}

	return c.print(result.Version.String(), result)
}

func (c *CLI) showVersion() error {
	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"name":    "gitver",
			"version": Version,
		})
	}
	fmt.Println("gitver " + Version)
	return nil
}

func (c *CLI) print(version string, result *gitver.Result) error {
	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(jsonOutput(version, result))
	}
	_, err := os.Stdout.WriteString(version + "\n")
	return err
}

// versionReport is the JSON shape emitted with --json.
type versionReport struct {
	Version  string `json:"version"`
	Base     string `json:"base,omitempty"`
	Distance *int   `json:"distance,omitempty"`
	Dirty    bool   `json:"dirty"`
	Empty    bool   `json:"emptyRepository"`
}

func jsonOutput(version string, result *gitver.Result) versionReport {
	report := versionReport{Version: version}
	if result == nil {
		return report
	}
	report.Dirty = result.Dirty
	report.Empty = result.EmptyRepository
	if result.Base != nil {
		report.Base = result.Base.ID.String()
		distance := result.Base.Distance
		report.Distance = &distance
	}
	return report
}
