package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var syncGithubCmd = &cobra.Command{
	Use:   "sync-github",
	Short: "Run the GitHub poller once, reconciling Task status against issue/PR state",
	RunE:  runSyncGithub,
}

func init() {
	rootCmd.AddCommand(syncGithubCmd)
	syncGithubCmd.Flags().String("owner", "", "restrict to one repo's owner (requires --repo)")
	syncGithubCmd.Flags().String("repo", "", "restrict to one repo (requires --owner)")
	syncGithubCmd.Flags().Bool("dry-run", false, "report which repos would sync without calling GitHub")
	syncGithubCmd.Flags().Bool("verbose", false, "log each repo considered, not just failures")
}

func runSyncGithub(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupSignalHandler()
	defer stop()

	owner, _ := cmd.Flags().GetString("owner")
	repo, _ := cmd.Flags().GetString("repo")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, cleanup, err := newApp(ctx, configFilePath(cmd))
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}
	defer cleanup()

	githubPoller, ok := a.pollers["github"]
	if !ok {
		return &exitError{code: exitConfigError, message: "github source is not enabled/configured (check Settings.github.enabled and github.token)"}
	}

	repoFilter := ""
	if owner != "" || repo != "" {
		if owner == "" || repo == "" {
			return &exitError{code: exitConfigError, message: "--owner and --repo must both be set"}
		}
		repoFilter = owner + "/" + repo
	}

	items, err := a.store.Items.List(ctx)
	if err != nil {
		return &exitError{code: exitConfigError, message: fmt.Sprintf("list items: %v", err)}
	}

	matched := 0
	for _, item := range items {
		if item.SourceRepo == "" {
			continue
		}
		if repoFilter != "" && item.SourceRepo != repoFilter {
			continue
		}
		matched++
		if verbose || dryRun {
			a.logger.Info("github sync candidate", zap.String("itemId", item.ID), zap.String("repo", item.SourceRepo))
		}
	}

	if repoFilter != "" && matched == 0 {
		return &exitError{code: exitConfigError, message: fmt.Sprintf("no Item has sourceRepo %q configured", repoFilter)}
	}

	if dryRun {
		a.logger.Info("dry-run complete, no changes made", zap.Int("reposMatched", matched))
		return nil
	}

	// GitHubPoller.PollOnce always scans every SourceRepo-bound Item in one
	// pass (spec.md §4.7: it never targets a single repo), so an --owner
	// --repo filter only narrows which repos are reported as candidates
	// above; the sync call itself still covers all configured repos.
	if err := pollOnceWithExitCode(ctx, githubPoller, a.logger); err != nil {
		return err
	}
	return nil
}

// pollOnceWithExitCode maps a poller's tick outcome to the CLI's partial
// failure exit code: a PollOnce error is a pipeline-level failure (spec.md
// §7 "Pipeline-partial"), not a config error, so it exits 2 rather than 1.
func pollOnceWithExitCode(ctx context.Context, p interface {
	PollOnce(ctx context.Context) error
}, logger *zap.Logger) error {
	if err := p.PollOnce(ctx); err != nil {
		logger.Error("sync-github: poll tick failed", zap.Error(err))
		return &exitError{code: exitPartialFailure, message: err.Error()}
	}
	return nil
}
