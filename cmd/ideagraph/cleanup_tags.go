package main

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var cleanupTagsCmd = &cobra.Command{
	Use:   "cleanup-tags",
	Short: "Delete Tags with zero live Item/Task references",
	RunE:  runCleanupTags,
}

func init() {
	rootCmd.AddCommand(cleanupTagsCmd)
	cleanupTagsCmd.Flags().Bool("dry-run", false, "report what would be deleted without deleting")
}

func runCleanupTags(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupSignalHandler()
	defer stop()

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	a, cleanup, err := newApp(ctx, configFilePath(cmd))
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}
	defer cleanup()

	counts, err := countTagUsage(ctx, a.store.Items, a.store.Tasks)
	if err != nil {
		return &exitError{code: exitPartialFailure, message: err.Error()}
	}

	tags, err := a.store.Tags.List(ctx)
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}

	deleted := 0
	for _, tag := range tags {
		if counts[tag.Name] > 0 {
			continue
		}
		if dryRun {
			a.logger.Info("cleanup-tags: would delete unused tag", zap.String("tagId", tag.ID), zap.String("name", tag.Name))
			deleted++
			continue
		}
		if err := a.store.Tags.Delete(ctx, tag.ID); err != nil {
			a.logger.Error("cleanup-tags: delete failed", zap.String("tagId", tag.ID), zap.Error(err))
			continue
		}
		deleted++
	}

	verb := "deleted"
	if dryRun {
		verb = "would delete"
	}
	a.logger.Info("cleanup-tags complete", zap.String("action", verb), zap.Int("count", deleted))
	return nil
}
