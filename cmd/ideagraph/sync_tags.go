package main

import (
	"context"

	"ideagraph/internal/store"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var syncTagsCmd = &cobra.Command{
	Use:   "sync-tags",
	Short: "Recompute each Tag's usage count from live Item/Task references",
	RunE:  runSyncTags,
}

func init() {
	rootCmd.AddCommand(syncTagsCmd)
	syncTagsCmd.Flags().String("tag-id", "", "recompute only this tag (default: every known tag)")
}

func runSyncTags(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupSignalHandler()
	defer stop()

	tagID, _ := cmd.Flags().GetString("tag-id")

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

	updated := 0
	for _, tag := range tags {
		if tagID != "" && tag.ID != tagID {
			continue
		}
		if err := a.store.Tags.RecomputeUsageCount(ctx, tag.ID, counts[tag.Name]); err != nil {
			a.logger.Error("sync-tags: recompute failed", zap.String("tagId", tag.ID), zap.Error(err))
			continue
		}
		updated++
	}

	a.logger.Info("sync-tags complete", zap.Int("tagsUpdated", updated))
	return nil
}

// countTagUsage tallies how many Items and Tasks reference each tag name,
// the same signal cleanup-tags uses to find tags safe to delete.
func countTagUsage(ctx context.Context, items store.ItemStore, tasks store.TaskStore) (map[string]int, error) {
	allItems, err := items.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, item := range allItems {
		tallyTags(counts, item.Tags)

		itemTasks, err := tasks.ListByItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		for _, task := range itemTasks {
			tallyTags(counts, task.Tags)
		}
	}
	return counts, nil
}

func tallyTags(counts map[string]int, tags []string) {
	for _, t := range tags {
		counts[t]++
	}
}
