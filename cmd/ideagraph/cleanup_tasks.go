package main

import (
	"ideagraph/internal/domain"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var cleanupTasksCmd = &cobra.Command{
	Use:   "cleanup-tasks",
	Short: "Delete done Tasks that are no longer worth keeping around",
	RunE:  runCleanupTasks,
}

func init() {
	rootCmd.AddCommand(cleanupTasksCmd)
	cleanupTasksCmd.Flags().Bool("dry-run", false, "report what would be deleted without deleting")
	cleanupTasksCmd.Flags().Bool("no-owner-only", false, "also clean up done Tasks that still have an assignee (default: unassigned only)")
	cleanupTasksCmd.Flags().Bool("no-item-only", false, "also clean up done Tasks whose Item isn't fully done (default: only within fully-done Items)")
}

func runCleanupTasks(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupSignalHandler()
	defer stop()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noOwnerOnly, _ := cmd.Flags().GetBool("no-owner-only")
	noItemOnly, _ := cmd.Flags().GetBool("no-item-only")

	a, cleanup, err := newApp(ctx, configFilePath(cmd))
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}
	defer cleanup()

	items, err := a.store.Items.List(ctx)
	if err != nil {
		return &exitError{code: exitConfigError, message: err.Error()}
	}

	deleted := 0
	failed := 0
	for _, item := range items {
		tasks, err := a.store.Tasks.ListByItem(ctx, item.ID)
		if err != nil {
			a.logger.Error("cleanup-tasks: list tasks failed", zap.String("itemId", item.ID), zap.Error(err))
			failed++
			continue
		}

		itemFullyDone := allTasksDone(tasks)
		for _, task := range tasks {
			if !isCleanupCandidate(task, itemFullyDone, noOwnerOnly, noItemOnly) {
				continue
			}
			if dryRun {
				a.logger.Info("cleanup-tasks: would delete", zap.String("taskId", task.ID), zap.String("title", task.Title))
				deleted++
				continue
			}
			if err := a.store.Tasks.Delete(ctx, task.ID); err != nil {
				a.logger.Error("cleanup-tasks: delete failed", zap.String("taskId", task.ID), zap.Error(err))
				failed++
				continue
			}
			deleted++
		}
	}

	verb := "deleted"
	if dryRun {
		verb = "would delete"
	}
	a.logger.Info("cleanup-tasks complete", zap.String("action", verb), zap.Int("count", deleted), zap.Int("failed", failed))
	if failed > 0 {
		return &exitError{code: exitPartialFailure, message: "some tasks could not be processed, see logs"}
	}
	return nil
}

// isCleanupCandidate applies the default owner-only/item-only scoping
// (spec.md §6's `--no-owner-only`/`--no-item-only` negate each): a done
// Task is only swept by default when it has no assignee to follow up with
// and its whole Item has already wrapped up, so a routine sweep never
// deletes a Task someone is actively tracking.
func isCleanupCandidate(task *domain.Task, itemFullyDone, noOwnerOnly, noItemOnly bool) bool {
	if task.Status != domain.TaskStatusDone {
		return false
	}
	if !noOwnerOnly && task.AssignedID != "" {
		return false
	}
	if !noItemOnly && !itemFullyDone {
		return false
	}
	return true
}

func allTasksDone(tasks []*domain.Task) bool {
	for _, t := range tasks {
		if t.Status != domain.TaskStatusDone {
			return false
		}
	}
	return true
}
