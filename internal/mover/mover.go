// Package mover implements TaskMover (spec.md §4.10): moving a Task from
// one Item's external folder to another's, atomically retargeting the
// Task's itemId, and re-indexing its KnowledgeObject.
package mover

import (
	"context"
	"fmt"

	"ideagraph/internal/domain"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/knowledge"
	"ideagraph/internal/store"
	"ideagraph/internal/threadtoken"

	"go.uber.org/zap"
)

const libraryID = "default"

// Notifier sends the optional requester email (spec.md §4.10 step 5).
type Notifier interface {
	Notify(ctx context.Context, requesterID, taskTitle, fromItemTitle, toItemTitle string) error
}

type Mover struct {
	items  store.ItemStore
	tasks  store.TaskStore
	graph  graphclient.Client
	sync   *knowledge.Sync
	notify Notifier
	logger *zap.Logger
}

func New(items store.ItemStore, tasks store.TaskStore, graph graphclient.Client, sync *knowledge.Sync, notify Notifier, logger *zap.Logger) *Mover {
	return &Mover{items: items, tasks: tasks, graph: graph, sync: sync, notify: notify, logger: logger}
}

// Move relocates taskID from its current Item to destItemID (spec.md
// §4.10). notifyRequester, if true, emails the Task's requester once the
// move completes.
func (m *Mover) Move(ctx context.Context, taskID, destItemID string, notifyRequester bool) error {
	task, err := m.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("mover: load task: %w", err)
	}

	fromItem, err := m.items.Get(ctx, task.ItemID)
	if err != nil {
		return fmt.Errorf("mover: load source item: %w", err)
	}
	destItem, err := m.items.Get(ctx, destItemID)
	if err != nil {
		return fmt.Errorf("mover: load destination item: %w", err)
	}

	// Step 1: ensure the destination's external folder exists.
	destFolderID, err := m.ensureItemFolder(ctx, destItem)
	if err != nil {
		return fmt.Errorf("mover: ensure destination folder: %w", err)
	}

	// Step 2: move the task's own folder from A's root to B's root via the
	// external store's native move (not copy-then-delete).
	if task.FolderID != "" {
		if err := m.graph.MoveFile(ctx, libraryID, task.FolderID, destFolderID); err != nil {
			return fmt.Errorf("mover: move task folder: %w", err)
		}
	}

	// Step 3: retarget the task atomically. Failure past this point but
	// before the DB write is the unreconciled-state spec.md §4.10 calls out.
	previousItemID := task.ItemID
	task.ItemID = destItemID
	if err := m.tasks.Update(ctx, task); err != nil {
		m.logger.Error("mover: folder moved but task update failed, manual reconciliation required",
			zap.String("taskId", task.ID), zap.String("fromItemId", previousItemID), zap.String("toItemId", destItemID), zap.Error(err))
		return fmt.Errorf("mover: update task item: %w", err)
	}

	// Step 4: re-upsert the KnowledgeObject so its itemId reflects the move.
	m.sync.UpsertTask(ctx, task)

	// Step 5: optional notification.
	if notifyRequester && m.notify != nil {
		if err := m.notify.Notify(ctx, task.RequesterID, task.Title, fromItem.Title, destItem.Title); err != nil {
			m.logger.Warn("mover: requester notification failed", zap.String("taskId", task.ID), zap.Error(err))
		}
	}

	return nil
}

func (m *Mover) ensureItemFolder(ctx context.Context, item *domain.Item) (string, error) {
	if item.FolderID != "" {
		return item.FolderID, nil
	}

	name := graphclient.NormalizeFolderName(item.Title)
	folderID, err := m.graph.EnsureFolder(ctx, libraryID, "root", name)
	if err != nil {
		// Name collision: retry with the item's short-id suffix
		// (spec.md §6 "Collisions are resolved by appending -<shortid>").
		folderID, err = m.graph.EnsureFolder(ctx, libraryID, "root", fmt.Sprintf("%s-%s", name, threadtoken.ShortIDFor(item.ID)))
		if err != nil {
			return "", err
		}
	}

	item.FolderID = folderID
	if updateErr := m.items.Update(ctx, item); updateErr != nil {
		return "", fmt.Errorf("persist item folder id: %w", updateErr)
	}
	return folderID, nil
}
