package knowledge

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/domain"

	"go.uber.org/zap"
)

// ItemLister and TaskLister are the narrow DomainStore seams Reconcile
// needs — satisfied by store.ItemStore and store.TaskStore respectively.
type ItemLister interface {
	List(ctx context.Context) ([]*domain.Item, error)
}

type TaskLister interface {
	ListByItem(ctx context.Context, itemID string) ([]*domain.Task, error)
}

// Reconcile is the required background job spec.md §4.4 names: scanning
// for entities whose own timestamp is newer than their KnowledgeObject's
// last-synced timestamp and re-upserting them. In practice this mostly
// catches entities whose index write silently failed at create/update time
// (this package's "failures are logged and do not roll back the primary
// transaction" policy means such entities are otherwise invisible until
// something re-touches them). Stops early if ctx is cancelled mid-scan.
// Callers wanting a recurring job loop this themselves; the `analyze-logs`
// CLI maintenance path runs it once per invocation, and poller.Orchestrator
// does not call it.
func (s *Sync) Reconcile(ctx context.Context, items ItemLister, tasks TaskLister) (int, error) {
	allItems, err := items.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("knowledge reconcile: list items: %w", err)
	}
	byID := make(map[string]*domain.Item, len(allItems))
	for _, item := range allItems {
		byID[item.ID] = item
	}

	resynced := 0
	for _, item := range allItems {
		if err := ctx.Err(); err != nil {
			return resynced, err
		}

		var parent *domain.Item
		if item.ParentID != "" {
			parent = byID[item.ParentID]
		}

		if stale, err := s.isStale(ctx, item.ID, item.CreatedAt); err != nil {
			s.logger.Warn("knowledge reconcile: item staleness check failed",
				zap.String("itemId", item.ID), zap.Error(err))
		} else if stale {
			desc, tags := item.EffectiveContext(parent)
			s.UpsertItem(ctx, item, desc, tags)
			resynced++
		}

		taskList, err := tasks.ListByItem(ctx, item.ID)
		if err != nil {
			s.logger.Warn("knowledge reconcile: list tasks failed",
				zap.String("itemId", item.ID), zap.Error(err))
			continue
		}
		for _, task := range taskList {
			if err := ctx.Err(); err != nil {
				return resynced, err
			}
			stale, err := s.isStale(ctx, task.ID, task.UpdatedAt)
			if err != nil {
				s.logger.Warn("knowledge reconcile: task staleness check failed",
					zap.String("taskId", task.ID), zap.Error(err))
				continue
			}
			if stale {
				s.UpsertTask(ctx, task)
				resynced++
			}
		}
	}
	return resynced, nil
}

// isStale reports whether entityUpdatedAt is newer than the indexed
// KnowledgeObject's last-synced timestamp. upsert() always restamps
// CreatedAt to "now" when a caller leaves it unset, which every Upsert*
// helper in this package does — so the field doubles as "last synced at"
// rather than the entity's true creation time.
func (s *Sync) isStale(ctx context.Context, id string, entityUpdatedAt time.Time) (bool, error) {
	ko, err := s.index.Fetch(ctx, id)
	if err != nil {
		return false, fmt.Errorf("fetch knowledge object: %w", err)
	}
	if ko == nil {
		return true, nil
	}
	syncedAt, err := time.Parse(time.RFC3339, ko.CreatedAt)
	if err != nil {
		return true, nil
	}
	return entityUpdatedAt.After(syncedAt), nil
}
