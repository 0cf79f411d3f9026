package poller

import (
	"context"

	"ideagraph/internal/domain"
	"ideagraph/internal/store"
)

// BackpressureAdmin exposes the poisoned-message sidecar for operator
// tooling (spec.md §5 Backpressure) — listing what a poller has given up on
// and clearing an entry once the underlying issue is fixed, without httpapi
// reaching into store.PoisonStore directly.
type BackpressureAdmin struct {
	poison store.PoisonStore
}

func NewBackpressureAdmin(poison store.PoisonStore) *BackpressureAdmin {
	return &BackpressureAdmin{poison: poison}
}

func (a *BackpressureAdmin) ListPoisoned(ctx context.Context, sourceKind string) ([]*domain.PoisonedMessage, error) {
	return a.poison.ListPoisoned(ctx, sourceKind)
}

func (a *BackpressureAdmin) Clear(ctx context.Context, sourceKind, sourceID string) error {
	return a.poison.Clear(ctx, sourceKind, sourceID)
}
