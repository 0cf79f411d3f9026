package poller

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"
)

// Orchestrator owns every configured Poller's lifetime, ticking them all in
// parallel on a shared interval (spec.md §4.7 "Poll interval: configurable
// per source, default 60s").
type Orchestrator struct {
	pollers  []Poller
	interval time.Duration
	logger   *zap.Logger
}

func NewOrchestrator(interval time.Duration, logger *zap.Logger, pollers ...Poller) *Orchestrator {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Orchestrator{pollers: pollers, interval: interval, logger: logger}
}

// Run ticks every poller until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.PollAllOnce(ctx)
		}
	}
}

// PollAllOnce runs every poller's PollOnce concurrently and is the
// poll_once() one-shot entry point the spec calls out for tests/CLI use.
// A single poller's failure never aborts the others; each error is logged
// against its own source and the cursor for that source simply doesn't
// advance, so the next tick retries it.
func (o *Orchestrator) PollAllOnce(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range o.pollers {
		p := p
		g.Go(func() error {
			if err := p.PollOnce(gctx); err != nil {
				o.logger.Error("poller tick failed", zap.String("source", p.Name()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
