// Package poller implements the mail, Teams, and GitHub polling loops
// (spec.md §4.7): each turns inbound events into Tasks and TaskComments via
// the Classifier, sharing one cursor/backpressure contract.
package poller

import (
	"context"
	"strings"
	"time"

	"ideagraph/internal/store"

	"go.uber.org/zap"
)

// defaultPollInterval is the cadence an Orchestrator uses when it is given
// no positive interval. One interval is shared by every poller in an
// Orchestrator; there is no per-source override.
const defaultPollInterval = 60 * time.Second

// maxEventsPerTick bounds one Fetch call (spec.md §4.7: "max 25 per tick").
const maxEventsPerTick = 25

// autoGeneratedPrefix marks a message-id minted by this service's own
// confirmation/acknowledgement/notification sends, so a poller never
// reclassifies its own outbound traffic as new inbound work.
const autoGeneratedPrefix = "IG-AUTO-"

// Poller is satisfied by MailPoller, TeamsPoller, and GitHubPoller.
type Poller interface {
	Name() string
	PollOnce(ctx context.Context) error
}

// AutoGeneratedMessageID mints a message-id carrying the self-filter prefix
// for an outbound send the poller must recognize as its own on a later tick.
func AutoGeneratedMessageID(suffix string) string {
	return autoGeneratedPrefix + suffix
}

func isAutoGenerated(messageID string) bool {
	return strings.HasPrefix(messageID, autoGeneratedPrefix)
}

// guardBackpressure records the outcome of processing one source event
// against the poison sidecar (spec.md §5 Backpressure). Call with err=nil on
// success to clear a prior failure streak.
func guardBackpressure(ctx context.Context, poison store.PoisonStore, sourceKind, sourceID string, procErr error, logger *zap.Logger) {
	if procErr == nil {
		if err := poison.Clear(ctx, sourceKind, sourceID); err != nil {
			logger.Warn("poller: failed to clear poison record", zap.String("sourceKind", sourceKind), zap.Error(err))
		}
		return
	}

	record, err := poison.RecordFailure(ctx, sourceKind, sourceID, procErr.Error())
	if err != nil {
		logger.Error("poller: failed to record poison failure", zap.String("sourceKind", sourceKind), zap.Error(err))
		return
	}
	if record.Poisoned {
		logger.Error("poller: source event poisoned, will be skipped until cleared",
			zap.String("sourceKind", sourceKind), zap.String("sourceId", sourceID), zap.Int("failures", record.FailureCount))
	} else {
		logger.Warn("poller: processing failed, will retry next tick",
			zap.String("sourceKind", sourceKind), zap.String("sourceId", sourceID), zap.Int("failures", record.FailureCount), zap.Error(procErr))
	}
}

// isPoisoned reports whether sourceID has already crossed the failure
// threshold for sourceKind and should be skipped without retry.
func isPoisoned(ctx context.Context, poison store.PoisonStore, sourceKind, sourceID string) bool {
	poisoned, err := poison.ListPoisoned(ctx, sourceKind)
	if err != nil {
		return false
	}
	for _, p := range poisoned {
		if p.SourceID == sourceID {
			return true
		}
	}
	return false
}
