package httpapi

import (
	"context"
	"net/http"

	"ideagraph/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// orchestrator is the narrow Orchestrator seam this handler depends on.
type orchestrator interface {
	PollAllOnce(ctx context.Context)
}

// backpressureAdmin is the narrow BackpressureAdmin seam this handler
// depends on.
type backpressureAdmin interface {
	ListPoisoned(ctx context.Context, sourceKind string) ([]*domain.PoisonedMessage, error)
	Clear(ctx context.Context, sourceKind, sourceID string) error
}

// pollHandler exposes the Orchestrator's on-demand poll-once entry point
// and the poison-sidecar admin surface (spec.md §4.7, §5 Backpressure).
type pollHandler struct {
	orchestrator orchestrator
	backpressure backpressureAdmin
	logger       *zap.Logger
}

func newPollHandler(o orchestrator, bp backpressureAdmin, logger *zap.Logger) *pollHandler {
	return &pollHandler{orchestrator: o, backpressure: bp, logger: logger}
}

// PollOnce handles POST /api/v1/poll. Runs every configured poller once
// and responds after that pass completes; poller errors are logged, not surfaced, since
// a single source's failure never aborts the others.
func (h *pollHandler) PollOnce(c *gin.Context) {
	h.orchestrator.PollAllOnce(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"status": "poll triggered"})
}

// ListPoisoned handles GET /api/v1/backpressure/:source.
func (h *pollHandler) ListPoisoned(c *gin.Context) {
	source := c.Param("source")
	poisoned, err := h.backpressure.ListPoisoned(c.Request.Context(), source)
	if err != nil {
		h.logger.Error("failed to list poisoned sources", zap.String("source", source), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list poisoned sources"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"poisoned": poisoned})
}

// ClearPoisoned handles DELETE /api/v1/backpressure/:source/:sourceId.
func (h *pollHandler) ClearPoisoned(c *gin.Context) {
	source := c.Param("source")
	sourceID := c.Param("sourceId")
	if err := h.backpressure.Clear(c.Request.Context(), source, sourceID); err != nil {
		h.logger.Error("failed to clear poisoned source",
			zap.String("source", source), zap.String("sourceId", sourceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear poisoned source"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// RegisterRoutes registers the poll and backpressure admin routes.
func (h *pollHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/poll", h.PollOnce)
	r.GET("/backpressure/:source", h.ListPoisoned)
	r.DELETE("/backpressure/:source/:sourceId", h.ClearPoisoned)
}
