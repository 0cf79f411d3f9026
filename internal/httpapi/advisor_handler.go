package httpapi

import (
	"context"
	"errors"
	"net/http"

	"ideagraph/internal/websearch"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// supportAdvisor is the narrow SupportAdvisor seam this handler depends on.
type supportAdvisor interface {
	Internal(ctx context.Context, taskDescription string) (string, error)
	External(ctx context.Context, taskDescription string) (string, error)
}

// advisorHandler exposes SupportAdvisor's internal/external analyses
// (spec.md §4.9) for manual triggers; neither mode mutates a Task.
type advisorHandler struct {
	advisor supportAdvisor
	logger  *zap.Logger
}

func newAdvisorHandler(advisor supportAdvisor, logger *zap.Logger) *advisorHandler {
	return &advisorHandler{advisor: advisor, logger: logger}
}

type advisorRequest struct {
	TaskDescription string `json:"taskDescription" binding:"required"`
}

// Internal handles POST /api/v1/advisor/internal.
func (h *advisorHandler) Internal(c *gin.Context) {
	var req advisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	analysis, err := h.advisor.Internal(c.Request.Context(), req.TaskDescription)
	if err != nil {
		h.logger.Error("internal advisory analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to produce internal analysis"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// External handles POST /api/v1/advisor/external.
func (h *advisorHandler) External(c *gin.Context) {
	var req advisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	analysis, err := h.advisor.External(c.Request.Context(), req.TaskDescription)
	if err != nil {
		if errors.Is(err, websearch.ErrUnconfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no web search backend configured"})
			return
		}
		h.logger.Error("external advisory analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to produce external analysis"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// RegisterRoutes registers the advisor routes.
func (h *advisorHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/internal", h.Internal)
	r.POST("/external", h.External)
}
