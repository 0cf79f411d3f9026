package httpapi

import (
	"context"
	"net/http"

	"ideagraph/internal/rag"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ragAsker is the narrow RAGPipeline seam this handler depends on.
type ragAsker interface {
	Ask(ctx context.Context, question, itemID string) (*rag.Answer, error)
}

// ragHandler exposes RAGPipeline.Ask as the only read surface in scope
// (spec.md §2 Non-goals exclude UI/CRUD views; the ask endpoint is the
// explicitly carved-out exception "used by tests and manual triggers").
type ragHandler struct {
	pipeline ragAsker
	logger   *zap.Logger
}

func newRAGHandler(pipeline ragAsker, logger *zap.Logger) *ragHandler {
	return &ragHandler{pipeline: pipeline, logger: logger}
}

// askRequest is the RAG ask endpoint's request body.
type askRequest struct {
	Question string `json:"question" binding:"required"`
	ItemID   string `json:"itemId"`
}

// Ask handles POST /api/v1/rag/ask.
func (h *ragHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.pipeline.Ask(c.Request.Context(), req.Question, req.ItemID)
	if err != nil {
		h.logger.Error("rag ask failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer question"})
		return
	}

	citations := make([]gin.H, 0, len(answer.Citations))
	for _, cite := range answer.Citations {
		citations = append(citations, gin.H{
			"marker": cite.Marker,
			"id":     cite.Hit.ID,
			"title":  cite.Hit.Properties.Title,
			"type":   cite.Hit.Properties.Type,
			"score":  cite.Final,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"text":      answer.Text,
		"citations": citations,
	})
}

// RegisterRoutes registers the RAG ask route.
func (h *ragHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ask", h.Ask)
}
