// Package httpapi implements the thin HTTP trigger/status surface spec.md
// §2 carves out of its Non-goals: poll-once triggers, backpressure admin,
// and the RAG ask endpoint. It does not serve any UI or CRUD views —
// those, along with auth/SSO, remain explicitly out of scope.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine for the trigger/status API, mirroring
// the teacher's health-check-then-route-groups layout in
// internal/server/http_server.go.
func NewRouter(o orchestrator, bp backpressureAdmin, rp ragAsker, adv supportAdvisor, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	// No fixed UI origin to scope to (Non-goals exclude UI/CRUD views) —
	// this surface is meant for ops tooling and scripts, not one dev-server
	// port like the teacher's embedded UI.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "ideagraph",
		})
	})

	pollGroup := r.Group("/api/v1")
	newPollHandler(o, bp, logger).RegisterRoutes(pollGroup)

	ragGroup := r.Group("/api/v1/rag")
	newRAGHandler(rp, logger).RegisterRoutes(ragGroup)

	advisorGroup := r.Group("/api/v1/advisor")
	newAdvisorHandler(adv, logger).RegisterRoutes(advisorGroup)

	return r
}

// requestLogger logs each request at Info with the teacher's field
// conventions (method/path/status/latency), replacing gin's default
// text logger with structured zap output.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
