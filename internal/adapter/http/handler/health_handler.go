package handler

import (
	"context"
	"net/http"
	"time"

	"payment-api-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves GET /, the unauthenticated liveness endpoint.
type HealthHandler struct {
	environment string
	checkers    []ports.HealthChecker
}

// NewHealthHandler creates a health handler. checkers are pinged on every
// request; a failing dependency degrades the report but keeps the status 200
// so load balancers do not cycle the process on a transient outage.
func NewHealthHandler(environment string, checkers ...ports.HealthChecker) *HealthHandler {
	return &HealthHandler{environment: environment, checkers: checkers}
}

// Check handles GET /.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := gin.H{}
	for _, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			deps[checker.Name()] = "unavailable"
			status = "degraded"
			continue
		}
		deps[checker.Name()] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"environment":  h.environment,
		"dependencies": deps,
	})
}
