package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 3 * time.Second

// ReadinessResponse is the response body for GET /readyz.
type ReadinessResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

// handleReady checks Qdrant connectivity: 200 when reachable, 503 otherwise.
func (s *Server) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	response := ReadinessResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.health.Health(ctx); err != nil {
		s.logger.Warn("Readiness check failed", "error", err)
		response.Status = "unhealthy"
		response.Qdrant = "disconnected"
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	response.Status = "healthy"
	response.Qdrant = "connected"
	return c.JSON(http.StatusOK, response)
}
