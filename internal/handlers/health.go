package handlers

import (
	"time"

	"flowpilot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager *services.ConnectionManager
	scheduler   *services.SchedulerService // Optional
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connManager *services.ConnectionManager, scheduler *services.SchedulerService) *HealthHandler {
	return &HealthHandler{connManager: connManager, scheduler: scheduler}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":      "healthy",
		"connections": h.connManager.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		if next := h.scheduler.NextRun(); !next.IsZero() {
			resp["nextOverdueCheck"] = next.Format(time.RFC3339)
		}
	}
	return c.JSON(resp)
}
