package handlers

import (
	"log"

	"flowpilot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StatsHandler serves dashboard statistics
type StatsHandler struct {
	statsService *services.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Get returns the computed dashboard statistics (cached briefly)
// GET /api/stats
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	stats, err := h.statsService.Get()
	if err != nil {
		log.Printf("❌ Failed to compute stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}

	return c.JSON(stats)
}
