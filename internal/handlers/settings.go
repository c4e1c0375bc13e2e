package handlers

import (
	"log"

	"flowpilot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler handles user preference HTTP requests
type SettingsHandler struct {
	settingsService *services.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// Get returns the current preferences
// GET /api/settings
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"soundEnabled": h.settingsService.SoundEnabled(),
	})
}

// Update changes preferences
// PUT /api/settings
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req struct {
		SoundEnabled *bool `json:"soundEnabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SoundEnabled != nil {
		if err := h.settingsService.SetSoundEnabled(*req.SoundEnabled); err != nil {
			log.Printf("❌ Failed to update sound preference: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update settings",
			})
		}
	}

	return c.JSON(fiber.Map{
		"soundEnabled": h.settingsService.SoundEnabled(),
	})
}
