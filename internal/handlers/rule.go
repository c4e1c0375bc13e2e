package handlers

import (
	"log"
	"strings"

	"flowpilot/internal/models"
	"flowpilot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RuleHandler handles automation rule HTTP requests
type RuleHandler struct {
	ruleService       *services.RuleService
	automationService *services.AutomationService
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(ruleService *services.RuleService, automationService *services.AutomationService) *RuleHandler {
	return &RuleHandler{
		ruleService:       ruleService,
		automationService: automationService,
	}
}

// List returns all rules in evaluation order
// GET /api/rules
func (h *RuleHandler) List(c *fiber.Ctx) error {
	rules, err := h.ruleService.GetAll()
	if err != nil {
		log.Printf("❌ Failed to list rules: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list rules",
		})
	}

	return c.JSON(fiber.Map{
		"rules": rules,
		"count": len(rules),
	})
}

// Get returns a single rule
// GET /api/rules/:id
func (h *RuleHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule ID is required",
		})
	}

	rule, err := h.ruleService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Rule not found",
		})
	}

	return c.JSON(rule)
}

// Create adds a new automation rule
// POST /api/rules
func (h *RuleHandler) Create(c *fiber.Ctx) error {
	var req models.CreateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	rule, err := h.ruleService.Create(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Printf("✅ [RULE] Created rule %s: %s (%s → %s)", rule.ID, rule.Name, rule.TriggerType, rule.ActionType)
	return c.Status(fiber.StatusCreated).JSON(rule)
}

// Update applies a partial rule update
// PUT /api/rules/:id
func (h *RuleHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule ID is required",
		})
	}

	var req models.UpdateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	rule, err := h.ruleService.Update(id, req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Rule not found",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(rule)
}

// Toggle flips a rule's active flag
// POST /api/rules/:id/toggle
func (h *RuleHandler) Toggle(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule ID is required",
		})
	}

	rule, err := h.ruleService.Toggle(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Rule not found",
		})
	}

	log.Printf("🔀 [RULE] Toggled rule %s: active=%v", rule.ID, rule.Active)
	return c.JSON(rule)
}

// Delete removes a rule
// DELETE /api/rules/:id
func (h *RuleHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule ID is required",
		})
	}

	if err := h.ruleService.Delete(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Rule not found",
			})
		}
		log.Printf("❌ Failed to delete rule %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete rule",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Rule deleted successfully",
	})
}

// RunOverdueCheck triggers an immediate overdue evaluation pass, outside the
// scheduler's interval
// POST /api/rules/run-overdue-check
func (h *RuleHandler) RunOverdueCheck(c *fiber.Ctx) error {
	outcome, err := h.automationService.RunOverdueCheck(c.Context())
	if err != nil {
		log.Printf("❌ Manual overdue check failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Overdue check failed",
		})
	}

	return c.JSON(outcome)
}
