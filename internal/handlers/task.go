package handlers

import (
	"log"
	"strings"

	"flowpilot/internal/models"
	"flowpilot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService       *services.TaskService
	automationService *services.AutomationService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, automationService *services.AutomationService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		automationService: automationService,
	}
}

// List returns all tasks ordered by due date
// GET /api/tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	tasks, err := h.taskService.GetAll()
	if err != nil {
		log.Printf("❌ Failed to list tasks: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list tasks",
		})
	}

	return c.JSON(fiber.Map{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Get returns a single task
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task ID is required",
		})
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	return c.JSON(task)
}

// Create captures a new task and runs creation-time automation rules
// POST /api/tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req models.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	task, err := h.taskService.Create(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	log.Printf("✅ [TASK] Created task %s: %s", task.ID, task.Title)

	outcome, err := h.automationService.OnTaskCreated(c.Context(), task)
	if err != nil {
		// The task exists; automation failure is reported but not fatal
		log.Printf("❌ [TASK] Automation failed for created task %s: %v", task.ID, err)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"task":       task,
			"automation": nil,
		})
	}

	// The engine may have mutated the task itself (priority, deletion)
	current, err := h.taskService.GetByID(task.ID)
	if err == nil {
		task = current
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"task":       task,
		"automation": outcome,
	})
}

// Update applies a partial update. A status transition into completed runs
// completion-time automation rules.
// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task ID is required",
		})
	}

	var req models.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	before, err := h.taskService.GetByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	task, err := h.taskService.Update(id, req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var outcome *services.TriggerOutcome
	if before.Status != models.TaskStatusCompleted && task.Status == models.TaskStatusCompleted {
		outcome, err = h.automationService.OnTaskCompleted(c.Context(), task)
		if err != nil {
			log.Printf("❌ [TASK] Automation failed for completed task %s: %v", task.ID, err)
		}
		if current, err := h.taskService.GetByID(task.ID); err == nil {
			task = current
		}
	}

	return c.JSON(fiber.Map{
		"task":       task,
		"automation": outcome,
	})
}

// Complete marks a task completed and runs completion-time automation rules
// POST /api/tasks/:id/complete
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task ID is required",
		})
	}

	status := models.TaskStatusCompleted
	task, err := h.taskService.Update(id, models.UpdateTaskRequest{Status: &status})
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	log.Printf("✅ [TASK] Completed task %s: %s", task.ID, task.Title)

	outcome, err := h.automationService.OnTaskCompleted(c.Context(), task)
	if err != nil {
		log.Printf("❌ [TASK] Automation failed for completed task %s: %v", task.ID, err)
	}

	if current, err := h.taskService.GetByID(task.ID); err == nil {
		task = current
	}

	return c.JSON(fiber.Map{
		"task":       task,
		"automation": outcome,
	})
}

// Delete removes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task ID is required",
		})
	}

	if err := h.taskService.Delete(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Task not found",
			})
		}
		log.Printf("❌ Failed to delete task %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete task",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Task deleted successfully",
	})
}
