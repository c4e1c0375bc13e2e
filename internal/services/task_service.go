package services

import (
	"database/sql"
	"fmt"
	"time"

	"flowpilot/internal/database"
	"flowpilot/internal/models"

	"github.com/google/uuid"
)

// TaskService handles task storage operations
type TaskService struct {
	db *database.DB
}

// NewTaskService creates a new task service
func NewTaskService(db *database.DB) *TaskService {
	return &TaskService{db: db}
}

const taskColumns = "id, title, status, priority, due_date, category, description, source, assigned_to, created_at, updated_at"

func scanTask(scan func(dest ...any) error) (models.Task, error) {
	var t models.Task
	var category, description, assignedTo sql.NullString
	err := scan(&t.ID, &t.Title, &t.Status, &t.Priority, &t.DueDate, &category, &description, &t.Source, &assignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	if category.Valid {
		t.Category = category.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if assignedTo.Valid {
		t.AssignedTo = assignedTo.String
	}
	return t, nil
}

// GetAll returns the full task collection ordered by due date
func (s *TaskService) GetAll() ([]models.Task, error) {
	rows, err := s.db.Query("SELECT " + taskColumns + " FROM tasks ORDER BY due_date, created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// GetByID returns a task by ID
func (s *TaskService) GetByID(id string) (*models.Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return &t, nil
}

// Create inserts a new task, filling defaults for unset fields
func (s *TaskService) Create(req models.CreateTaskRequest) (*models.Task, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return nil, fmt.Errorf("invalid priority: %s", req.Priority)
	}

	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Status:      models.TaskStatusPending,
		Priority:    req.Priority,
		DueDate:     now.Add(24 * time.Hour),
		Category:    req.Category,
		Description: req.Description,
		Source:      req.Source,
		AssignedTo:  req.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Source == "" {
		task.Source = models.TaskSourceManual
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate.UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, title, status, priority, due_date, category, description, source, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Title, task.Status, task.Priority, task.DueDate,
		nullable(task.Category), nullable(task.Description), task.Source, nullable(task.AssignedTo),
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return &task, nil
}

// Update applies a partial update and returns the updated task
func (s *TaskService) Update(id string, req models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("invalid status: %s", *req.Status)
		}
		task.Status = *req.Status
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, fmt.Errorf("invalid priority: %s", *req.Priority)
		}
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate.UTC()
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.AssignedTo != nil {
		task.AssignedTo = *req.AssignedTo
	}
	task.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		UPDATE tasks
		SET title = ?, status = ?, priority = ?, due_date = ?, category = ?, description = ?, assigned_to = ?, updated_at = ?
		WHERE id = ?
	`, task.Title, task.Status, task.Priority, task.DueDate,
		nullable(task.Category), nullable(task.Description), nullable(task.AssignedTo),
		task.UpdatedAt, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// SetPriority updates only the priority field. Used when applying engine results.
func (s *TaskService) SetPriority(id string, priority models.Priority) error {
	_, err := s.db.Exec("UPDATE tasks SET priority = ?, updated_at = ? WHERE id = ?",
		priority, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set task priority: %w", err)
	}
	return nil
}

// Delete removes a task by ID
func (s *TaskService) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task not found")
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
