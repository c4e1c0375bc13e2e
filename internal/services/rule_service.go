package services

import (
	"database/sql"
	"fmt"
	"time"

	"flowpilot/internal/database"
	"flowpilot/internal/models"

	"github.com/google/uuid"
)

// RuleService handles automation rule storage. Authoring-time validation
// lives here; the engine itself accepts whatever the store holds and treats
// malformed rules as inert.
type RuleService struct {
	db *database.DB
}

// NewRuleService creates a new rule service
func NewRuleService(db *database.DB) *RuleService {
	return &RuleService{db: db}
}

const ruleColumns = "id, name, description, trigger_type, trigger_condition, action_type, action_target, active, execution_count, last_run, created_at, updated_at"

func scanRule(scan func(dest ...any) error) (models.AutomationRule, error) {
	var r models.AutomationRule
	var description, condition, target sql.NullString
	var lastRun sql.NullTime
	err := scan(&r.ID, &r.Name, &description, &r.TriggerType, &condition, &r.ActionType, &target,
		&r.Active, &r.ExecutionCount, &lastRun, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.AutomationRule{}, err
	}
	if description.Valid {
		r.Description = description.String
	}
	if condition.Valid {
		r.TriggerCondition = condition.String
	}
	if target.Valid {
		r.ActionTarget = target.String
	}
	if lastRun.Valid {
		t := lastRun.Time
		r.LastRun = &t
	}
	return r, nil
}

// GetAll returns all rules in creation order. Evaluation order follows this.
func (s *RuleService) GetAll() ([]models.AutomationRule, error) {
	rows, err := s.db.Query("SELECT " + ruleColumns + " FROM automation_rules ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AutomationRule
	for rows.Next() {
		r, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// GetByID returns a rule by ID
func (s *RuleService) GetByID(id string) (*models.AutomationRule, error) {
	row := s.db.QueryRow("SELECT "+ruleColumns+" FROM automation_rules WHERE id = ?", id)
	r, err := scanRule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rule: %w", err)
	}
	return &r, nil
}

// validateRule rejects definitions the engine would silently treat as inert
func validateRule(trigger models.TriggerType, condition string, action models.ActionType, target string) error {
	if !trigger.IsValid() {
		return fmt.Errorf("invalid trigger type: %s", trigger)
	}
	if !action.IsValid() {
		return fmt.Errorf("invalid action type: %s", action)
	}
	if !action.IsSupported() {
		return fmt.Errorf("action type %s is not supported yet", action)
	}
	if trigger == models.TriggerKeywordMatch && condition == "" {
		return fmt.Errorf("keyword match rules require a trigger condition")
	}
	if action == models.ActionSetPriority && !models.Priority(target).IsValid() {
		return fmt.Errorf("set-priority rules require a valid priority target")
	}
	return nil
}

// Create inserts a new rule
func (s *RuleService) Create(req models.CreateRuleRequest) (*models.AutomationRule, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := validateRule(req.TriggerType, req.TriggerCondition, req.ActionType, req.ActionTarget); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rule := models.AutomationRule{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Description:      req.Description,
		TriggerType:      req.TriggerType,
		TriggerCondition: req.TriggerCondition,
		ActionType:       req.ActionType,
		ActionTarget:     req.ActionTarget,
		Active:           req.Active == nil || *req.Active,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := s.db.Exec(`
		INSERT INTO automation_rules (id, name, description, trigger_type, trigger_condition, action_type, action_target, active, execution_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, rule.ID, rule.Name, nullable(rule.Description), rule.TriggerType, nullable(rule.TriggerCondition),
		rule.ActionType, nullable(rule.ActionTarget), rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	return &rule, nil
}

// Update applies a partial update and returns the updated rule
func (s *RuleService) Update(id string, req models.UpdateRuleRequest) (*models.AutomationRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("name is required")
		}
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.TriggerType != nil {
		rule.TriggerType = *req.TriggerType
	}
	if req.TriggerCondition != nil {
		rule.TriggerCondition = *req.TriggerCondition
	}
	if req.ActionType != nil {
		rule.ActionType = *req.ActionType
	}
	if req.ActionTarget != nil {
		rule.ActionTarget = *req.ActionTarget
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := validateRule(rule.TriggerType, rule.TriggerCondition, rule.ActionType, rule.ActionTarget); err != nil {
		return nil, err
	}
	rule.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		UPDATE automation_rules
		SET name = ?, description = ?, trigger_type = ?, trigger_condition = ?, action_type = ?, action_target = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, rule.Name, nullable(rule.Description), rule.TriggerType, nullable(rule.TriggerCondition),
		rule.ActionType, nullable(rule.ActionTarget), rule.Active, rule.UpdatedAt, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	return rule, nil
}

// Toggle flips the active flag and returns the updated rule
func (s *RuleService) Toggle(id string) (*models.AutomationRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	rule.Active = !rule.Active
	rule.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec("UPDATE automation_rules SET active = ?, updated_at = ? WHERE id = ?",
		rule.Active, rule.UpdatedAt, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle rule: %w", err)
	}

	return rule, nil
}

// Delete removes a rule by ID
func (s *RuleService) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("rule not found")
	}
	return nil
}

// RecordFirings bumps execution counts and stamps last_run for fired rules.
// execution_count only ever increases; last_run only moves forward, so a
// delayed writer cannot rewind it.
func (s *RuleService) RecordFirings(ids []string, firedAt time.Time) error {
	firedAt = firedAt.UTC()
	for _, id := range ids {
		_, err := s.db.Exec(`
			UPDATE automation_rules
			SET execution_count = execution_count + 1,
			    last_run = CASE WHEN last_run IS NULL OR last_run < ? THEN ? ELSE last_run END
			WHERE id = ?
		`, firedAt, firedAt, id)
		if err != nil {
			return fmt.Errorf("failed to record firing for rule %s: %w", id, err)
		}
	}
	return nil
}
