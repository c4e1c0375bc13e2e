// Package automation implements the rule engine: given a snapshot of tasks and
// user-authored rules, it decides which rules fire for a trigger event and
// describes the resulting side effects. It performs no I/O and mutates none of
// its inputs; callers apply the returned changes to storage.
package automation

import (
	"fmt"
	"strings"
	"time"

	"flowpilot/internal/models"

	"github.com/google/uuid"
)

// Result describes the cumulative effect of one evaluation pass.
type Result struct {
	// UpdatedTasks is a new task collection reflecting all SET_PRIORITY and
	// DELETE actions, applied in rule order.
	UpdatedTasks []models.Task
	// NewNotifications holds one entry per NOTIFY firing, in firing order.
	NewNotifications []models.AppNotification
	// FiredRuleIDs lists each fired rule's ID, at most once per rule.
	FiredRuleIDs []string
}

// Engine evaluates automation rules. It holds no mutable state; the only
// injected dependency is the notification ID generator, so tests can pin it.
type Engine struct {
	newID func() string
}

// New creates an engine with UUID notification IDs.
func New() *Engine {
	return &Engine{newID: uuid.NewString}
}

// NewWithIDGenerator creates an engine with a custom notification ID source.
func NewWithIDGenerator(newID func() string) *Engine {
	return &Engine{newID: newID}
}

// accumulator is the value folded over the rule list. The working task copy
// evolves rule by rule, so a DELETE by an earlier rule is visible to a later
// ON_OVERDUE rescan within the same call.
type accumulator struct {
	tasks         []models.Task
	notifications []models.AppNotification
	firedIDs      []string
}

// Evaluate runs every active rule matching trigger against the task snapshot
// and returns the changes to apply. contextTask is the task the triggering
// event concerns; it is ignored by ON_OVERDUE rules, which instead scan the
// working collection for any incomplete task due before now. now is also the
// timestamp stamped onto produced notifications, so identical inputs always
// produce identical outputs.
//
// The engine never fails: rules with missing or malformed optional fields
// simply do not fire, or fire with no effect.
func (e *Engine) Evaluate(tasks []models.Task, rules []models.AutomationRule, trigger models.TriggerType, contextTask *models.Task, now time.Time) Result {
	acc := accumulator{tasks: append([]models.Task(nil), tasks...)}

	for _, rule := range rules {
		if !rule.Active || rule.TriggerType != trigger {
			continue
		}
		target, fired := shouldFire(rule, acc.tasks, contextTask, now)
		if !fired {
			continue
		}
		acc = e.apply(acc, rule, target, now)
	}

	return Result{
		UpdatedTasks:     acc.tasks,
		NewNotifications: acc.notifications,
		FiredRuleIDs:     acc.firedIDs,
	}
}

// shouldFire checks the rule's condition and resolves the task its action
// targets. Every declared trigger type has an explicit case; an unknown value
// never fires.
func shouldFire(rule models.AutomationRule, working []models.Task, contextTask *models.Task, now time.Time) (*models.Task, bool) {
	switch rule.TriggerType {
	case models.TriggerOnCreate:
		// Fires for any reported new task, regardless of its fields.
		return contextTask, contextTask != nil

	case models.TriggerKeywordMatch:
		if contextTask == nil || rule.TriggerCondition == "" {
			return nil, false
		}
		keyword := strings.ToLower(rule.TriggerCondition)
		if strings.Contains(strings.ToLower(contextTask.Title), keyword) ||
			strings.Contains(strings.ToLower(contextTask.Description), keyword) {
			return contextTask, true
		}
		return nil, false

	case models.TriggerOnComplete:
		if contextTask != nil && contextTask.Status == models.TaskStatusCompleted {
			return contextTask, true
		}
		return nil, false

	case models.TriggerOnOverdue:
		// Scans the working copy, not the original snapshot: a task deleted
		// by an earlier rule in this pass no longer counts as overdue. The
		// rule fires at most once per call; the first overdue task in
		// collection order provides notification context.
		for i := range working {
			if working[i].IsOverdue(now) {
				return &working[i], true
			}
		}
		return nil, false
	}

	return nil, false
}

// apply records the firing and executes the rule's action against the
// accumulator. Unsupported actions record the firing but change nothing.
func (e *Engine) apply(acc accumulator, rule models.AutomationRule, target *models.Task, now time.Time) accumulator {
	acc.firedIDs = append(acc.firedIDs, rule.ID)

	switch rule.ActionType {
	case models.ActionNotify:
		acc.notifications = append(acc.notifications, e.buildNotification(rule, target, now))

	case models.ActionSetPriority:
		if target == nil || rule.ActionTarget == "" {
			break
		}
		tasks := make([]models.Task, len(acc.tasks))
		for i, t := range acc.tasks {
			if t.ID == target.ID {
				t.Priority = models.Priority(rule.ActionTarget)
			}
			tasks[i] = t
		}
		acc.tasks = tasks

	case models.ActionDelete:
		if target == nil {
			break
		}
		tasks := make([]models.Task, 0, len(acc.tasks))
		for _, t := range acc.tasks {
			if t.ID != target.ID {
				tasks = append(tasks, t)
			}
		}
		acc.tasks = tasks

	case models.ActionAssignUser:
		// Declared in the rule vocabulary but not implemented. The firing is
		// still recorded so the rule's execution count reflects reality.
	}

	return acc
}

// buildNotification produces the NOTIFY payload. The message defaults to the
// rule's actionTarget; without one, a fallback references the target task.
func (e *Engine) buildNotification(rule models.AutomationRule, target *models.Task, now time.Time) models.AppNotification {
	message := rule.ActionTarget
	if message == "" {
		if target != nil {
			message = fmt.Sprintf("Rule triggered by task: %s", target.Title)
		} else {
			message = "Rule triggered"
		}
	}

	return models.AppNotification{
		ID:        e.newID(),
		Type:      models.NotificationTypeAutomation,
		Source:    models.NotificationSourceAutomation,
		Title:     fmt.Sprintf("Automation: %s", rule.Name),
		Message:   message,
		Timestamp: now,
		Read:      false,
		Priority:  models.NotificationPriorityNormal,
	}
}
