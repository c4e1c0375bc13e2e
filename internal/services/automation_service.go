package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"flowpilot/internal/automation"
	"flowpilot/internal/logging"
	"flowpilot/internal/models"
)

// TriggerOutcome summarizes what a trigger event produced after the engine's
// results were applied to storage.
type TriggerOutcome struct {
	FiredRuleIDs  []string                 `json:"firedRuleIds"`
	Notifications []models.AppNotification `json:"notifications"`
	TasksChanged  int                      `json:"tasksChanged"`
}

// AutomationService is the execution coordinator: it snapshots the stores,
// runs the engine for the trigger types a single external event implies, and
// applies the returned changes as one read-evaluate-write step. The engine
// itself owns no state; the serialization discipline lives here.
type AutomationService struct {
	engine        *automation.Engine
	tasks         *TaskService
	rules         *RuleService
	notifications *NotificationService
	settings      *SettingsService
	stats         *StatsService
	connManager   *ConnectionManager
	pubsub        *PubSubService // Optional; nil without Redis

	mu sync.Mutex
}

// NewAutomationService creates the execution coordinator.
// pubsub may be nil; broadcasts then stay instance-local.
func NewAutomationService(
	engine *automation.Engine,
	tasks *TaskService,
	rules *RuleService,
	notifications *NotificationService,
	settings *SettingsService,
	stats *StatsService,
	connManager *ConnectionManager,
) *AutomationService {
	return &AutomationService{
		engine:        engine,
		tasks:         tasks,
		rules:         rules,
		notifications: notifications,
		settings:      settings,
		stats:         stats,
		connManager:   connManager,
	}
}

// SetPubSub attaches cross-instance fanout (deferred initialization)
func (s *AutomationService) SetPubSub(pubsub *PubSubService) {
	s.pubsub = pubsub
}

// OnTaskCreated runs the rules a newly captured task is relevant to. A single
// creation event feeds two trigger types; the second pass sees the first
// pass's task collection.
func (s *AutomationService) OnTaskCreated(ctx context.Context, task *models.Task) (*TriggerOutcome, error) {
	return s.run(ctx, []models.TriggerType{models.TriggerOnCreate, models.TriggerKeywordMatch}, task)
}

// OnTaskCompleted runs ON_COMPLETE rules for a task that just transitioned
// into completed status.
func (s *AutomationService) OnTaskCompleted(ctx context.Context, task *models.Task) (*TriggerOutcome, error) {
	return s.run(ctx, []models.TriggerType{models.TriggerOnComplete}, task)
}

// RunOverdueCheck runs ON_OVERDUE rules against the whole collection. Invoked
// by the scheduler on a fixed interval, or manually via the API.
func (s *AutomationService) RunOverdueCheck(ctx context.Context) (*TriggerOutcome, error) {
	outcome, err := s.run(ctx, []models.TriggerType{models.TriggerOnOverdue}, nil)
	if err != nil {
		return nil, err
	}

	if m := GetMetrics(); m != nil {
		tasks, err := s.tasks.GetAll()
		if err == nil {
			now := time.Now().UTC()
			overdue := 0
			for i := range tasks {
				if tasks[i].IsOverdue(now) {
					overdue++
				}
			}
			m.RecordOverdueTasks(overdue)
		}
	}

	return outcome, nil
}

// run executes the trigger passes and applies the cumulative result.
func (s *AutomationService) run(ctx context.Context, triggers []models.TriggerType, contextTask *models.Task) (*TriggerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	snapshot, err := s.tasks.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	rules, err := s.rules.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	contextTaskID := ""
	if contextTask != nil {
		contextTaskID = contextTask.ID
	}

	// Chain passes: each pass's updated tasks feed the next; notifications
	// and fired rule IDs accumulate across passes.
	now := time.Now().UTC()
	working := snapshot
	outcome := &TriggerOutcome{}
	for _, trigger := range triggers {
		result := s.engine.Evaluate(working, rules, trigger, contextTask, now)
		working = result.UpdatedTasks
		outcome.Notifications = append(outcome.Notifications, result.NewNotifications...)
		outcome.FiredRuleIDs = append(outcome.FiredRuleIDs, result.FiredRuleIDs...)

		logger := logging.WithTrigger(string(trigger), contextTaskID)
		for _, id := range result.FiredRuleIDs {
			if rule := findRule(rules, id); rule != nil {
				logging.WithRule(logger, rule.ID, rule.Name, string(rule.ActionType)).Debug("rule fired")
				if m := GetMetrics(); m != nil {
					m.RecordRuleFired(string(trigger), string(rule.ActionType))
				}
			}
		}
	}

	outcome.TasksChanged, err = s.applyTaskChanges(snapshot, working)
	if err != nil {
		return nil, err
	}

	if len(outcome.Notifications) > 0 {
		if err := s.notifications.Insert(outcome.Notifications); err != nil {
			return nil, err
		}
		if m := GetMetrics(); m != nil {
			m.RecordNotifications(len(outcome.Notifications))
		}
	}

	if len(outcome.FiredRuleIDs) > 0 {
		// Application-time clock, not the evaluation clock: these are
		// sequential steps and last_run reflects when the write landed.
		if err := s.rules.RecordFirings(outcome.FiredRuleIDs, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	if outcome.TasksChanged > 0 {
		s.stats.Invalidate()
	}

	s.broadcast(ctx, outcome.Notifications)

	if m := GetMetrics(); m != nil {
		m.RecordEvaluationLatency(time.Since(start).Seconds())
	}

	return outcome, nil
}

// applyTaskChanges diffs the engine's task collection against the snapshot
// and applies deletions and priority changes to the store.
func (s *AutomationService) applyTaskChanges(snapshot, updated []models.Task) (int, error) {
	after := make(map[string]models.Task, len(updated))
	for _, t := range updated {
		after[t.ID] = t
	}

	changed := 0
	for _, before := range snapshot {
		current, exists := after[before.ID]
		if !exists {
			if err := s.tasks.Delete(before.ID); err != nil {
				return changed, fmt.Errorf("failed to apply deletion of task %s: %w", before.ID, err)
			}
			changed++
			if m := GetMetrics(); m != nil {
				m.RecordTaskMutation("delete")
			}
			continue
		}
		if current.Priority != before.Priority {
			if err := s.tasks.SetPriority(before.ID, current.Priority); err != nil {
				return changed, fmt.Errorf("failed to apply priority change for task %s: %w", before.ID, err)
			}
			changed++
			if m := GetMetrics(); m != nil {
				m.RecordTaskMutation("set_priority")
			}
		}
	}

	return changed, nil
}

// broadcast pushes new notifications to live clients, locally and (when
// Redis is configured) to other instances.
func (s *AutomationService) broadcast(ctx context.Context, notifications []models.AppNotification) {
	if len(notifications) == 0 {
		return
	}

	event := models.NotificationEvent{
		Type:          "notifications",
		Notifications: notifications,
		PlaySound:     s.settings.SoundEnabled(),
	}

	s.connManager.Broadcast(event)

	if s.pubsub != nil {
		if err := s.pubsub.Publish(ctx, event); err != nil {
			log.Printf("⚠️ Failed to publish notification event: %v", err)
		}
	}
}

func findRule(rules []models.AutomationRule, id string) *models.AutomationRule {
	for i := range rules {
		if rules[i].ID == id {
			return &rules[i]
		}
	}
	return nil
}
