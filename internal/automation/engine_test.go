package automation

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"flowpilot/internal/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// seqEngine returns an engine with deterministic notification IDs.
func seqEngine() *Engine {
	n := 0
	return NewWithIDGenerator(func() string {
		n++
		return fmt.Sprintf("notif-%d", n)
	})
}

func makeTask(id, title string, status models.TaskStatus, priority models.Priority, due time.Time) models.Task {
	return models.Task{
		ID:       id,
		Title:    title,
		Status:   status,
		Priority: priority,
		DueDate:  due,
		Source:   models.TaskSourceManual,
	}
}

func makeRule(id string, trigger models.TriggerType, condition string, action models.ActionType, target string) models.AutomationRule {
	return models.AutomationRule{
		ID:               id,
		Name:             "Rule " + id,
		TriggerType:      trigger,
		TriggerCondition: condition,
		ActionType:       action,
		ActionTarget:     target,
		Active:           true,
	}
}

func TestInactiveRulesNeverFire(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Pay invoice", models.TaskStatusPending, models.PriorityLow, testNow.Add(-time.Hour)),
	}
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerOnCreate, "", models.ActionNotify, ""),
		makeRule("r2", models.TriggerOnOverdue, "", models.ActionDelete, ""),
		makeRule("r3", models.TriggerKeywordMatch, "invoice", models.ActionSetPriority, "high"),
	}
	for i := range rules {
		rules[i].Active = false
	}

	for _, trigger := range []models.TriggerType{
		models.TriggerOnCreate, models.TriggerOnComplete, models.TriggerOnOverdue, models.TriggerKeywordMatch,
	} {
		result := seqEngine().Evaluate(tasks, rules, trigger, &tasks[0], testNow)
		if !reflect.DeepEqual(result.UpdatedTasks, tasks) {
			t.Errorf("trigger %s: tasks changed with all rules inactive", trigger)
		}
		if len(result.NewNotifications) != 0 || len(result.FiredRuleIDs) != 0 {
			t.Errorf("trigger %s: expected no firings, got %d notifications, %d fired rules",
				trigger, len(result.NewNotifications), len(result.FiredRuleIDs))
		}
	}
}

func TestOnCreateFiresForAnyContextTask(t *testing.T) {
	task := makeTask("t1", "Anything at all", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerOnCreate, "", models.ActionNotify, "welcome"),
		makeRule("r2", models.TriggerOnCreate, "", models.ActionNotify, ""),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerOnCreate, &task, testNow)

	if got := result.FiredRuleIDs; !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("expected both ON_CREATE rules to fire, got %v", got)
	}
	if len(result.NewNotifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(result.NewNotifications))
	}
}

func TestOnCreateWithoutContextTaskDoesNotFire(t *testing.T) {
	rules := []models.AutomationRule{makeRule("r1", models.TriggerOnCreate, "", models.ActionNotify, "")}

	result := seqEngine().Evaluate(nil, rules, models.TriggerOnCreate, nil, testNow)

	if len(result.FiredRuleIDs) != 0 {
		t.Fatalf("ON_CREATE fired without a context task: %v", result.FiredRuleIDs)
	}
}

func TestKeywordMatchIsCaseInsensitive(t *testing.T) {
	task := makeTask("t1", "new client contract", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "Client", models.ActionNotify, ""),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerKeywordMatch, &task, testNow)

	if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
		t.Fatalf("expected keyword rule to fire, got %v", result.FiredRuleIDs)
	}
}

func TestKeywordMatchScansDescription(t *testing.T) {
	task := makeTask("t1", "Weekly errand", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	task.Description = "Pick up the URGENT package"
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "urgent", models.ActionSetPriority, "high"),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerKeywordMatch, &task, testNow)

	if len(result.FiredRuleIDs) != 1 {
		t.Fatalf("expected description match to fire, got %v", result.FiredRuleIDs)
	}
	if result.UpdatedTasks[0].Priority != models.PriorityHigh {
		t.Fatalf("expected priority high, got %s", result.UpdatedTasks[0].Priority)
	}
}

func TestKeywordMatchRequiresCondition(t *testing.T) {
	task := makeTask("t1", "anything", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "", models.ActionNotify, ""),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerKeywordMatch, &task, testNow)

	if len(result.FiredRuleIDs) != 0 {
		t.Fatalf("keyword rule with empty condition fired: %v", result.FiredRuleIDs)
	}
}

func TestOnCompleteRequiresCompletedStatus(t *testing.T) {
	rules := []models.AutomationRule{makeRule("r1", models.TriggerOnComplete, "", models.ActionNotify, "")}

	pending := makeTask("t1", "Ship release", models.TaskStatusPending, models.PriorityMedium, testNow.Add(time.Hour))
	result := seqEngine().Evaluate([]models.Task{pending}, rules, models.TriggerOnComplete, &pending, testNow)
	if len(result.FiredRuleIDs) != 0 {
		t.Fatalf("ON_COMPLETE fired for pending task")
	}

	completed := pending
	completed.Status = models.TaskStatusCompleted
	result = seqEngine().Evaluate([]models.Task{completed}, rules, models.TriggerOnComplete, &completed, testNow)
	if len(result.FiredRuleIDs) != 1 {
		t.Fatalf("ON_COMPLETE did not fire for completed task")
	}
}

func TestOnOverdueFiresOncePerCall(t *testing.T) {
	rules := []models.AutomationRule{makeRule("r1", models.TriggerOnOverdue, "", models.ActionNotify, "")}

	for _, overdueCount := range []int{1, 3} {
		var tasks []models.Task
		for i := 0; i < overdueCount; i++ {
			tasks = append(tasks, makeTask(fmt.Sprintf("t%d", i), fmt.Sprintf("Task %d", i),
				models.TaskStatusPending, models.PriorityLow, testNow.Add(-time.Hour)))
		}

		result := seqEngine().Evaluate(tasks, rules, models.TriggerOnOverdue, nil, testNow)

		if len(result.NewNotifications) != 1 {
			t.Errorf("%d overdue tasks: expected exactly 1 notification, got %d",
				overdueCount, len(result.NewNotifications))
		}
		if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
			t.Errorf("%d overdue tasks: expected r1 to fire exactly once, got %v",
				overdueCount, result.FiredRuleIDs)
		}
	}
}

func TestOnOverdueIgnoresCompletedAndFutureTasks(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Done late", models.TaskStatusCompleted, models.PriorityLow, testNow.Add(-time.Hour)),
		makeTask("t2", "Not due yet", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour)),
	}
	rules := []models.AutomationRule{makeRule("r1", models.TriggerOnOverdue, "", models.ActionNotify, "")}

	result := seqEngine().Evaluate(tasks, rules, models.TriggerOnOverdue, nil, testNow)

	if len(result.FiredRuleIDs) != 0 {
		t.Fatalf("ON_OVERDUE fired without overdue tasks: %v", result.FiredRuleIDs)
	}
}

func TestOnOverdueTargetsFirstOverdueInOrder(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Not overdue", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour)),
		makeTask("t2", "First overdue", models.TaskStatusPending, models.PriorityLow, testNow.Add(-2*time.Hour)),
		makeTask("t3", "Second overdue", models.TaskStatusPending, models.PriorityLow, testNow.Add(-time.Hour)),
	}
	rules := []models.AutomationRule{makeRule("r1", models.TriggerOnOverdue, "", models.ActionNotify, "")}

	result := seqEngine().Evaluate(tasks, rules, models.TriggerOnOverdue, nil, testNow)

	want := "Rule triggered by task: First overdue"
	if got := result.NewNotifications[0].Message; got != want {
		t.Fatalf("expected message %q, got %q", want, got)
	}
}

func TestSetPriorityAction(t *testing.T) {
	task := makeTask("t1", "Call the Client", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	task.Category = "work"
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "Client", models.ActionSetPriority, "high"),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerKeywordMatch, &task, testNow)

	if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
		t.Fatalf("expected r1 to fire, got %v", result.FiredRuleIDs)
	}
	if len(result.NewNotifications) != 0 {
		t.Fatalf("SET_PRIORITY produced notifications: %v", result.NewNotifications)
	}
	got := result.UpdatedTasks[0]
	want := task
	want.Priority = models.PriorityHigh
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected only priority to change:\n got %+v\nwant %+v", got, want)
	}
}

func TestSetPriorityWithEmptyTargetIsInert(t *testing.T) {
	task := makeTask("t1", "Call the Client", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "client", models.ActionSetPriority, ""),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerKeywordMatch, &task, testNow)

	// The rule still fires; the action degrades to a no-op.
	if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
		t.Fatalf("expected r1 to fire, got %v", result.FiredRuleIDs)
	}
	if result.UpdatedTasks[0].Priority != models.PriorityLow {
		t.Fatalf("priority changed despite empty action target")
	}
}

func TestDeleteAction(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Spam reminder", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour)),
		makeTask("t2", "Keep me", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour)),
	}
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "spam", models.ActionDelete, ""),
	}

	result := seqEngine().Evaluate(tasks, rules, models.TriggerKeywordMatch, &tasks[0], testNow)

	if len(result.UpdatedTasks) != len(tasks)-1 {
		t.Fatalf("expected collection length %d, got %d", len(tasks)-1, len(result.UpdatedTasks))
	}
	for _, task := range result.UpdatedTasks {
		if task.ID == "t1" {
			t.Fatalf("deleted task still present")
		}
	}
}

func TestDeleteIsVisibleToLaterOverdueRescan(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Only overdue task", models.TaskStatusPending, models.PriorityLow, testNow.Add(-time.Hour)),
	}
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerOnOverdue, "", models.ActionDelete, ""),
		makeRule("r2", models.TriggerOnOverdue, "", models.ActionNotify, ""),
	}

	result := seqEngine().Evaluate(tasks, rules, models.TriggerOnOverdue, nil, testNow)

	// r1 deletes the only overdue task; r2 rescans the working copy and
	// finds nothing left to fire on.
	if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
		t.Fatalf("expected only r1 to fire, got %v", result.FiredRuleIDs)
	}
	if len(result.UpdatedTasks) != 0 {
		t.Fatalf("expected empty task collection, got %d tasks", len(result.UpdatedTasks))
	}
	if len(result.NewNotifications) != 0 {
		t.Fatalf("r2 produced a notification after its target was deleted")
	}
}

func TestAssignUserIsRecordedButInert(t *testing.T) {
	task := makeTask("t1", "Handover doc", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerOnCreate, "", models.ActionAssignUser, "teammate"),
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerOnCreate, &task, testNow)

	if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
		t.Fatalf("expected r1 to fire, got %v", result.FiredRuleIDs)
	}
	if len(result.NewNotifications) != 0 {
		t.Fatalf("ASSIGN_USER produced notifications")
	}
	if !reflect.DeepEqual(result.UpdatedTasks, []models.Task{task}) {
		t.Fatalf("ASSIGN_USER mutated tasks")
	}
}

func TestNotificationFields(t *testing.T) {
	task := makeTask("t1", "Call the Client", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		{
			ID:               "r1",
			Name:             "Client alert",
			TriggerType:      models.TriggerKeywordMatch,
			TriggerCondition: "client",
			ActionType:       models.ActionNotify,
			ActionTarget:     "A client task arrived",
			Active:           true,
		},
	}

	result := seqEngine().Evaluate([]models.Task{task}, rules, models.TriggerKeywordMatch, &task, testNow)

	n := result.NewNotifications[0]
	if n.ID != "notif-1" {
		t.Errorf("expected injected ID, got %q", n.ID)
	}
	if n.Type != models.NotificationTypeAutomation {
		t.Errorf("expected automation type, got %q", n.Type)
	}
	if n.Source != models.NotificationSourceAutomation {
		t.Errorf("expected source %q, got %q", models.NotificationSourceAutomation, n.Source)
	}
	if n.Title != "Automation: Client alert" {
		t.Errorf("unexpected title %q", n.Title)
	}
	if n.Message != "A client task arrived" {
		t.Errorf("expected actionTarget message, got %q", n.Message)
	}
	if !n.Timestamp.Equal(testNow) {
		t.Errorf("expected timestamp %v, got %v", testNow, n.Timestamp)
	}
	if n.Read {
		t.Errorf("notification created already read")
	}
	if n.Priority != models.NotificationPriorityNormal {
		t.Errorf("expected normal priority, got %q", n.Priority)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Overdue invoice", models.TaskStatusPending, models.PriorityLow, testNow.Add(-time.Hour)),
		makeTask("t2", "Future work", models.TaskStatusInProgress, models.PriorityMedium, testNow.Add(time.Hour)),
	}
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerOnOverdue, "", models.ActionNotify, ""),
		makeRule("r2", models.TriggerOnOverdue, "", models.ActionSetPriority, "high"),
	}

	first := seqEngine().Evaluate(tasks, rules, models.TriggerOnOverdue, nil, testNow)
	second := seqEngine().Evaluate(tasks, rules, models.TriggerOnOverdue, nil, testNow)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different outputs:\n first %+v\nsecond %+v", first, second)
	}
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Spam", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour)),
		makeTask("t2", "Client call", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour)),
	}
	snapshot := append([]models.Task(nil), tasks...)
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "spam", models.ActionDelete, ""),
	}

	seqEngine().Evaluate(tasks, rules, models.TriggerKeywordMatch, &tasks[0], testNow)

	if !reflect.DeepEqual(tasks, snapshot) {
		t.Fatalf("input task slice was mutated")
	}
}

// TestChainedPasses verifies the caller-side chaining contract: feeding one
// pass's updated tasks into the next pass accumulates both passes' effects.
func TestChainedPasses(t *testing.T) {
	task := makeTask("t1", "Call the Client", models.TaskStatusPending, models.PriorityLow, testNow.Add(time.Hour))
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerOnCreate, "", models.ActionNotify, "task captured"),
		makeRule("r2", models.TriggerKeywordMatch, "client", models.ActionSetPriority, "high"),
	}

	engine := seqEngine()
	createPass := engine.Evaluate([]models.Task{task}, rules, models.TriggerOnCreate, &task, testNow)
	keywordPass := engine.Evaluate(createPass.UpdatedTasks, rules, models.TriggerKeywordMatch, &task, testNow)

	fired := append(append([]string(nil), createPass.FiredRuleIDs...), keywordPass.FiredRuleIDs...)
	if !reflect.DeepEqual(fired, []string{"r1", "r2"}) {
		t.Fatalf("expected r1 then r2 across passes, got %v", fired)
	}
	notifications := len(createPass.NewNotifications) + len(keywordPass.NewNotifications)
	if notifications != 1 {
		t.Fatalf("expected 1 notification across passes, got %d", notifications)
	}
	if keywordPass.UpdatedTasks[0].Priority != models.PriorityHigh {
		t.Fatalf("keyword pass did not see create pass's task collection")
	}
}

// TestExampleScenario is the worked example from the product brief.
func TestExampleScenario(t *testing.T) {
	tasks := []models.Task{
		makeTask("t1", "Call the Client", models.TaskStatusPending, models.PriorityLow, testNow.Add(24*time.Hour)),
	}
	rules := []models.AutomationRule{
		makeRule("r1", models.TriggerKeywordMatch, "Client", models.ActionSetPriority, "high"),
	}

	result := seqEngine().Evaluate(tasks, rules, models.TriggerKeywordMatch, &tasks[0], testNow)

	if len(result.UpdatedTasks) != 1 || result.UpdatedTasks[0].Priority != models.PriorityHigh {
		t.Fatalf("expected t1 promoted to high, got %+v", result.UpdatedTasks)
	}
	if len(result.NewNotifications) != 0 {
		t.Fatalf("expected no notifications, got %d", len(result.NewNotifications))
	}
	if !reflect.DeepEqual(result.FiredRuleIDs, []string{"r1"}) {
		t.Fatalf("expected fired rules {r1}, got %v", result.FiredRuleIDs)
	}
}
