package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const overdueLockKey = "flowpilot:overdue_check_lock"

// SchedulerService runs the recurring overdue evaluation. By default it
// ticks on a fixed interval; a cron expression switches it to calendar-based
// scheduling. When Redis is configured, a short-lived lock keeps multiple
// instances from running the same tick.
type SchedulerService struct {
	scheduler  gocron.Scheduler
	automation *AutomationService
	redis      *RedisService // Optional
	instanceID string
	job        gocron.Job
}

// NewSchedulerService creates the scheduler. cronExpr is optional; when set
// it is validated with the standard 5-field cron parser and used instead of
// interval. redisService may be nil.
func NewSchedulerService(automationService *AutomationService, redisService *RedisService, interval time.Duration, cronExpr string) (*SchedulerService, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &SchedulerService{
		scheduler:  scheduler,
		automation: automationService,
		redis:      redisService,
		instanceID: uuid.New().String(),
	}

	var definition gocron.JobDefinition
	if cronExpr != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cronExpr); err != nil {
			return nil, fmt.Errorf("invalid overdue check cron expression %q: %w", cronExpr, err)
		}
		definition = gocron.CronJob(cronExpr, false)
	} else {
		definition = gocron.DurationJob(interval)
	}

	job, err := scheduler.NewJob(
		definition,
		gocron.NewTask(s.tick),
		gocron.WithName("overdue_check"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule overdue check: %w", err)
	}
	s.job = job

	return s, nil
}

// Start begins the recurring overdue checks
func (s *SchedulerService) Start() {
	s.scheduler.Start()
	log.Println("⏰ Overdue check scheduler started")
}

// Stop shuts the scheduler down
func (s *SchedulerService) Stop() error {
	log.Println("⏹️ Stopping overdue check scheduler...")
	return s.scheduler.Shutdown()
}

// NextRun returns the next scheduled overdue check time
func (s *SchedulerService) NextRun() time.Time {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}
	}
	return next
}

// tick runs one overdue evaluation, holding the cross-instance lock when
// Redis is available.
func (s *SchedulerService) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.redis != nil {
		acquired, err := s.redis.AcquireLock(ctx, overdueLockKey, s.instanceID, 30*time.Second)
		if err != nil {
			log.Printf("⚠️ Overdue check lock error: %v", err)
		} else if !acquired {
			// Another instance owns this tick
			return
		} else {
			defer func() {
				if _, err := s.redis.ReleaseLock(ctx, overdueLockKey, s.instanceID); err != nil {
					log.Printf("⚠️ Failed to release overdue check lock: %v", err)
				}
			}()
		}
	}

	outcome, err := s.automation.RunOverdueCheck(ctx)
	if err != nil {
		log.Printf("❌ Overdue check failed: %v", err)
		return
	}

	if len(outcome.FiredRuleIDs) > 0 {
		log.Printf("⏰ Overdue check fired %d rules, produced %d notifications",
			len(outcome.FiredRuleIDs), len(outcome.Notifications))
	}
}
