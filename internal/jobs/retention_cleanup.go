package jobs

import (
	"context"
	"log"
	"time"

	"flowpilot/internal/services"
)

// RetentionCleanupJob deletes read notifications older than the retention
// window. Unread notifications are kept regardless of age.
type RetentionCleanupJob struct {
	notifications *services.NotificationService
	retentionDays int
}

// NewRetentionCleanupJob creates a new retention cleanup job
func NewRetentionCleanupJob(notifications *services.NotificationService, retentionDays int) *RetentionCleanupJob {
	if retentionDays <= 0 {
		retentionDays = 30
	}

	return &RetentionCleanupJob{
		notifications: notifications,
		retentionDays: retentionDays,
	}
}

// Run purges read notifications past the retention window
func (j *RetentionCleanupJob) Run(ctx context.Context) error {
	log.Println("🧹 [RETENTION] Starting notification retention cleanup...")

	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.notifications.PurgeRead(cutoff)
	if err != nil {
		log.Printf("❌ [RETENTION] Cleanup failed: %v", err)
		return err
	}

	log.Printf("🧹 [RETENTION] Deleted %d notifications older than %d days", deleted, j.retentionDays)
	return nil
}

// GetNextRunTime schedules the cleanup daily at 02:00 UTC
func (j *RetentionCleanupJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
