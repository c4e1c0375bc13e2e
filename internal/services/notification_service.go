package services

import (
	"database/sql"
	"fmt"
	"time"

	"flowpilot/internal/database"
	"flowpilot/internal/models"
)

// NotificationService handles notification storage
type NotificationService struct {
	db *database.DB
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *database.DB) *NotificationService {
	return &NotificationService{db: db}
}

// GetAll returns notifications, newest first
func (s *NotificationService) GetAll(limit int) ([]models.AppNotification, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, type, source, title, message, created_at, is_read, priority
		FROM notifications
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.AppNotification
	for rows.Next() {
		var n models.AppNotification
		var priority sql.NullString
		if err := rows.Scan(&n.ID, &n.Type, &n.Source, &n.Title, &n.Message, &n.Timestamp, &n.Read, &priority); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if priority.Valid {
			n.Priority = priority.String
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// Insert persists a batch of engine-produced notifications
func (s *NotificationService) Insert(notifications []models.AppNotification) error {
	for _, n := range notifications {
		_, err := s.db.Exec(`
			INSERT INTO notifications (id, type, source, title, message, created_at, is_read, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, n.ID, n.Type, n.Source, n.Title, n.Message, n.Timestamp.UTC(), n.Read, nullable(n.Priority))
		if err != nil {
			return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
		}
	}
	return nil
}

// MarkRead marks a single notification as read
func (s *NotificationService) MarkRead(id string) error {
	result, err := s.db.Exec("UPDATE notifications SET is_read = TRUE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// MarkAllRead marks every notification as read
func (s *NotificationService) MarkAllRead() error {
	if _, err := s.db.Exec("UPDATE notifications SET is_read = TRUE WHERE is_read = FALSE"); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification by ID
func (s *NotificationService) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// PurgeRead deletes read notifications created before the cutoff and returns
// how many were removed. Called by the retention cleanup job.
func (s *NotificationService) PurgeRead(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM notifications WHERE is_read = TRUE AND created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
