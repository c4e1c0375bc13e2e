package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"flowpilot/internal/database"
	"flowpilot/internal/models"
)

// SettingsService handles persisted user preferences
type SettingsService struct {
	db *database.DB
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *database.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns a setting value, or the default when unset
func (s *SettingsService) Get(key, defaultValue string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT setting_value FROM settings WHERE setting_key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a setting value
func (s *SettingsService) Set(key, value string) error {
	now := time.Now().UTC()
	result, err := s.db.Exec("UPDATE settings SET setting_value = ?, updated_at = ? WHERE setting_key = ?",
		value, now, key)
	if err != nil {
		return fmt.Errorf("failed to update setting %s: %w", key, err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.db.Exec("INSERT INTO settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?)",
		key, value, now)
	if err != nil {
		return fmt.Errorf("failed to insert setting %s: %w", key, err)
	}
	return nil
}

// SoundEnabled reports whether notification sound cues are enabled.
// Defaults to true; malformed stored values fall back to the default.
func (s *SettingsService) SoundEnabled() bool {
	value, err := s.Get(models.SettingKeySoundEnabled, "true")
	if err != nil {
		return true
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return enabled
}

// SetSoundEnabled persists the sound cue preference
func (s *SettingsService) SetSoundEnabled(enabled bool) error {
	return s.Set(models.SettingKeySoundEnabled, strconv.FormatBool(enabled))
}
