package models

// UserStats summarizes the task collection for the dashboard
type UserStats struct {
	PendingTasks      int `json:"pendingTasks"`
	CompletedToday    int `json:"completedToday"`
	HighPriority      int `json:"highPriority"`
	ProductivityScore int `json:"productivityScore"`
	Streak            int `json:"streak"`
}

// Settings keys stored in the settings table
const (
	SettingKeySoundEnabled = "preferences.sound_enabled"
)

// Setting represents a system-wide configuration setting
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}
