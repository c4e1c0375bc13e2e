package services

import (
	"time"

	"flowpilot/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

const statsCacheKey = "user_stats"

// StatsService computes dashboard statistics from the task collection.
// Results are cached briefly; the dashboard polls faster than stats change.
type StatsService struct {
	tasks *TaskService
	cache *gocache.Cache
}

// NewStatsService creates a new stats service
func NewStatsService(tasks *TaskService) *StatsService {
	return &StatsService{
		tasks: tasks,
		cache: gocache.New(15*time.Second, time.Minute),
	}
}

// Get returns the current stats, serving from cache when fresh
func (s *StatsService) Get() (*models.UserStats, error) {
	if cached, found := s.cache.Get(statsCacheKey); found {
		stats := cached.(models.UserStats)
		return &stats, nil
	}

	tasks, err := s.tasks.GetAll()
	if err != nil {
		return nil, err
	}

	stats := computeStats(tasks, time.Now())
	s.cache.Set(statsCacheKey, stats, gocache.DefaultExpiration)
	return &stats, nil
}

// Invalidate drops the cached stats. Called after task mutations.
func (s *StatsService) Invalidate() {
	s.cache.Delete(statsCacheKey)
}

func computeStats(tasks []models.Task, now time.Time) models.UserStats {
	var stats models.UserStats
	var completed int

	year, month, day := now.Date()
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusPending:
			stats.PendingTasks++
			if t.Priority == models.PriorityHigh {
				stats.HighPriority++
			}
		case models.TaskStatusCompleted:
			completed++
			y, m, d := t.DueDate.In(now.Location()).Date()
			if y == year && m == month && d == day {
				stats.CompletedToday++
			}
		}
	}

	if len(tasks) > 0 {
		stats.ProductivityScore = completed * 100 / len(tasks)
	}
	stats.Streak = streakDays(tasks, now)

	return stats
}

// streakDays counts consecutive days, ending today, with at least one
// completed task. Completion history is approximated by due dates until a
// dedicated history table exists.
func streakDays(tasks []models.Task, now time.Time) int {
	days := make(map[string]bool)
	for _, t := range tasks {
		if t.Status == models.TaskStatusCompleted {
			days[t.DueDate.In(now.Location()).Format("2006-01-02")] = true
		}
	}

	streak := 0
	for d := now; days[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}
