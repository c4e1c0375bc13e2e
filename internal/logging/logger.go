package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithTrigger returns a logger with automation trigger context attached.
// Use this for all logging within an evaluation pass.
func WithTrigger(trigger, contextTaskID string) *slog.Logger {
	return slog.With(
		"trigger", trigger,
		"context_task_id", contextTaskID,
	)
}

// WithRule returns a logger scoped to a specific rule firing.
func WithRule(logger *slog.Logger, ruleID, ruleName, actionType string) *slog.Logger {
	return logger.With(
		"rule_id", ruleID,
		"rule_name", ruleName,
		"action_type", actionType,
	)
}
