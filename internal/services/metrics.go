package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Automation metrics
	RulesFired           *prometheus.CounterVec
	NotificationsCreated prometheus.Counter
	TasksMutated         *prometheus.CounterVec
	EvaluationLatency    prometheus.Histogram
	OverdueTasks         prometheus.Gauge

	// Connection manager reference for dynamic metrics
	connManager *ConnectionManager
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(connManager *ConnectionManager) *Metrics {
	metrics := &Metrics{
		connManager: connManager,

		// Rule firings by trigger and action type
		RulesFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowpilot_rules_fired_total",
			Help: "Total number of automation rule firings by trigger and action type",
		}, []string{"trigger", "action"}),

		// Engine-produced notifications
		NotificationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flowpilot_notifications_created_total",
			Help: "Total number of notifications produced by the automation engine",
		}),

		// Task mutations applied from engine results (set_priority, delete)
		TasksMutated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowpilot_tasks_mutated_total",
			Help: "Total number of task mutations applied from automation results",
		}, []string{"mutation"}),

		// Full trigger-event latency: evaluate plus store writes
		EvaluationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowpilot_automation_duration_seconds",
			Help:    "Automation evaluation and apply latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		// Overdue task count observed by the last periodic check
		OverdueTasks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "flowpilot_overdue_tasks",
			Help: "Number of overdue tasks seen by the most recent overdue check",
		}),
	}

	// Register a collector that reports live connections from the manager
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "flowpilot_websocket_connections_current",
			Help: "Current number of active notification stream connections",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordRuleFired records a rule firing
func (m *Metrics) RecordRuleFired(trigger, action string) {
	m.RulesFired.WithLabelValues(trigger, action).Inc()
}

// RecordNotifications records engine-produced notifications
func (m *Metrics) RecordNotifications(count int) {
	m.NotificationsCreated.Add(float64(count))
}

// RecordTaskMutation records an applied task mutation
func (m *Metrics) RecordTaskMutation(mutation string) {
	m.TasksMutated.WithLabelValues(mutation).Inc()
}

// RecordEvaluationLatency records trigger-event processing latency
func (m *Metrics) RecordEvaluationLatency(seconds float64) {
	m.EvaluationLatency.Observe(seconds)
}

// RecordOverdueTasks records the overdue count from a periodic check
func (m *Metrics) RecordOverdueTasks(count int) {
	m.OverdueTasks.Set(float64(count))
}
