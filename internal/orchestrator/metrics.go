package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	runs         *prometheus.CounterVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	failures     *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "workflow_runs_total",
			Help:      "Workflow runs by mode and outcome.",
		}, []string{"mode", "status"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "workflow_steps_total",
			Help:      "Agent steps by agent and outcome.",
		}, []string{"agent", "status"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "conductor",
			Name:      "agent_call_duration_seconds",
			Help:      "Latency of agent calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"agent"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "agent_call_failures_total",
			Help:      "Failed agent calls by agent and failure class.",
		}, []string{"agent", "reason"}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "tool_calls_total",
			Help:      "Tool calls found in agent output, by tool and outcome.",
		}, []string{"tool", "status"}),
	}
}

func (m *Metrics) observeRun(mode Mode, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(mode), status).Inc()
}

func (m *Metrics) observeStep(agent string, status StepStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(agent, string(status)).Inc()
	m.stepDuration.WithLabelValues(agent).Observe(d.Seconds())
}

func (m *Metrics) observeFailure(agent, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(agent, reason).Inc()
}

func (m *Metrics) observeTool(tool string, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}
