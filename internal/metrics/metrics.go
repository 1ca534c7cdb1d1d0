// Package metrics holds the Prometheus instruments for the executor loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeDisabled  = "disabled"
	OutcomeFailed    = "failed"
	OutcomeFinished  = "finished"
)

// ExecutorMetrics holds all metrics for the executor loop.
// A nil *ExecutorMetrics is valid and records nothing.
type ExecutorMetrics struct {
	SleepSeconds     prometheus.Counter
	FrameAcquire     prometheus.Histogram
	DegenerateFrames prometheus.Counter
	TaskRuns         *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	Paused           prometheus.Gauge
	CurrentTask      *prometheus.GaugeVec
}

// New creates the executor metrics and registers them with reg.
func New(reg prometheus.Registerer) (*ExecutorMetrics, error) {
	m := &ExecutorMetrics{
		SleepSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskloop",
			Subsystem: "executor",
			Name:      "sleep_seconds_total",
			Help:      "Total requested sleep time in seconds",
		}),
		FrameAcquire: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskloop",
			Subsystem: "executor",
			Name:      "frame_acquire_seconds",
			Help:      "Time from cache reset to a usable frame",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		}),
		DegenerateFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskloop",
			Subsystem: "executor",
			Name:      "degenerate_frames_total",
			Help:      "Captured frames discarded for a zero dimension",
		}),
		TaskRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskloop",
				Subsystem: "executor",
				Name:      "task_runs_total",
				Help:      "Task runs by outcome",
			},
			[]string{"task", "outcome"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskloop",
				Subsystem: "executor",
				Name:      "task_run_seconds",
				Help:      "Duration of task runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"task"},
		),
		Paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskloop",
			Subsystem: "executor",
			Name:      "paused",
			Help:      "1 while the executor is globally paused",
		}),
		CurrentTask: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskloop",
				Subsystem: "executor",
				Name:      "current_task",
				Help:      "1 for the task currently bound to the worker",
			},
			[]string{"task"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.SleepSeconds,
		m.FrameAcquire,
		m.DegenerateFrames,
		m.TaskRuns,
		m.TaskDuration,
		m.Paused,
		m.CurrentTask,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddSleep records a requested sleep.
func (m *ExecutorMetrics) AddSleep(d time.Duration) {
	if m == nil {
		return
	}
	m.SleepSeconds.Add(d.Seconds())
}

// ObserveFrame records how long a frame acquisition took.
func (m *ExecutorMetrics) ObserveFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.FrameAcquire.Observe(d.Seconds())
}

// IncDegenerate counts a discarded zero-size frame.
func (m *ExecutorMetrics) IncDegenerate() {
	if m == nil {
		return
	}
	m.DegenerateFrames.Inc()
}

// ObserveRun records the outcome and duration of a task run.
func (m *ExecutorMetrics) ObserveRun(task, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TaskRuns.WithLabelValues(task, outcome).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}

// SetPaused mirrors the global pause flag.
func (m *ExecutorMetrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.Paused.Set(1)
	} else {
		m.Paused.Set(0)
	}
}

// SetCurrent marks task as bound (or unbound).
func (m *ExecutorMetrics) SetCurrent(task string, bound bool) {
	if m == nil || task == "" {
		return
	}
	if bound {
		m.CurrentTask.WithLabelValues(task).Set(1)
	} else {
		m.CurrentTask.WithLabelValues(task).Set(0)
	}
}

// Handler exposes the metrics gathered by g over HTTP.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
