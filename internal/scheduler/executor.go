// Package scheduler runs condition-triggered tasks against captured frames on
// a single cooperative worker.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/logging"
	"github.com/aristath/taskloop/internal/metrics"
	"github.com/aristath/taskloop/internal/persistence"
)

// RunRecorder journals finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run persistence.Run) error
}

// Config wires an Executor to its collaborators. Only Source is required.
type Config struct {
	Source capture.Source
	// Interaction gates capture and sleeping. A nil Interaction keeps every
	// suspension point blocked.
	Interaction capture.Interaction
	Events      events.Publisher
	Logger      *slog.Logger
	Metrics     *metrics.ExecutorMetrics
	History     RunRecorder
	SessionID   string // Journal session the runs belong to
	Options     Options
}

// Executor owns the task registry and the worker loop.
type Executor struct {
	opts        Options
	source      capture.Source
	interaction capture.Interaction
	bus         events.Publisher
	logger      *slog.Logger
	metrics     *metrics.ExecutorMetrics
	history     RunRecorder
	sessionID   string

	session *Session

	regMu      sync.RWMutex
	byName     map[string]*Task
	oneTime    []*Task
	continuous []*Task

	lifeMu  sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	notPermitted rate.Sometimes
}

// New creates an executor in the paused state.
func New(cfg Config) (*Executor, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("executor requires a capture source")
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Options == (Options{}) {
		cfg.Options = DefaultOptions()
	}

	return &Executor{
		opts:         cfg.Options.normalized(),
		source:       cfg.Source,
		interaction:  cfg.Interaction,
		bus:          cfg.Events,
		logger:       cfg.Logger.With("component", "executor"),
		metrics:      cfg.Metrics,
		history:      cfg.History,
		sessionID:    cfg.SessionID,
		session:      newSession(),
		byName:       make(map[string]*Task),
		done:         make(chan struct{}),
		notPermitted: rate.Sometimes{Interval: 5 * time.Second},
	}, nil
}

// Options returns the effective timings.
func (e *Executor) Options() Options { return e.opts }

// Register adds a task. Names must be unique across both kinds.
func (e *Executor) Register(t *Task) error {
	e.regMu.Lock()
	defer e.regMu.Unlock()

	if _, exists := e.byName[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name())
	}
	e.byName[t.Name()] = t
	if t.Kind() == Continuous {
		e.continuous = append(e.continuous, t)
	} else {
		e.oneTime = append(e.oneTime, t)
	}
	e.publishTask(t, 0)
	return nil
}

// Tasks returns all tasks, OneTime tasks first, each group in registration order.
func (e *Executor) Tasks() []*Task {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	all := make([]*Task, 0, len(e.oneTime)+len(e.continuous))
	all = append(all, e.oneTime...)
	return append(all, e.continuous...)
}

// TaskByName looks a task up by name.
func (e *Executor) TaskByName(name string) (*Task, bool) {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	t, ok := e.byName[name]
	return t, ok
}

// ActiveContinuousCount returns how many Continuous tasks are enabled.
func (e *Executor) ActiveContinuousCount() int {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	n := 0
	for _, t := range e.continuous {
		if t.Enabled() {
			n++
		}
	}
	return n
}

func (e *Executor) snapshot() (oneTime, continuous []*Task) {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	return e.oneTime, e.continuous
}

// Current returns the task bound to the worker, or nil.
func (e *Executor) Current() *Task {
	return e.session.currentTask()
}

// Paused reports the global pause flag.
func (e *Executor) Paused() bool {
	return e.session.isPaused()
}

// Connected reports whether the source is connected. Sources without a
// connection concept are always connected.
func (e *Executor) Connected() bool {
	if c, ok := e.source.(capture.Connector); ok {
		return c.Connected()
	}
	return true
}

// Run is the worker loop. It blocks until ctx is cancelled or Stop is
// called, then calls OnDestroy on every task and returns.
func (e *Executor) Run(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.started {
		e.lifeMu.Unlock()
		return ErrAlreadyRunning
	}
	e.started = true
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	if e.stopped {
		cancel()
	}
	e.lifeMu.Unlock()

	defer close(e.done)
	defer cancel()

	e.logger.Info("executor started", "poll_interval", e.opts.PollInterval, "debug", e.opts.Debug)
	e.loop(ctx)
	e.logger.Debug("exit signal set, destroying all tasks")
	e.destroyAll()
	e.logger.Info("executor stopped")
	return nil
}

// Stop asserts the exit signal. The worker unwinds at its next suspension point.
func (e *Executor) Stop() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	e.logger.Info("stop requested")
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until Run has returned.
func (e *Executor) Wait() {
	<-e.done
}

// Done is closed when Run returns.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

func (e *Executor) destroyAll() {
	for _, t := range e.Tasks() {
		if err := t.destroy(); err != nil {
			e.logger.Error("task destroy failed", "task", t.Name(), "error", err)
		}
	}
}

func (e *Executor) publishTask(t *Task, d time.Duration) {
	e.bus.Publish(events.TaskStateEvent{
		Name:      t.Name(),
		Kind:      t.Kind().String(),
		Enabled:   t.Enabled(),
		Running:   t.Running(),
		Paused:    t.Paused(),
		Duration:  d,
		Timestamp: time.Now(),
	})
}

func (e *Executor) publishCurrent(name string) {
	e.bus.Publish(events.CurrentTaskEvent{Name: name, Timestamp: time.Now()})
}
