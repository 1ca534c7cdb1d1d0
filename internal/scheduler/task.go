package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/taskloop/internal/capture"
)

// Kind decides how a task is selected and whether it re-arms after a run.
type Kind int

const (
	OneTime    Kind = iota // Runs once when enabled, then disables itself
	Continuous             // Evaluated every cycle, may fire repeatedly
)

func (k Kind) String() string {
	switch k {
	case OneTime:
		return "onetime"
	case Continuous:
		return "continuous"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handler is the behavior of a task.
type Handler interface {
	// ShouldTrigger is evaluated against the current frame. It must not block.
	ShouldTrigger(ctx context.Context, frame *capture.Frame) (bool, error)

	// Run is the task body. It suspends only through the executor's
	// Sleep, WaitCondition, Frame, and NextFrame.
	Run(ctx context.Context, e *Executor) error
}

// Destroyer is implemented by handlers that hold resources until shutdown.
type Destroyer interface {
	OnDestroy()
}

// Funcs adapts plain functions to Handler. A nil Trigger always fires.
type Funcs struct {
	Trigger func(ctx context.Context, frame *capture.Frame) (bool, error)
	Body    func(ctx context.Context, e *Executor) error
	Destroy func()
}

func (f Funcs) ShouldTrigger(ctx context.Context, frame *capture.Frame) (bool, error) {
	if f.Trigger == nil {
		return true, nil
	}
	return f.Trigger(ctx, frame)
}

func (f Funcs) Run(ctx context.Context, e *Executor) error {
	if f.Body == nil {
		return nil
	}
	return f.Body(ctx, e)
}

func (f Funcs) OnDestroy() {
	if f.Destroy != nil {
		f.Destroy()
	}
}

// Task is a named unit of work owned by an Executor.
// The flags may be flipped from any goroutine.
type Task struct {
	name    string
	kind    Kind
	handler Handler

	enabled   atomic.Bool
	running   atomic.Bool
	paused    atomic.Bool
	startTime atomic.Int64 // UnixNano of the last run start

	destroyOnce sync.Once
}

// NewTask creates an enabled task.
func NewTask(name string, kind Kind, h Handler) *Task {
	t := &Task{name: name, kind: kind, handler: h}
	t.enabled.Store(true)
	return t
}

func (t *Task) Name() string { return t.name }
func (t *Task) Kind() Kind   { return t.kind }

// Handler returns the behavior the task was built with.
func (t *Task) Handler() Handler { return t.handler }

func (t *Task) Enabled() bool { return t.enabled.Load() }
func (t *Task) Enable()       { t.enabled.Store(true) }

// Disable stops the task from being selected. A running body notices at its
// next suspension point and unwinds with ErrTaskDisabled.
func (t *Task) Disable() { t.enabled.Store(false) }

func (t *Task) Running() bool { return t.running.Load() }
func (t *Task) Paused() bool  { return t.paused.Load() }
func (t *Task) Pause()        { t.paused.Store(true) }
func (t *Task) Unpause()      { t.paused.Store(false) }

// StartTime returns when the task last started running, or the zero time.
func (t *Task) StartTime() time.Time {
	ns := t.startTime.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ShouldTrigger evaluates the handler's predicate, converting a panic into an error.
func (t *Task) ShouldTrigger(ctx context.Context, frame *capture.Frame) (ok bool, err error) {
	defer t.recoverInto(&err)
	return t.handler.ShouldTrigger(ctx, frame)
}

// Trigger is the authoritative check made right before a run: a OneTime task
// fires whenever it is enabled, a Continuous task also needs its predicate to hold.
func (t *Task) Trigger(ctx context.Context, frame *capture.Frame) (bool, error) {
	if !t.Enabled() {
		return false, nil
	}
	if t.kind != Continuous {
		return true, nil
	}
	return t.ShouldTrigger(ctx, frame)
}

func (t *Task) run(ctx context.Context, e *Executor) (err error) {
	defer t.recoverInto(&err)
	return t.handler.Run(ctx, e)
}

// destroy calls the handler's OnDestroy at most once. It reports a panic
// from the hook instead of propagating it.
func (t *Task) destroy() (err error) {
	t.destroyOnce.Do(func() {
		d, ok := t.handler.(Destroyer)
		if !ok {
			return
		}
		defer t.recoverInto(&err)
		d.OnDestroy()
	})
	return err
}

func (t *Task) recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &PanicError{Task: t.name, Value: r, Stack: debug.Stack()}
	}
}

func (t *Task) String() string {
	return t.name
}
