package scheduler

import (
	"context"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/persistence"
)

// fakeInteraction is a switchable capture.Interaction.
type fakeInteraction struct {
	ok atomic.Bool
}

func newFakeInteraction() *fakeInteraction {
	f := &fakeInteraction{}
	f.ok.Store(true)
	return f
}

func (f *fakeInteraction) ShouldCapture() bool { return f.ok.Load() }

// fakeRecorder collects journaled runs.
type fakeRecorder struct {
	mu   sync.Mutex
	runs []persistence.Run
}

func (r *fakeRecorder) RecordRun(ctx context.Context, run persistence.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRecorder) Runs() []persistence.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]persistence.Run(nil), r.runs...)
}

// orderLog records task names in execution order.
type orderLog struct {
	mu    sync.Mutex
	names []string
}

func (l *orderLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *orderLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func testOptions() Options {
	return Options{
		PollInterval:      5 * time.Millisecond,
		FramePollInterval: time.Millisecond,
		PausedInterval:    10 * time.Millisecond,
		IdleInterval:      5 * time.Millisecond,
		StaleFrameAfter:   100 * time.Millisecond,
		WaitTimeout:       200 * time.Millisecond,
		WaitBeforeDelay:   0,
		WaitCheckDelay:    5 * time.Millisecond,
		ResolutionTimeout: 200 * time.Millisecond,
	}
}

type harness struct {
	exec        *Executor
	source      *capture.StaticSource
	interaction *fakeInteraction
	bus         *events.EventBus
	events      <-chan events.Event
	history     *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithOptions(t, testOptions())
}

func newHarnessWithOptions(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		source:      capture.NewStaticSource(capture.SolidFrame(16, 9, color.White)),
		interaction: newFakeInteraction(),
		bus:         events.NewEventBus(),
		history:     &fakeRecorder{},
	}
	h.events = h.bus.SubscribeAll(8192)
	t.Cleanup(h.bus.Close)

	exec, err := New(Config{
		Source:      h.source,
		Interaction: h.interaction,
		Events:      h.bus,
		History:     h.history,
		SessionID:   "test-session",
		Options:     opts,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.exec = exec
	return h
}

// run starts the worker and stops it at test cleanup.
func (h *harness) run(t *testing.T) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- h.exec.Run(context.Background()) }()
	t.Cleanup(func() {
		h.exec.Stop()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("executor did not stop")
		}
	})
}

// drain returns the events published so far.
func (h *harness) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func notifications(evs []events.Event) []events.NotificationEvent {
	var out []events.NotificationEvent
	for _, ev := range evs {
		if n, ok := ev.(events.NotificationEvent); ok {
			out = append(out, n)
		}
	}
	return out
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out: %s", msg)
}

func alwaysTask(name string, kind Kind, log *orderLog) *Task {
	return NewTask(name, kind, Funcs{
		Body: func(ctx context.Context, e *Executor) error {
			log.add(name)
			return nil
		},
	})
}
