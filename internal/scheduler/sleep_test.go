package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/taskloop/internal/events"
)

func TestSleep_NonPositiveReturnsImmediately(t *testing.T) {
	h := newHarness(t)
	// Executor is paused, but non-positive sleeps never block
	for _, d := range []time.Duration{0, -time.Second} {
		start := time.Now()
		if err := h.exec.Sleep(context.Background(), d); err != nil {
			t.Fatalf("Sleep(%v) = %v", d, err)
		}
		if time.Since(start) > 5*time.Millisecond {
			t.Errorf("Sleep(%v) blocked for %v", d, time.Since(start))
		}
	}
}

func TestSleep_ActiveTimeIsPauseInvariant(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	done := make(chan time.Duration, 1)
	start := time.Now()
	go func() {
		if err := h.exec.Sleep(context.Background(), 300*time.Millisecond); err != nil {
			t.Errorf("Sleep: %v", err)
		}
		done <- time.Since(start)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := h.exec.Pause(nil); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	h.exec.Start()

	select {
	case elapsed := <-done:
		// 300ms active + 200ms paused
		if elapsed < 480*time.Millisecond || elapsed > 700*time.Millisecond {
			t.Errorf("elapsed = %v, want about 500ms", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return")
	}
}

func TestSleep_PauseBeforeSleepDoesNotExtend(t *testing.T) {
	h := newHarness(t)
	// Paused since construction; the sleep starts later
	time.Sleep(100 * time.Millisecond)

	done := make(chan time.Duration, 1)
	go func() {
		start := time.Now()
		_ = h.exec.Sleep(context.Background(), 100*time.Millisecond)
		done <- time.Since(start)
	}()

	time.Sleep(50 * time.Millisecond)
	h.exec.Start()

	select {
	case elapsed := <-done:
		// 50ms blocked + 100ms active
		if elapsed < 140*time.Millisecond || elapsed > 300*time.Millisecond {
			t.Errorf("elapsed = %v, want about 150ms", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return")
	}
}

func TestSleep_DebugIgnoresPause(t *testing.T) {
	opts := testOptions()
	opts.Debug = true
	h := newHarnessWithOptions(t, opts)

	start := time.Now()
	if err := h.exec.Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Errorf("elapsed = %v, want about 20ms", elapsed)
	}
}

func TestSleep_ExitReturnsFinished(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.exec.Sleep(ctx, time.Hour) }()

	time.Sleep(20 * time.Millisecond)
	cancelled := time.Now()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrFinished) {
			t.Errorf("err = %v, want ErrFinished", err)
		}
		if lag := time.Since(cancelled); lag > 50*time.Millisecond {
			t.Errorf("exit took %v", lag)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not observe exit")
	}
}

func TestSleep_BlockedWhileNotCapturable(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()
	h.interaction.ok.Store(false)

	done := make(chan struct{})
	go func() {
		_ = h.exec.Sleep(context.Background(), 20*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Sleep returned while the target was not capturable")
	case <-time.After(80 * time.Millisecond):
	}

	h.interaction.ok.Store(true)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after the target became capturable")
	}
}

func TestSleep_UnfocusedTimeDoesNotCount(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	done := make(chan time.Duration, 1)
	start := time.Now()
	go func() {
		if err := h.exec.Sleep(context.Background(), 200*time.Millisecond); err != nil {
			t.Errorf("Sleep: %v", err)
		}
		done <- time.Since(start)
	}()

	time.Sleep(50 * time.Millisecond)
	h.interaction.ok.Store(false)
	time.Sleep(300 * time.Millisecond)
	h.interaction.ok.Store(true)

	select {
	case elapsed := <-done:
		// 200ms active + 300ms unfocused
		if elapsed < 480*time.Millisecond || elapsed > 700*time.Millisecond {
			t.Errorf("elapsed = %v, want about 500ms", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Sleep did not return")
	}
}

func TestSleep_OverlappingStopsCountOnce(t *testing.T) {
	type step struct {
		at time.Duration
		do func(h *harness, task *Task)
	}
	pauseGlobal := func(h *harness, _ *Task) { _ = h.exec.Pause(nil) }
	startGlobal := func(h *harness, _ *Task) { h.exec.Start() }
	pauseTask := func(h *harness, task *Task) { _ = h.exec.Pause(task) }
	resumeTask := func(h *harness, task *Task) { h.exec.Resume(task) }
	unfocus := func(h *harness, _ *Task) { h.interaction.ok.Store(false) }
	refocus := func(h *harness, _ *Task) { h.interaction.ok.Store(true) }

	// Every case stops the clock from 50ms to 250ms in total.
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name: "task pause around global pause",
			steps: []step{
				{50 * time.Millisecond, pauseTask},
				{100 * time.Millisecond, pauseGlobal},
				{150 * time.Millisecond, startGlobal},
				{250 * time.Millisecond, resumeTask},
			},
		},
		{
			name: "global pause then task pause",
			steps: []step{
				{50 * time.Millisecond, pauseGlobal},
				{100 * time.Millisecond, pauseTask},
				{150 * time.Millisecond, startGlobal},
				{250 * time.Millisecond, resumeTask},
			},
		},
		{
			name: "task pause then global pause",
			steps: []step{
				{50 * time.Millisecond, pauseTask},
				{100 * time.Millisecond, pauseGlobal},
				{150 * time.Millisecond, resumeTask},
				{250 * time.Millisecond, startGlobal},
			},
		},
		{
			name: "focus lost during pause",
			steps: []step{
				{50 * time.Millisecond, pauseGlobal},
				{100 * time.Millisecond, unfocus},
				{150 * time.Millisecond, startGlobal},
				{250 * time.Millisecond, refocus},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.exec.Start()
			task := NewTask("farm", Continuous, Funcs{})
			h.exec.session.bind(task)

			done := make(chan time.Duration, 1)
			start := time.Now()
			go func() {
				if err := h.exec.Sleep(context.Background(), 200*time.Millisecond); err != nil {
					t.Errorf("Sleep: %v", err)
				}
				done <- time.Since(start)
			}()

			for _, s := range tt.steps {
				time.Sleep(time.Until(start.Add(s.at)))
				s.do(h, task)
			}

			select {
			case elapsed := <-done:
				// 200ms active + 200ms stopped
				if elapsed < 380*time.Millisecond || elapsed > 600*time.Millisecond {
					t.Errorf("elapsed = %v, want about 400ms", elapsed)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Sleep did not return")
			}
		})
	}
}

func TestSleep_NilInteractionBlocks(t *testing.T) {
	h := newHarness(t)
	h.exec.interaction = nil
	h.exec.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.exec.Sleep(ctx, time.Millisecond); !errors.Is(err, ErrFinished) {
		t.Errorf("err = %v, want ErrFinished after blocking", err)
	}
}

func TestSleep_DisabledCurrentTask(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	task := NewTask("farm", Continuous, Funcs{})
	h.exec.session.bind(task)

	errCh := make(chan error, 1)
	go func() { errCh <- h.exec.Sleep(context.Background(), time.Hour) }()

	time.Sleep(20 * time.Millisecond)
	task.Disable()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrTaskDisabled) {
			t.Errorf("err = %v, want ErrTaskDisabled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not observe disablement")
	}
	if h.exec.Current() != nil {
		t.Error("current task should be cleared")
	}
}

func TestPause_TaskMustBeCurrent(t *testing.T) {
	h := newHarness(t)
	bound := NewTask("bound", Continuous, Funcs{})
	other := NewTask("other", Continuous, Funcs{})

	if err := h.exec.Pause(other); !errors.Is(err, ErrNotCurrentTask) {
		t.Errorf("pause with nothing bound: err = %v, want ErrNotCurrentTask", err)
	}

	h.exec.session.bind(bound)
	if err := h.exec.Pause(other); !errors.Is(err, ErrNotCurrentTask) {
		t.Errorf("pause of other task: err = %v, want ErrNotCurrentTask", err)
	}
	if other.Paused() {
		t.Error("other task must not be paused")
	}
	if err := h.exec.Pause(bound); err != nil {
		t.Fatalf("pause of bound task: %v", err)
	}
	if !bound.Paused() {
		t.Error("bound task should be paused")
	}
}

func TestPause_TaskBlocksSleepUntilResume(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	task := NewTask("farm", Continuous, Funcs{})
	h.exec.session.bind(task)

	done := make(chan time.Duration, 1)
	go func() {
		start := time.Now()
		_ = h.exec.Sleep(context.Background(), 50*time.Millisecond)
		done <- time.Since(start)
	}()

	time.Sleep(10 * time.Millisecond)
	if err := h.exec.Pause(task); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Sleep returned while the task was paused")
	default:
	}

	h.exec.Resume(task)
	select {
	case elapsed := <-done:
		if elapsed < 140*time.Millisecond {
			t.Errorf("elapsed = %v, want at least 150ms (50ms active + 100ms paused)", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after Resume")
	}
}

func TestPause_PublishesAndResetsFrame(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	if _, err := h.exec.NextFrame(context.Background()); err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if h.exec.LastFrame() == nil {
		t.Fatal("expected cached frame")
	}

	if err := h.exec.Pause(nil); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !h.exec.Paused() {
		t.Error("expected paused")
	}
	if h.exec.LastFrame() != nil {
		t.Error("pause should reset the frame cache")
	}
	// Pausing twice is a no-op
	if err := h.exec.Pause(nil); err != nil {
		t.Fatalf("second Pause: %v", err)
	}

	var paused []bool
	for _, ev := range h.drain() {
		if p, ok := ev.(events.PausedEvent); ok {
			paused = append(paused, p.Paused)
		}
	}
	if len(paused) != 2 || paused[0] != false || paused[1] != true {
		t.Errorf("paused events = %v, want [false true]", paused)
	}
}
