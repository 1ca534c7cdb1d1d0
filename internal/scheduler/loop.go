package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/metrics"
	"github.com/aristath/taskloop/internal/persistence"
)

func (e *Executor) loop(ctx context.Context) {
	for ctx.Err() == nil {
		if e.Paused() {
			e.logger.Debug("executor is paused, sleeping")
			if errors.Is(e.Sleep(ctx, e.opts.PausedInterval), ErrFinished) {
				return
			}
			continue
		}

		task, cycled, err := e.nextTask(ctx)
		if err != nil {
			if errors.Is(err, ErrFinished) {
				return
			}
			if task != nil {
				e.failTrigger(ctx, task, err)
				continue
			}
			if !e.captureFailed(ctx, err) {
				return
			}
			continue
		}
		if task == nil {
			if !sleepCtx(ctx, e.opts.IdleInterval) {
				return
			}
			continue
		}

		if errors.Is(e.execute(ctx, task, cycled), ErrFinished) {
			return
		}
	}
}

// nextTask picks the next candidate. The first enabled OneTime task always
// wins and leaves the cursor alone. Otherwise the round-robin cursor advances
// one Continuous task, which is returned only if its predicate holds. cycled
// reports that the cursor wrapped. A non-nil error with a nil task is a frame
// acquisition failure.
func (e *Executor) nextTask(ctx context.Context) (*Task, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ErrFinished
	}

	oneTime, continuous := e.snapshot()
	for _, t := range oneTime {
		if t.Enabled() {
			return t, false, nil
		}
	}
	if len(continuous) == 0 {
		return nil, false, nil
	}

	idx, cycled := e.session.advance(len(continuous))
	t := continuous[idx]
	if !t.Enabled() {
		return nil, cycled, nil
	}

	frame, err := e.Frame(ctx)
	if err != nil {
		return nil, cycled, err
	}
	ok, err := t.ShouldTrigger(ctx, frame)
	if err != nil {
		return t, cycled, err
	}
	if !ok {
		return nil, cycled, nil
	}
	return t, cycled, nil
}

// execute runs one selected task. It returns ErrFinished when the loop must stop.
func (e *Executor) execute(ctx context.Context, task *Task, cycled bool) error {
	if cycled || e.session.frameAge(time.Now()) > e.opts.StaleFrameAfter {
		if _, err := e.NextFrame(ctx); err != nil {
			if errors.Is(err, ErrFinished) {
				return err
			}
			if !e.captureFailed(ctx, err) {
				return ErrFinished
			}
			return nil
		}
	}

	frame, err := e.Frame(ctx)
	if err != nil {
		if errors.Is(err, ErrFinished) {
			return err
		}
		if !e.captureFailed(ctx, err) {
			return ErrFinished
		}
		return nil
	}

	fire, err := task.Trigger(ctx, frame)
	if err != nil {
		e.failTrigger(ctx, task, err)
		return nil
	}
	if !fire {
		return nil
	}

	start := time.Now()
	task.startTime.Store(start.UnixNano())
	task.running.Store(true)
	e.session.bind(task)
	e.metrics.SetCurrent(task.Name(), true)
	e.logger.Info("task started", "task", task.Name(), "kind", task.Kind())
	e.publishCurrent(task.Name())
	e.publishTask(task, 0)

	if cycled || e.LastFrame() == nil {
		_, err = e.NextFrame(ctx)
	}
	if err == nil {
		err = task.run(ctx, e)
	}
	return e.finish(ctx, task, start, err)
}

// finish unbinds the task and classifies how its run ended.
func (e *Executor) finish(ctx context.Context, task *Task, start time.Time, runErr error) error {
	dur := time.Since(start)
	task.running.Store(false)
	e.session.unbind(task)
	e.metrics.SetCurrent(task.Name(), false)

	var outcome string
	switch {
	case runErr == nil:
		outcome = metrics.OutcomeCompleted
		if task.Kind() != Continuous {
			task.Disable()
		}
		e.logger.Info("task completed", "task", task.Name(), "duration", dur)
		e.publishTask(task, dur)
		e.publishCurrent("")

	case errors.Is(runErr, ErrTaskDisabled):
		outcome = metrics.OutcomeDisabled
		e.logger.Info("task disabled while running", "task", task.Name())
		e.bus.Publish(events.NotificationEvent{
			Title:     task.Name(),
			Message:   "Stopped",
			IsError:   true,
			Transient: true,
			Timestamp: time.Now(),
		})
		e.publishTask(task, dur)
		e.publishCurrent("")

	case errors.Is(runErr, ErrFinished):
		outcome = metrics.OutcomeFinished
		e.logger.Info("task interrupted by shutdown", "task", task.Name())

	default:
		outcome = metrics.OutcomeFailed
		e.fail(task, runErr)
	}

	e.metrics.ObserveRun(task.Name(), outcome, dur)
	e.record(ctx, task, outcome, start, runErr)

	if outcome == metrics.OutcomeFinished {
		return ErrFinished
	}
	return nil
}

// fail applies the failure contract: disable the task, notify once, keep a
// screenshot if a frame is cached, and clear the current task.
func (e *Executor) fail(task *Task, err error) {
	var capErr *CaptureError
	if errors.As(err, &capErr) {
		e.bus.Publish(events.CaptureErrorEvent{Err: capErr.Err, Timestamp: time.Now()})
	}

	task.Disable()
	task.running.Store(false)
	e.session.unbind(task)

	attrs := []any{"task", task.Name(), "error", err}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		attrs = append(attrs, "stack", string(panicErr.Stack))
	}
	e.logger.Error("task failed", attrs...)

	now := time.Now()
	e.bus.Publish(events.NotificationEvent{
		Title:     task.Name(),
		Message:   err.Error(),
		IsError:   true,
		Transient: true,
		Timestamp: now,
	})
	if f := e.LastFrame(); f != nil {
		e.bus.Publish(events.ScreenshotEvent{Frame: f, Label: task.Name(), Timestamp: now})
	}
	e.publishTask(task, 0)
	e.publishCurrent("")
}

// failTrigger fails a task whose predicate errored before it ran. The failure
// is counted and journaled like a failed run.
func (e *Executor) failTrigger(ctx context.Context, task *Task, err error) {
	start := time.Now()
	e.fail(task, err)
	e.metrics.ObserveRun(task.Name(), metrics.OutcomeFailed, 0)
	e.record(ctx, task, metrics.OutcomeFailed, start, err)
}

// captureFailed reports a frame acquisition failure that no task owns and
// idles before the next attempt. It returns false if the executor is exiting.
func (e *Executor) captureFailed(ctx context.Context, err error) bool {
	e.logger.Warn("frame acquisition failed", "error", err)
	var capErr *CaptureError
	if errors.As(err, &capErr) {
		e.bus.Publish(events.CaptureErrorEvent{Err: capErr.Err, Timestamp: time.Now()})
	}
	return sleepCtx(ctx, e.opts.IdleInterval)
}

func (e *Executor) record(ctx context.Context, task *Task, outcome string, start time.Time, runErr error) {
	if e.history == nil {
		return
	}
	run := persistence.Run{
		SessionID:  e.sessionID,
		Task:       task.Name(),
		Kind:       task.Kind().String(),
		Outcome:    outcome,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// The run is journaled even while shutting down.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.history.RecordRun(ctx, run); err != nil {
		e.logger.Warn("failed to record run", "task", task.Name(), "error", err)
	}
}
