package scheduler

import (
	"context"
	"time"
)

// Sleep suspends the calling task for d of active time. While the executor or
// the bound task is paused, or the target is not capturable, the clock stops
// and the deadline moves out by that long. Focus is sampled once per poll
// interval. It returns ErrFinished on exit and ErrTaskDisabled if the bound
// task was disabled meanwhile. In debug mode it is a plain time.Sleep.
func (e *Executor) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if e.opts.Debug {
		time.Sleep(d)
		return nil
	}

	e.ResetFrame()
	e.metrics.AddSleep(d)
	e.session.setDeadline(time.Now(), d)

	for {
		if ctx.Err() != nil {
			return ErrFinished
		}
		if t := e.session.takeDisabled(); t != nil {
			e.logger.Debug("task disabled during sleep", "task", t.Name())
			return ErrTaskDisabled
		}

		focused := e.interactive()
		now := time.Now()
		wait := e.opts.PollInterval
		if !e.session.observeFocus(now, focused) {
			remaining := e.session.deadline().Sub(now)
			if remaining <= 0 {
				return nil
			}
			wait = min(remaining, wait)
		}
		if !sleepCtx(ctx, wait) {
			return ErrFinished
		}
	}
}

func (e *Executor) interactive() bool {
	return e.interaction != nil && e.interaction.ShouldCapture()
}

// sleepCtx waits for d or until ctx is done. It reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
