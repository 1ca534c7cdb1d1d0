package scheduler

import (
	"context"
	"time"

	"github.com/aristath/taskloop/internal/capture"
)

// NextFrame discards the cached frame and polls the source until it yields a
// usable one. It keeps polling while capture is not permitted and returns
// ErrFinished on exit. Source failures come back as *CaptureError.
func (e *Executor) NextFrame(ctx context.Context) (*capture.Frame, error) {
	e.ResetFrame()
	start := time.Now()

	for {
		if ctx.Err() != nil {
			return nil, ErrFinished
		}

		if e.canCapture() {
			f, err := e.source.Frame(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ErrFinished
				}
				return nil, &CaptureError{Err: err}
			}
			if f != nil {
				if !f.Degenerate() {
					now := time.Now()
					e.session.storeFrame(f, now)
					e.metrics.ObserveFrame(now.Sub(start))
					return f, nil
				}
				e.logger.Warn("captured wrong size frame", "size", f.Resolution())
				e.metrics.IncDegenerate()
			}
		} else if !e.source.CapturePermitted() {
			e.notPermitted.Do(func() {
				e.logger.Info("capture not permitted, waiting")
			})
		}

		if err := e.Sleep(ctx, e.opts.FramePollInterval); err != nil {
			return nil, err
		}
	}
}

func (e *Executor) canCapture() bool {
	return e.source.CapturePermitted() && e.interactive()
}

// Frame returns the cached frame, acquiring one if the cache is empty.
// It waits while the executor is paused, unless in debug mode.
func (e *Executor) Frame(ctx context.Context) (*capture.Frame, error) {
	for !e.opts.Debug && e.Paused() {
		if err := e.Sleep(ctx, e.opts.PausedInterval); err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ErrFinished
	}
	if f := e.session.cachedFrame(); f != nil {
		return f, nil
	}
	return e.NextFrame(ctx)
}

// ResetFrame clears the frame cache so the next access captures a fresh frame.
func (e *Executor) ResetFrame() {
	e.session.resetFrame()
}

// LastFrame returns the cached frame without blocking. It may be nil.
// Callers must treat the frame as read-only.
func (e *Executor) LastFrame() *capture.Frame {
	return e.session.cachedFrame()
}
