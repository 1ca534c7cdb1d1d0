package scheduler

import (
	"context"
	"time"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/events"
)

const resolutionPollInterval = 100 * time.Millisecond

// CheckResolution grabs a frame straight from the source and reports whether
// its size matches ratio (within 1%) and is at least minSize, along with the
// size as "WxH". An empty ratio always passes with "0x0". If no frame arrives
// within ResolutionTimeout the check fails with "0x0". A ratio mismatch
// publishes a screenshot labelled "resolution_error".
func (e *Executor) CheckResolution(ctx context.Context, ratio string, minSize capture.Size) (bool, string, error) {
	if ratio == "" {
		return true, capture.FormatSize(0, 0), nil
	}
	if _, err := capture.ParseRatio(ratio); err != nil {
		return false, capture.FormatSize(0, 0), err
	}

	frame, err := e.probeFrame(ctx)
	if err != nil {
		return false, capture.FormatSize(0, 0), err
	}
	if frame == nil {
		e.logger.Error("resolution check failed, no frame", "timeout", e.opts.ResolutionTimeout)
		return false, capture.FormatSize(0, 0), nil
	}

	width, height := e.source.Size()
	if width <= 0 || height <= 0 {
		width, height = frame.Width, frame.Height
	}
	size := capture.FormatSize(width, height)

	ratioOK, _ := capture.CheckResolution(width, height, ratio, capture.Size{})
	if !ratioOK {
		e.logger.Error("resolution error", "size", size, "ratio", ratio)
		e.bus.Publish(events.ScreenshotEvent{Frame: frame, Label: "resolution_error", Timestamp: time.Now()})
		return false, size, nil
	}

	supported, _ := capture.CheckResolution(width, height, ratio, minSize)
	if !supported {
		e.logger.Warn("resolution below minimum", "size", size, "min", capture.FormatSize(minSize.Width, minSize.Height))
	}
	return supported, size, nil
}

// probeFrame polls the source directly, bypassing pause and the frame cache.
// Source errors count as no frame.
func (e *Executor) probeFrame(ctx context.Context) (*capture.Frame, error) {
	deadline := time.Now().Add(e.opts.ResolutionTimeout)
	for time.Now().Before(deadline) {
		f, err := e.source.Frame(ctx)
		if ctx.Err() != nil {
			return nil, ErrFinished
		}
		if err != nil {
			e.logger.Debug("resolution probe capture failed", "error", err)
		} else if f != nil {
			return f, nil
		}
		if !sleepCtx(ctx, resolutionPollInterval) {
			return nil, ErrFinished
		}
	}
	return nil, nil
}
