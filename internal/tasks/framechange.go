package tasks

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/scheduler"
)

// FrameChange fires whenever the frame content differs from the last one it
// saw and counts the changes.
type FrameChange struct {
	logger *slog.Logger

	seen    atomic.Uint64 // fingerprint of the last handled frame
	pending uint64
	changes atomic.Int64
}

// NewFrameChange creates the change-detector task.
func NewFrameChange(logger *slog.Logger) *scheduler.Task {
	return scheduler.NewTask(FrameChangeName, scheduler.Continuous, &FrameChange{
		logger: logger.With("task", FrameChangeName),
	})
}

func (c *FrameChange) ShouldTrigger(ctx context.Context, frame *capture.Frame) (bool, error) {
	fp := capture.Fingerprint(frame)
	if fp == 0 || fp == c.seen.Load() {
		return false, nil
	}
	c.pending = fp
	return true, nil
}

func (c *FrameChange) Run(ctx context.Context, e *scheduler.Executor) error {
	prev := c.seen.Swap(c.pending)
	n := c.changes.Add(1)
	c.logger.Info("frame changed", "changes", n, "from", prev, "to", c.pending)
	return nil
}

// Changes returns how many changes have been handled.
func (c *FrameChange) Changes() int64 {
	return c.changes.Load()
}
