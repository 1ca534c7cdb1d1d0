// Package tasks holds the built-in tasks the CLI registers.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/scheduler"
)

// Task names.
const (
	ResolutionCheckName = "resolution-check"
	FrameChangeName     = "frame-change"
	IdleWatchName       = "idle-watch"
)

// ResolutionCheck is a preflight that verifies the capture size once.
// An unsupported size fails the task, which surfaces as an error notification.
type ResolutionCheck struct {
	Ratio   string
	MinSize capture.Size

	bus    events.Publisher
	logger *slog.Logger

	mu        sync.Mutex
	supported bool
	size      string
	checked   bool
}

// NewResolutionCheck creates the preflight task.
func NewResolutionCheck(ratio string, minSize capture.Size, bus events.Publisher, logger *slog.Logger) *scheduler.Task {
	return scheduler.NewTask(ResolutionCheckName, scheduler.OneTime, &ResolutionCheck{
		Ratio:   ratio,
		MinSize: minSize,
		bus:     bus,
		logger:  logger.With("task", ResolutionCheckName),
	})
}

func (r *ResolutionCheck) ShouldTrigger(ctx context.Context, frame *capture.Frame) (bool, error) {
	return true, nil
}

func (r *ResolutionCheck) Run(ctx context.Context, e *scheduler.Executor) error {
	supported, size, err := e.CheckResolution(ctx, r.Ratio, r.MinSize)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.supported, r.size, r.checked = supported, size, true
	r.mu.Unlock()

	if !supported {
		return fmt.Errorf("unsupported resolution %s, need %s at least %s",
			size, r.Ratio, capture.FormatSize(r.MinSize.Width, r.MinSize.Height))
	}

	r.logger.Info("resolution supported", "size", size)
	if r.bus != nil {
		r.bus.Publish(events.NotificationEvent{
			Title:     ResolutionCheckName,
			Message:   size,
			Transient: true,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// Result returns the last check outcome. ok is false until the task has run.
func (r *ResolutionCheck) Result() (supported bool, size string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.supported, r.size, r.checked
}
