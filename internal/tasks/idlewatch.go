package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/interaction"
	"github.com/aristath/taskloop/internal/scheduler"
)

// KeySender presses keys on the capture target.
type KeySender interface {
	SendKey(ctx context.Context, key string) error
}

// IdleWatch fires when the frame moves away from the last settled content,
// then waits for the frame to hold still for Stable consecutive captures.
// If Keys and SettleKey are set, the key is pressed each time it settles.
type IdleWatch struct {
	Stable    int
	Timeout   time.Duration
	Keys      KeySender
	SettleKey string

	logger  *slog.Logger
	settled atomic.Uint64
	settles atomic.Int64
	presses atomic.Int64
}

// NewIdleWatch creates the settle-detector task. keys may be nil.
func NewIdleWatch(stable int, timeout time.Duration, keys KeySender, settleKey string, logger *slog.Logger) *scheduler.Task {
	if stable < 2 {
		stable = 2
	}
	return scheduler.NewTask(IdleWatchName, scheduler.Continuous, &IdleWatch{
		Stable:    stable,
		Timeout:   timeout,
		Keys:      keys,
		SettleKey: settleKey,
		logger:    logger.With("task", IdleWatchName),
	})
}

func (w *IdleWatch) ShouldTrigger(ctx context.Context, frame *capture.Frame) (bool, error) {
	fp := capture.Fingerprint(frame)
	return fp != 0 && fp != w.settled.Load(), nil
}

func (w *IdleWatch) Run(ctx context.Context, e *scheduler.Executor) error {
	var (
		last  uint64
		run   int
		start = time.Now()
	)
	fp, err := scheduler.WaitCondition(ctx, e, func(f *capture.Frame) (uint64, error) {
		cur := capture.Fingerprint(f)
		if cur == last {
			run++
		} else {
			last, run = cur, 1
		}
		if run >= w.Stable {
			return cur, nil
		}
		return 0, nil
	}, scheduler.WithTimeout(w.Timeout))
	if err != nil {
		return err
	}

	if fp == 0 {
		w.logger.Info("frame did not settle", "timeout", w.Timeout)
		return nil
	}
	w.settled.Store(fp)
	n := w.settles.Add(1)
	w.logger.Info("frame settled", "after", time.Since(start).Round(time.Millisecond), "settles", n)
	return w.pressSettleKey(ctx)
}

// pressSettleKey sends SettleKey. A target that lost focus meanwhile is
// skipped; any other input failure fails the run.
func (w *IdleWatch) pressSettleKey(ctx context.Context) error {
	if w.Keys == nil || w.SettleKey == "" {
		return nil
	}
	err := w.Keys.SendKey(ctx, w.SettleKey)
	if errors.Is(err, interaction.ErrNotInteractable) {
		w.logger.Info("settle key skipped, target in background", "key", w.SettleKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("pressing settle key %q: %w", w.SettleKey, err)
	}
	w.presses.Add(1)
	return nil
}

// Settles returns how many times the frame has settled.
func (w *IdleWatch) Settles() int64 {
	return w.settles.Load()
}

// Presses returns how many settle keys were sent.
func (w *IdleWatch) Presses() int64 {
	return w.presses.Load()
}
