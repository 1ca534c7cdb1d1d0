package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aristath/taskloop/internal/capture"
)

// Validate reports every problem found in cfg, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	durations := map[string]Duration{
		"executor.poll_interval":       c.Executor.PollInterval,
		"executor.frame_poll_interval": c.Executor.FramePollInterval,
		"executor.paused_interval":     c.Executor.PausedInterval,
		"executor.idle_interval":       c.Executor.IdleInterval,
		"executor.stale_frame_after":   c.Executor.StaleFrameAfter,
		"executor.wait_timeout":        c.Executor.WaitTimeout,
		"executor.wait_before_delay":   c.Executor.WaitBeforeDelay,
		"executor.wait_check_delay":    c.Executor.WaitCheckDelay,
		"executor.resolution_timeout":  c.Executor.ResolutionTimeout,
		"capture.focus_ttl":            c.Capture.FocusTTL,
		"capture.retry_initial":        c.Capture.RetryInitial,
		"capture.retry_max":            c.Capture.RetryMax,
		"capture.retry_max_elapsed":    c.Capture.RetryMaxElapsed,
		"capture.breaker_open_timeout": c.Capture.BreakerOpenTimeout,
	}
	for _, name := range slices.Sorted(maps.Keys(durations)) {
		if durations[name] < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, durations[name]))
		}
	}

	if c.Executor.PollInterval <= 0 || c.Executor.PollInterval.Std() > MaxPollInterval {
		errs = append(errs, fmt.Errorf("executor.poll_interval must be in (0, %s], got %s", MaxPollInterval, c.Executor.PollInterval))
	}
	if c.Executor.FramePollInterval.Std() > MaxPollInterval {
		errs = append(errs, fmt.Errorf("executor.frame_poll_interval must be at most %s, got %s", MaxPollInterval, c.Executor.FramePollInterval))
	}

	if c.Capture.Ratio != "" {
		if _, err := capture.ParseRatio(c.Capture.Ratio); err != nil {
			errs = append(errs, fmt.Errorf("capture.ratio: %w", err))
		}
	}
	if c.Capture.SettleKey != "" && len(c.Capture.KeyCommand) == 0 {
		errs = append(errs, errors.New("capture.settle_key needs capture.key_command"))
	}
	if c.Capture.MinWidth < 0 || c.Capture.MinHeight < 0 {
		errs = append(errs, errors.New("capture.min_width and capture.min_height must not be negative"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
