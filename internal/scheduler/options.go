package scheduler

import (
	"time"

	"github.com/aristath/taskloop/internal/config"
)

// Options holds the executor timings.
type Options struct {
	PollInterval      time.Duration // Suspension-point granularity, clamped to 100ms
	FramePollInterval time.Duration
	PausedInterval    time.Duration
	IdleInterval      time.Duration
	StaleFrameAfter   time.Duration
	WaitTimeout       time.Duration
	WaitBeforeDelay   time.Duration
	WaitCheckDelay    time.Duration
	ResolutionTimeout time.Duration
	Debug             bool // Sleeps run to completion and ignore pause and exit
}

// DefaultOptions returns the timings from config.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Executor)
}

// OptionsFromConfig converts the executor section of the configuration.
func OptionsFromConfig(c config.ExecutorConfig) Options {
	return Options{
		PollInterval:      c.PollInterval.Std(),
		FramePollInterval: c.FramePollInterval.Std(),
		PausedInterval:    c.PausedInterval.Std(),
		IdleInterval:      c.IdleInterval.Std(),
		StaleFrameAfter:   c.StaleFrameAfter.Std(),
		WaitTimeout:       c.WaitTimeout.Std(),
		WaitBeforeDelay:   c.WaitBeforeDelay.Std(),
		WaitCheckDelay:    c.WaitCheckDelay.Std(),
		ResolutionTimeout: c.ResolutionTimeout.Std(),
		Debug:             c.Debug,
	}
}

func (o Options) normalized() Options {
	if o.PollInterval <= 0 || o.PollInterval > config.MaxPollInterval {
		o.PollInterval = config.MaxPollInterval
	}
	if o.FramePollInterval <= 0 {
		o.FramePollInterval = 10 * time.Millisecond
	}
	if o.PausedInterval <= 0 {
		o.PausedInterval = time.Second
	}
	if o.IdleInterval <= 0 {
		o.IdleInterval = time.Second
	}
	if o.StaleFrameAfter <= 0 {
		o.StaleFrameAfter = 100 * time.Millisecond
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 10 * time.Second
	}
	if o.WaitBeforeDelay < 0 {
		o.WaitBeforeDelay = 0
	}
	if o.WaitCheckDelay < 0 {
		o.WaitCheckDelay = 0
	}
	if o.ResolutionTimeout <= 0 {
		o.ResolutionTimeout = 3 * time.Second
	}
	return o
}
