package config

import "time"

// MaxPollInterval bounds how long a suspension point may go without checking for exit.
const MaxPollInterval = 100 * time.Millisecond

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Executor: ExecutorConfig{
			PollInterval:      Duration(100 * time.Millisecond),
			FramePollInterval: Duration(10 * time.Millisecond),
			PausedInterval:    Duration(time.Second),
			IdleInterval:      Duration(time.Second),
			StaleFrameAfter:   Duration(100 * time.Millisecond),
			WaitTimeout:       Duration(10 * time.Second),
			WaitBeforeDelay:   Duration(time.Second),
			WaitCheckDelay:    0,
			ResolutionTimeout: Duration(3 * time.Second),
		},
		Capture: CaptureConfig{
			FocusTTL:           Duration(500 * time.Millisecond),
			RetryInitial:       Duration(20 * time.Millisecond),
			RetryMax:           Duration(250 * time.Millisecond),
			RetryMaxElapsed:    Duration(time.Second),
			BreakerFailures:    5,
			BreakerOpenTimeout: Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
