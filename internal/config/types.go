package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare numbers are taken as seconds.
		var secs float64
		if numErr := json.Unmarshal(data, &secs); numErr != nil {
			return fmt.Errorf("duration must be a string or number: %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		var secs float64
		if numErr := value.Decode(&secs); numErr != nil {
			return fmt.Errorf("parsing duration %q: %w", s, err)
		}
		parsed = time.Duration(secs * float64(time.Second))
	}
	*d = Duration(parsed)
	return nil
}

// ExecutorConfig holds the scheduler timings.
type ExecutorConfig struct {
	PollInterval      Duration `json:"poll_interval" yaml:"poll_interval"`             // Suspension-point granularity, at most 100ms
	FramePollInterval Duration `json:"frame_poll_interval" yaml:"frame_poll_interval"` // Delay between capture attempts
	PausedInterval    Duration `json:"paused_interval" yaml:"paused_interval"`
	IdleInterval      Duration `json:"idle_interval" yaml:"idle_interval"`
	StaleFrameAfter   Duration `json:"stale_frame_after" yaml:"stale_frame_after"`
	WaitTimeout       Duration `json:"wait_timeout" yaml:"wait_timeout"`
	WaitBeforeDelay   Duration `json:"wait_before_delay" yaml:"wait_before_delay"`
	WaitCheckDelay    Duration `json:"wait_check_delay" yaml:"wait_check_delay"`
	ResolutionTimeout Duration `json:"resolution_timeout" yaml:"resolution_timeout"`
	Debug             bool     `json:"debug,omitempty" yaml:"debug,omitempty"` // Sleeps ignore pause and exit
}

// CaptureConfig describes the frame source and the interaction target.
type CaptureConfig struct {
	FramesDir          string   `json:"frames_dir,omitempty" yaml:"frames_dir,omitempty"`
	Ratio              string   `json:"ratio,omitempty" yaml:"ratio,omitempty"` // e.g. "16:9"; empty skips the resolution check
	MinWidth           int      `json:"min_width,omitempty" yaml:"min_width,omitempty"`
	MinHeight          int      `json:"min_height,omitempty" yaml:"min_height,omitempty"`
	FocusCommand       []string `json:"focus_command,omitempty" yaml:"focus_command,omitempty"` // Exit 0 means the target is capturable
	FocusTTL           Duration `json:"focus_ttl" yaml:"focus_ttl"`
	KeyCommand         []string `json:"key_command,omitempty" yaml:"key_command,omitempty"`     // "{key}" is substituted
	ClickCommand       []string `json:"click_command,omitempty" yaml:"click_command,omitempty"` // "{x}" and "{y}" are substituted
	SettleKey          string   `json:"settle_key,omitempty" yaml:"settle_key,omitempty"`       // Pressed by idle-watch each time the frame settles
	RetryInitial       Duration `json:"retry_initial" yaml:"retry_initial"`
	RetryMax           Duration `json:"retry_max" yaml:"retry_max"`
	RetryMaxElapsed    Duration `json:"retry_max_elapsed" yaml:"retry_max_elapsed"`
	BreakerFailures    uint32   `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerOpenTimeout Duration `json:"breaker_open_timeout" yaml:"breaker_open_timeout"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // Empty disables the listener
}

// HistoryConfig controls the run journal.
type HistoryConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // SQLite file; empty keeps history in memory
}

// Config is the top-level configuration.
type Config struct {
	Executor ExecutorConfig `json:"executor" yaml:"executor"`
	Capture  CaptureConfig  `json:"capture" yaml:"capture"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	History  HistoryConfig  `json:"history" yaml:"history"`
}
