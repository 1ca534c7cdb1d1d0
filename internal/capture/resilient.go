package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// RetryConfig configures exponential backoff for capture calls.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 20ms)
	MaxInterval         time.Duration // Maximum retry interval (default 250ms)
	MaxElapsedTime      time.Duration // Maximum total retry time per frame (default 1s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns retry settings sized for a polling capture loop.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     20 * time.Millisecond,
		MaxInterval:         250 * time.Millisecond,
		MaxElapsedTime:      1 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// BreakerConfig configures the circuit breaker in front of a capture backend.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32        // Failures that trip the breaker (default 5)
	OpenTimeout         time.Duration // Time spent open before probing (default 10s)
}

// ResilientSource wraps a Source with retries and a circuit breaker so a
// flapping capture backend costs a few retries instead of a task failure,
// while a dead one fails fast.
type ResilientSource struct {
	src    Source
	cb     *gobreaker.CircuitBreaker
	retry  RetryConfig
	logger *slog.Logger
}

// NewResilientSource wraps src.
func NewResilientSource(src Source, retry RetryConfig, bc BreakerConfig, logger *slog.Logger) *ResilientSource {
	if bc.Name == "" {
		bc.Name = "capture"
	}
	if bc.ConsecutiveFailures == 0 {
		bc.ConsecutiveFailures = 5
	}
	if bc.OpenTimeout <= 0 {
		bc.OpenTimeout = 10 * time.Second
	}
	logger = logger.With("component", "capture", "breaker", bc.Name)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("capture breaker state change", "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Shutdown is not a backend failure
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return &ResilientSource{src: src, cb: cb, retry: retry, logger: logger}
}

// State returns the breaker state.
func (r *ResilientSource) State() gobreaker.State {
	return r.cb.State()
}

func (r *ResilientSource) CapturePermitted() bool {
	return r.src.CapturePermitted()
}

func (r *ResilientSource) Size() (int, int) {
	return r.src.Size()
}

// Connected delegates to the wrapped source when it tracks a connection.
func (r *ResilientSource) Connected() bool {
	if c, ok := r.src.(Connector); ok {
		return c.Connected()
	}
	return true
}

// Frame fetches a frame through the breaker, retrying transient errors with
// exponential backoff. An open breaker is returned immediately.
func (r *ResilientSource) Frame(ctx context.Context) (*Frame, error) {
	var frame *Frame

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		result, err := r.cb.Execute(func() (interface{}, error) {
			return r.src.Frame(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			r.logger.Debug("capture attempt failed", "error", err)
			return err
		}

		frame, _ = result.(*Frame)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retry.InitialInterval
	policy.MaxInterval = r.retry.MaxInterval
	policy.MaxElapsedTime = r.retry.MaxElapsedTime
	policy.Multiplier = r.retry.Multiplier
	policy.RandomizationFactor = r.retry.RandomizationFactor

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return frame, nil
}
