package scheduler

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/aristath/taskloop/internal/capture"
)

type waitOptions struct {
	timeout     time.Duration
	beforeDelay time.Duration
	pre         func() error
	post        func() error
	raise       bool
}

// WaitOption configures WaitCondition.
type WaitOption func(*waitOptions)

// WithTimeout bounds the wait. Zero keeps the executor's WaitTimeout.
func WithTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBeforeDelay sets the sleep taken before every evaluation.
func WithBeforeDelay(d time.Duration) WaitOption {
	return func(o *waitOptions) { o.beforeDelay = max(d, 0) }
}

// WithPreAction runs fn at the start of every iteration.
func WithPreAction(fn func() error) WaitOption {
	return func(o *waitOptions) { o.pre = fn }
}

// WithPostAction runs fn after every falsy evaluation.
func WithPostAction(fn func() error) WaitOption {
	return func(o *waitOptions) { o.post = fn }
}

// WithRaiseOnTimeout makes a timeout return ErrWaitFailed instead of a zero value.
func WithRaiseOnTimeout() WaitOption {
	return func(o *waitOptions) { o.raise = true }
}

// WaitCondition evaluates cond against fresh frames until it returns a truthy
// value, which is returned as is. Nil, false, zero numbers and empty strings,
// slices, and maps are falsy. After the timeout it returns the zero value, or
// ErrWaitFailed when WithRaiseOnTimeout is set. An error from cond or from a
// pre/post action ends the wait immediately.
func WaitCondition[T any](ctx context.Context, e *Executor, cond func(*capture.Frame) (T, error), opts ...WaitOption) (T, error) {
	o := waitOptions{
		timeout:     e.opts.WaitTimeout,
		beforeDelay: e.opts.WaitBeforeDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	e.ResetFrame()
	start := time.Now()

	for ctx.Err() == nil {
		if o.pre != nil {
			if err := o.pre(); err != nil {
				return zero, err
			}
		}
		if err := e.Sleep(ctx, o.beforeDelay); err != nil {
			return zero, err
		}
		frame, err := e.NextFrame(ctx)
		if err != nil {
			return zero, err
		}

		result, err := cond(frame)
		if err != nil {
			return zero, err
		}
		if truthy(result) {
			e.logger.Debug("wait condition met",
				"result", fmt.Sprint(result),
				"elapsed", time.Since(start).Round(time.Millisecond),
				"before_delay", o.beforeDelay,
				"check_delay", e.opts.WaitCheckDelay)
			return result, nil
		}

		if o.post != nil {
			if err := o.post(); err != nil {
				return zero, err
			}
		}
		if time.Since(start) > o.timeout {
			e.logger.Info("wait condition timed out", "timeout", o.timeout)
			if o.raise {
				return zero, fmt.Errorf("%w after %s", ErrWaitFailed, o.timeout)
			}
			return zero, nil
		}
		if err := e.Sleep(ctx, e.opts.WaitCheckDelay); err != nil {
			return zero, err
		}
	}
	return zero, ErrFinished
}

// WaitUntil is WaitCondition for boolean predicates.
func WaitUntil(ctx context.Context, e *Executor, cond func(*capture.Frame) bool, opts ...WaitOption) (bool, error) {
	return WaitCondition(ctx, e, func(f *capture.Frame) (bool, error) {
		return cond(f), nil
	}, opts...)
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.UnsafePointer:
		return !rv.IsNil()
	default:
		return true
	}
}
