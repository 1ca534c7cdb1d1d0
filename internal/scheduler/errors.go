package scheduler

import (
	"errors"
	"fmt"
)

// Outcomes that unwind a task body. Check them with errors.Is.
var (
	// ErrFinished means the executor is shutting down.
	ErrFinished = errors.New("executor finished")

	// ErrTaskDisabled means the bound task was disabled while it was suspended.
	ErrTaskDisabled = errors.New("task disabled")

	// ErrWaitFailed is returned by WaitCondition on timeout when WithRaiseOnTimeout is set.
	ErrWaitFailed = errors.New("wait condition not met")

	// ErrNotCurrentTask is returned when pausing a task that is not bound to the worker.
	ErrNotCurrentTask = errors.New("can only pause the current task")

	// ErrDuplicateTask is returned when registering a name twice.
	ErrDuplicateTask = errors.New("duplicate task name")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("executor already running")
)

// CaptureError wraps a failure reported by the capture source.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// PanicError is a recovered panic from a task predicate or body.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}
