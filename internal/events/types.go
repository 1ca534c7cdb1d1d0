package events

import (
	"time"

	"github.com/aristath/taskloop/internal/capture"
)

// Event is the base interface for all scheduler events.
type Event interface {
	EventType() string
	Topic() string
}

// Topic constants
const (
	TopicExecutor     = "executor"
	TopicTask         = "task"
	TopicCapture      = "capture"
	TopicNotification = "notification"
)

// Event type constants
const (
	EventTypePaused       = "executor.paused"
	EventTypeCurrentTask  = "task.current"
	EventTypeTaskState    = "task.state"
	EventTypeCaptureError = "capture.error"
	EventTypeScreenshot   = "capture.screenshot"
	EventTypeNotification = "notification"
)

// PausedEvent is published whenever the global pause flag changes.
type PausedEvent struct {
	Paused    bool
	Timestamp time.Time
}

func (e PausedEvent) EventType() string { return EventTypePaused }
func (e PausedEvent) Topic() string     { return TopicExecutor }

// CurrentTaskEvent is published when the bound task changes. An empty Name
// means no task is bound.
type CurrentTaskEvent struct {
	Name      string
	Timestamp time.Time
}

func (e CurrentTaskEvent) EventType() string { return EventTypeCurrentTask }
func (e CurrentTaskEvent) Topic() string     { return TopicTask }

// TaskStateEvent carries a snapshot of one task's flags.
type TaskStateEvent struct {
	Name      string
	Kind      string
	Enabled   bool
	Running   bool
	Paused    bool
	Duration  time.Duration // Run duration, set when a run ends
	Timestamp time.Time
}

func (e TaskStateEvent) EventType() string { return EventTypeTaskState }
func (e TaskStateEvent) Topic() string     { return TopicTask }

// CaptureErrorEvent is published when the capture backend fails.
type CaptureErrorEvent struct {
	Err       error
	Timestamp time.Time
}

func (e CaptureErrorEvent) EventType() string { return EventTypeCaptureError }
func (e CaptureErrorEvent) Topic() string     { return TopicCapture }

// ScreenshotEvent carries a frame worth keeping for diagnosis, labelled with
// the task name or "resolution_error".
type ScreenshotEvent struct {
	Frame     *capture.Frame
	Label     string
	Timestamp time.Time
}

func (e ScreenshotEvent) EventType() string { return EventTypeScreenshot }
func (e ScreenshotEvent) Topic() string     { return TopicCapture }

// NotificationEvent is a user-facing message.
type NotificationEvent struct {
	Title     string
	Message   string
	IsError   bool
	Transient bool
	Timestamp time.Time
}

func (e NotificationEvent) EventType() string { return EventTypeNotification }
func (e NotificationEvent) Topic() string     { return TopicNotification }
