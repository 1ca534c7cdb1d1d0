package scheduler

import (
	"fmt"
	"time"

	"github.com/aristath/taskloop/internal/events"
)

// Pause with a nil task sets the global pause flag and invalidates the frame
// cache. With a task, it pauses that task, which must be the one currently
// bound to the worker.
func (e *Executor) Pause(task *Task) error {
	s := e.session
	now := time.Now()

	s.mu.Lock()
	if task != nil {
		if s.current != task {
			current := "none"
			if s.current != nil {
				current = s.current.Name()
			}
			s.mu.Unlock()
			return fmt.Errorf("%w: %s is bound, not %s", ErrNotCurrentTask, current, task.Name())
		}
		task.Pause()
		s.syncHold(now)
		s.mu.Unlock()

		e.logger.Info("task paused", "task", task.Name())
		e.publishTask(task, 0)
		return nil
	}

	if s.paused {
		s.mu.Unlock()
		return nil
	}
	s.paused = true
	s.syncHold(now)
	s.frame = nil
	s.mu.Unlock()

	e.logger.Info("executor paused")
	e.metrics.SetPaused(true)
	e.bus.Publish(events.PausedEvent{Paused: true, Timestamp: now})
	return nil
}

// Start clears the global pause flag. Time spent paused does not count
// against an in-progress sleep, and a task pause overlapping it is not
// counted twice.
func (e *Executor) Start() {
	s := e.session
	now := time.Now()

	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.syncHold(now)
	s.mu.Unlock()

	e.logger.Info("executor started running tasks")
	e.metrics.SetPaused(false)
	e.bus.Publish(events.PausedEvent{Paused: false, Timestamp: now})
}

// Resume unpauses task, or the executor when task is nil.
func (e *Executor) Resume(task *Task) {
	if task == nil {
		e.Start()
		return
	}
	if !task.Paused() {
		return
	}

	s := e.session
	s.mu.Lock()
	task.Unpause()
	s.syncHold(time.Now())
	s.mu.Unlock()

	e.logger.Info("task resumed", "task", task.Name())
	e.publishTask(task, 0)
}
