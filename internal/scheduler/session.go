package scheduler

import (
	"sync"
	"time"

	"github.com/aristath/taskloop/internal/capture"
)

// Session is the mutable state shared between the worker and outside callers.
type Session struct {
	mu sync.Mutex

	frame       *capture.Frame
	lastFrameAt time.Time

	paused    bool
	unfocused bool

	// held marks a stretch where the sleep clock is stopped for any reason.
	// heldSince is when that stretch began.
	held      bool
	heldSince time.Time

	sleepSetAt    time.Time
	sleepDeadline time.Time

	current *Task
	cursor  int
}

func newSession() *Session {
	return &Session{paused: true, held: true, heldSince: time.Now(), cursor: -1}
}

func (s *Session) cachedFrame() *capture.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *Session) storeFrame(f *capture.Frame, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
	s.lastFrameAt = at
}

func (s *Session) resetFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = nil
}

// frameAge is the time since the last successful acquisition, even if the
// cache has been reset since.
func (s *Session) frameAge(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFrameAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(s.lastFrameAt)
}

func (s *Session) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) setDeadline(now time.Time, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleepSetAt = now
	s.sleepDeadline = now.Add(d)
}

func (s *Session) deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleepDeadline
}

// syncHold starts or ends a stopped-clock stretch to match the pause and
// focus state. When a stretch ends, the sleep deadline moves
// forward by the part of it that overlapped the current sleep. Overlapping
// reasons count once. Caller holds mu.
func (s *Session) syncHold(now time.Time) {
	held := s.paused || s.unfocused || (s.current != nil && s.current.Paused())
	switch {
	case held && !s.held:
		s.held = true
		s.heldSince = now
	case !held && s.held:
		s.held = false
		from := s.heldSince
		if s.sleepSetAt.After(from) {
			from = s.sleepSetAt
		}
		if d := now.Sub(from); d > 0 {
			s.sleepDeadline = s.sleepDeadline.Add(d)
		}
	}
}

// observeFocus records whether the target is capturable and reports whether
// the sleep clock is stopped.
func (s *Session) observeFocus(now time.Time, focused bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unfocused = !focused
	s.syncHold(now)
	return s.held
}

func (s *Session) currentTask() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) bind(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = t
	s.syncHold(time.Now())
}

// unbind clears the current task if it is still t.
func (s *Session) unbind(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == t {
		s.current = nil
		s.syncHold(time.Now())
	}
}

// takeDisabled unbinds and returns the current task if it has been disabled.
func (s *Session) takeDisabled() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && !s.current.Enabled() {
		t := s.current
		s.current = nil
		s.syncHold(time.Now())
		return t
	}
	return nil
}

// advance moves the round-robin cursor over n tasks and reports whether it wrapped.
func (s *Session) advance(n int) (idx int, cycled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= n-1 {
		s.cursor = -1
		cycled = true
	}
	s.cursor++
	return s.cursor, cycled
}
