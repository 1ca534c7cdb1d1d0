package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"
)

// StaticSource is an in-memory Source whose frame, permit flag, and error can
// be changed at any time. It backs tests and the headless demo.
type StaticSource struct {
	mu        sync.Mutex
	frame     *Frame
	err       error
	permitted bool
	seq       uint64
	calls     atomic.Int64
}

// NewStaticSource creates a source that serves f and permits capture.
func NewStaticSource(f *Frame) *StaticSource {
	return &StaticSource{frame: f, permitted: true}
}

// SetFrame replaces the served frame. A nil frame makes the source
// transiently unavailable.
func (s *StaticSource) SetFrame(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
}

// SetPermitted toggles CapturePermitted.
func (s *StaticSource) SetPermitted(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permitted = ok
}

// SetError makes every Frame call fail with err until cleared with nil.
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times Frame has been called.
func (s *StaticSource) Calls() int64 {
	return s.calls.Load()
}

func (s *StaticSource) CapturePermitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permitted
}

func (s *StaticSource) Frame(ctx context.Context) (*Frame, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.frame == nil {
		return nil, nil
	}
	s.seq++
	// Each capture is a distinct snapshot sharing the same pixels.
	f := *s.frame
	f.Seq = s.seq
	f.CapturedAt = time.Now()
	return &f, nil
}

func (s *StaticSource) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return 0, 0
	}
	return s.frame.Width, s.frame.Height
}

// SolidFrame builds a frame of the given size filled with c.
func SolidFrame(width, height int, c color.Color) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return NewFrame(img)
}

// BlankFrame returns a frame that reports the given size without pixel data.
// Useful for resolution checks where content does not matter.
func BlankFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, CapturedAt: time.Now()}
}
