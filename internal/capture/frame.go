// Package capture defines the frame model and the capture-side contracts the
// scheduler depends on: a Source that yields frames and an Interaction that
// reports whether the target is currently controllable.
package capture

import (
	"context"
	"fmt"
	"image"
	"time"
)

// Frame is a single captured image snapshot.
//
// Frames are shared by reference between the worker and outside readers.
// Nobody mutates a Frame after it has been returned by a Source.
type Frame struct {
	Image      image.Image
	Width      int
	Height     int
	CapturedAt time.Time
	Seq        uint64 // Monotonic per source, 0 when the source does not number frames
}

// NewFrame wraps an image, taking width and height from its bounds.
func NewFrame(img image.Image) *Frame {
	f := &Frame{Image: img, CapturedAt: time.Now()}
	if img != nil {
		b := img.Bounds()
		f.Width = b.Dx()
		f.Height = b.Dy()
	}
	return f
}

// Degenerate reports whether the frame has a non-positive dimension.
func (f *Frame) Degenerate() bool {
	return f.Width <= 0 || f.Height <= 0
}

// Resolution returns the frame size formatted as "WxH".
func (f *Frame) Resolution() string {
	return FormatSize(f.Width, f.Height)
}

// FormatSize formats a width and height as "WxH".
func FormatSize(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

// Source supplies frames from a capture backend.
type Source interface {
	// CapturePermitted reports whether capturing is currently allowed
	// (e.g. the target surface is visible).
	CapturePermitted() bool

	// Frame returns the current frame. A nil frame with a nil error means the
	// source is transiently unavailable; any error is a capture failure.
	Frame(ctx context.Context) (*Frame, error)

	// Size returns the most recently observed capture dimensions.
	Size() (width, height int)
}

// Connector is implemented by sources that track a connection to a device.
type Connector interface {
	Connected() bool
}

// Interaction reports whether the capture target is currently controllable.
// It gates both frame acquisition and task execution.
type Interaction interface {
	ShouldCapture() bool
}
