package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/taskloop/internal/capture"
)

func TestWaitCondition_ReturnsTruthyResult(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	var evals atomic.Int32
	got, err := WaitCondition(context.Background(), h.exec, func(f *capture.Frame) ([]string, error) {
		if evals.Add(1) < 3 {
			return nil, nil
		}
		return []string{"button"}, nil
	})
	if err != nil {
		t.Fatalf("WaitCondition: %v", err)
	}
	if len(got) != 1 || got[0] != "button" {
		t.Errorf("result = %v, want [button]", got)
	}
	if evals.Load() != 3 {
		t.Errorf("evaluations = %d, want 3", evals.Load())
	}
}

func TestWaitCondition_FreshFrameEachIteration(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	var seqs []uint64
	_, err := WaitCondition(context.Background(), h.exec, func(f *capture.Frame) (bool, error) {
		seqs = append(seqs, f.Seq)
		return len(seqs) == 3, nil
	})
	if err != nil {
		t.Fatalf("WaitCondition: %v", err)
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Errorf("frame seqs not increasing: %v", seqs)
		}
	}
}

func TestWaitCondition_TimeoutReturnsZero(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	var evals atomic.Int32
	start := time.Now()
	got, err := WaitCondition(context.Background(), h.exec, func(f *capture.Frame) (int, error) {
		evals.Add(1)
		return 0, nil
	}, WithTimeout(60*time.Millisecond), WithBeforeDelay(5*time.Millisecond))
	if err != nil {
		t.Fatalf("WaitCondition: %v", err)
	}
	if got != 0 {
		t.Errorf("result = %d, want 0", got)
	}
	elapsed := time.Since(start)
	if elapsed < 60*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, want just over 60ms", elapsed)
	}
	// Each iteration sleeps at least before-delay + check-delay (10ms)
	if n := evals.Load(); n < 1 || n > 8 {
		t.Errorf("evaluations = %d, want bounded by timeout/(before+check)", n)
	}
}

func TestWaitCondition_RaiseOnTimeout(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	_, err := WaitCondition(context.Background(), h.exec, func(f *capture.Frame) (bool, error) {
		return false, nil
	}, WithTimeout(20*time.Millisecond), WithRaiseOnTimeout())
	if !errors.Is(err, ErrWaitFailed) {
		t.Errorf("err = %v, want ErrWaitFailed", err)
	}
}

func TestWaitCondition_PreAndPostActions(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	var pre, post, evals atomic.Int32
	_, err := WaitCondition(context.Background(), h.exec, func(f *capture.Frame) (bool, error) {
		return evals.Add(1) == 3, nil
	},
		WithPreAction(func() error { pre.Add(1); return nil }),
		WithPostAction(func() error { post.Add(1); return nil }),
	)
	if err != nil {
		t.Fatalf("WaitCondition: %v", err)
	}
	if pre.Load() != 3 {
		t.Errorf("pre-action ran %d times, want 3", pre.Load())
	}
	// Post-action runs only after falsy evaluations
	if post.Load() != 2 {
		t.Errorf("post-action ran %d times, want 2", post.Load())
	}
}

func TestWaitCondition_ErrorsEndTheWait(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()
	boom := errors.New("ocr failed")

	_, err := WaitCondition(context.Background(), h.exec, func(f *capture.Frame) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("condition error: got %v", err)
	}

	_, err = WaitCondition(context.Background(), h.exec, func(f *capture.Frame) (string, error) {
		return "", nil
	}, WithPreAction(func() error { return boom }))
	if !errors.Is(err, boom) {
		t.Errorf("pre-action error: got %v", err)
	}
}

func TestWaitCondition_ExitReturnsFinished(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := WaitCondition(ctx, h.exec, func(f *capture.Frame) (bool, error) {
			return false, nil
		}, WithTimeout(time.Hour))
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrFinished) {
			t.Errorf("err = %v, want ErrFinished", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitCondition did not observe exit")
	}
}

func TestWaitUntil(t *testing.T) {
	h := newHarness(t)
	h.exec.Start()

	ok, err := WaitUntil(context.Background(), h.exec, func(f *capture.Frame) bool {
		return f.Width == 16
	})
	if err != nil || !ok {
		t.Errorf("WaitUntil = %v, %v; want true, nil", ok, err)
	}
}

func TestTruthy(t *testing.T) {
	var nilPtr *capture.Frame
	var nilSlice []int
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero int", 0, false},
		{"int", 3, true},
		{"zero float", 0.0, false},
		{"float", 0.5, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"nil slice", nilSlice, false},
		{"empty slice", []int{}, false},
		{"slice", []int{1}, true},
		{"empty map", map[string]int{}, false},
		{"nil pointer", nilPtr, false},
		{"pointer", &capture.Frame{}, true},
		{"struct", capture.Size{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truthy(tt.v); got != tt.want {
				t.Errorf("truthy(%#v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
