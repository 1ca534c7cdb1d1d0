package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExecutorMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.AddSleep(1500 * time.Millisecond)
	m.AddSleep(500 * time.Millisecond)
	m.ObserveRun("farm", OutcomeCompleted, 20*time.Millisecond)
	m.ObserveRun("farm", OutcomeFailed, 5*time.Millisecond)
	m.ObserveRun("farm", OutcomeFailed, 5*time.Millisecond)
	m.IncDegenerate()
	m.SetPaused(true)
	m.SetCurrent("farm", true)

	if got := testutil.ToFloat64(m.SleepSeconds); got != 2 {
		t.Errorf("sleep seconds = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TaskRuns.WithLabelValues("farm", OutcomeFailed)); got != 2 {
		t.Errorf("failed runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DegenerateFrames); got != 1 {
		t.Errorf("degenerate = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Paused); got != 1 {
		t.Errorf("paused = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CurrentTask.WithLabelValues("farm")); got != 1 {
		t.Errorf("current = %v, want 1", got)
	}
}

func TestExecutorMetrics_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *ExecutorMetrics
	m.AddSleep(time.Second)
	m.ObserveFrame(time.Millisecond)
	m.IncDegenerate()
	m.ObserveRun("x", OutcomeCompleted, time.Second)
	m.SetPaused(true)
	m.SetCurrent("x", true)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ObserveRun("farm", OutcomeCompleted, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `taskloop_executor_task_runs_total{outcome="completed",task="farm"} 1`) {
		t.Errorf("metrics output missing task run sample:\n%s", body)
	}
}
