// Package interaction decides whether the capture target is controllable and
// sends input to it through external commands.
package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aristath/taskloop/internal/logging"
)

// Always is a fixed answer to ShouldCapture.
type Always bool

func (a Always) ShouldCapture() bool { return bool(a) }

// CommandProbe runs a command to decide whether the target is capturable,
// typically a window-focus check. Exit status 0 means capturable. Results
// are cached for TTL so the scheduler's polling does not spawn a process
// every few milliseconds.
type CommandProbe struct {
	argv    []string
	ttl     time.Duration
	timeout time.Duration
	pm      *ProcessManager
	logger  *slog.Logger

	mu        sync.Mutex
	last      bool
	checkedAt time.Time
	lastErr   error
}

// NewCommandProbe creates a probe. pm and logger may be nil.
func NewCommandProbe(argv []string, ttl time.Duration, pm *ProcessManager, logger *slog.Logger) *CommandProbe {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CommandProbe{
		argv:    append([]string(nil), argv...),
		ttl:     ttl,
		timeout: 2 * time.Second,
		pm:      pm,
		logger:  logger.With("component", "focus-probe"),
	}
}

// ShouldCapture returns the cached result, re-running the command once the
// cache is older than TTL.
func (p *CommandProbe) ShouldCapture() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checkedAt.IsZero() && time.Since(p.checkedAt) < p.ttl {
		return p.last
	}

	ok, err := p.probe()
	if err != nil && (p.lastErr == nil || err.Error() != p.lastErr.Error()) {
		p.logger.Debug("target not capturable", "error", err)
	}
	if ok != p.last {
		p.logger.Info("capture target changed", "capturable", ok)
	}
	p.last = ok
	p.lastErr = err
	p.checkedAt = time.Now()
	return ok
}

// LastError returns the error of the most recent failed probe.
func (p *CommandProbe) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *CommandProbe) probe() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	cmd, err := newCommand(ctx, p.argv)
	if err != nil {
		return false, err
	}
	if _, _, err := runCommand(cmd, p.pm); err != nil {
		return false, err
	}
	return true, nil
}
