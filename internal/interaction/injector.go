package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/logging"
)

// ErrNotInteractable is returned when input is refused because the target
// is not currently capturable.
var ErrNotInteractable = errors.New("target is not interactable")

// Injector sends key presses and clicks by running command templates.
// "{key}", "{x}" and "{y}" in the templates are replaced with the arguments.
type Injector struct {
	KeyCommand   []string
	ClickCommand []string
	Timeout      time.Duration

	target capture.Interaction
	pm     *ProcessManager
	logger *slog.Logger
}

// NewInjector creates an injector gated by target. pm and logger may be nil.
func NewInjector(keyCmd, clickCmd []string, target capture.Interaction, pm *ProcessManager, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Injector{
		KeyCommand:   keyCmd,
		ClickCommand: clickCmd,
		Timeout:      5 * time.Second,
		target:       target,
		pm:           pm,
		logger:       logger.With("component", "injector"),
	}
}

// SendKey presses and releases key.
func (in *Injector) SendKey(ctx context.Context, key string) error {
	return in.exec(ctx, "key", in.KeyCommand, map[string]string{"{key}": key})
}

// Click clicks at frame coordinates x, y.
func (in *Injector) Click(ctx context.Context, x, y int) error {
	return in.exec(ctx, "click", in.ClickCommand, map[string]string{
		"{x}": strconv.Itoa(x),
		"{y}": strconv.Itoa(y),
	})
}

func (in *Injector) exec(ctx context.Context, action string, template []string, vars map[string]string) error {
	if len(template) == 0 {
		return fmt.Errorf("no %s command configured", action)
	}
	if in.target != nil && !in.target.ShouldCapture() {
		in.logger.Warn("input refused, target in background", "action", action)
		return fmt.Errorf("%s: %w", action, ErrNotInteractable)
	}

	argv := expand(template, vars)
	ctx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	cmd, err := newCommand(ctx, argv)
	if err != nil {
		return err
	}
	if _, _, err := runCommand(cmd, in.pm); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	in.logger.Debug("input sent", "action", action, "argv", argv)
	return nil
}

func expand(template []string, vars map[string]string) []string {
	out := make([]string, len(template))
	for i, arg := range template {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, k, v)
		}
		out[i] = arg
	}
	return out
}
