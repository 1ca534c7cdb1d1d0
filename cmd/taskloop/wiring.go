package main

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/config"
	"github.com/aristath/taskloop/internal/interaction"
	"github.com/aristath/taskloop/internal/logging"
	"github.com/aristath/taskloop/internal/persistence"
)

// demoFrame is served when no frames directory is configured.
var demoFrame = capture.SolidFrame(1920, 1080, color.Gray{Y: 0x40})

// newLogger builds the process logger. When the dashboard owns the terminal
// logs go to the configured file, or nowhere.
func newLogger(cfg config.LoggingConfig, terminalBusy bool) (*slog.Logger, io.Closer, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File != "" {
		return logging.NewFileLogger(level, cfg.Format, cfg.File)
	}
	if terminalBusy {
		return logging.Discard(), io.NopCloser(nil), nil
	}
	return logging.NewLogger(level, cfg.Format), io.NopCloser(nil), nil
}

// newSource opens the configured frame source behind retries and a breaker.
// It also returns a short description for the session journal.
func newSource(cfg config.CaptureConfig, logger *slog.Logger) (capture.Source, string, error) {
	var (
		src  capture.Source
		desc string
	)
	if cfg.FramesDir == "" {
		src = capture.NewStaticSource(demoFrame)
		desc = "static:" + demoFrame.Resolution()
	} else {
		dir, err := capture.NewDirSource(cfg.FramesDir)
		if err != nil {
			return nil, "", err
		}
		src = dir
		desc = "dir:" + cfg.FramesDir
	}

	retry := capture.DefaultRetryConfig()
	retry.InitialInterval = cfg.RetryInitial.Std()
	retry.MaxInterval = cfg.RetryMax.Std()
	retry.MaxElapsedTime = cfg.RetryMaxElapsed.Std()

	return capture.NewResilientSource(src, retry, capture.BreakerConfig{
		ConsecutiveFailures: cfg.BreakerFailures,
		OpenTimeout:         cfg.BreakerOpenTimeout.Std(),
	}, logger), desc, nil
}

// newInteraction returns the focus probe for the capture target. Without a
// configured command the target is always considered capturable.
func newInteraction(cfg config.CaptureConfig, pm *interaction.ProcessManager, logger *slog.Logger) capture.Interaction {
	if len(cfg.FocusCommand) == 0 {
		return interaction.Always(true)
	}
	return interaction.NewCommandProbe(cfg.FocusCommand, cfg.FocusTTL.Std(), pm, logger)
}

// openStore opens the run journal. An empty path keeps it in memory.
func openStore(ctx context.Context, path string) (*persistence.SQLiteStore, error) {
	if path == "" {
		return persistence.NewMemoryStore(ctx)
	}
	store, err := persistence.NewSQLiteStore(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	return store, nil
}
