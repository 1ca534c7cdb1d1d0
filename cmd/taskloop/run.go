package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/config"
	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/interaction"
	"github.com/aristath/taskloop/internal/metrics"
	"github.com/aristath/taskloop/internal/scheduler"
	"github.com/aristath/taskloop/internal/tasks"
	"github.com/aristath/taskloop/internal/tui"
)

// idleStableFrames is how many identical captures count as a settled screen.
const idleStableFrames = 3

// shutdownTimeout bounds how long the metrics server gets to drain.
const shutdownTimeout = 5 * time.Second

type runOptions struct {
	frames      string
	headless    bool
	paused      bool
	focusCmd    []string
	metricsAddr string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the task loop",
		Long: `Start the task loop with the built-in tasks.

The loop starts immediately unless --paused is given. Without --headless a
terminal dashboard shows tasks and notifications; press p to pause or resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.frames, "frames", "", "Directory of PNG/JPEG frames to replay (default: a static demo frame)")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without the dashboard until interrupted")
	cmd.Flags().BoolVar(&opts.paused, "paused", false, "Start paused")
	cmd.Flags().StringSliceVar(&opts.focusCmd, "focus-cmd", nil, "Command whose exit status says whether the target can be captured")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runLoop(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	cfg, globalPath, projectPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.frames != "" {
		cfg.Capture.FramesDir = opts.frames
	}
	if len(opts.focusCmd) > 0 {
		cfg.Capture.FocusCommand = opts.focusCmd
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	logger, logCloser, err := newLogger(cfg.Logging, !opts.headless)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	src, srcDesc, err := newSource(cfg.Capture, logger)
	if err != nil {
		return err
	}

	// Create ProcessManager for subprocess tracking
	pm := interaction.NewProcessManager()
	defer func() {
		if err := pm.KillAll(); err != nil {
			logger.Warn("killing subprocesses", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	sessionID, err := store.StartSession(ctx, srcDesc)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer func() {
		endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := store.EndSession(endCtx, sessionID); err != nil {
			logger.Warn("ending session", "session", sessionID, "error", err)
		}
	}()

	bus := events.NewEventBus()
	defer bus.Close()

	target := newInteraction(cfg.Capture, pm, logger)
	injector := interaction.NewInjector(cfg.Capture.KeyCommand, cfg.Capture.ClickCommand, target, pm, logger)

	exec, err := scheduler.New(scheduler.Config{
		Source:      src,
		Interaction: target,
		Events:      bus,
		Logger:      logger,
		Metrics:     m,
		History:     store,
		SessionID:   sessionID,
		Options:     scheduler.OptionsFromConfig(cfg.Executor),
	})
	if err != nil {
		return err
	}
	if err := registerBuiltins(exec, cfg, injector, bus, logger); err != nil {
		return err
	}

	logger.Info("taskloop starting",
		"source", srcDesc,
		"session", sessionID,
		"tasks", len(exec.Tasks()),
		"headless", opts.headless,
	)

	if !opts.paused {
		exec.Start()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return exec.Run(gctx)
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(reg)}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if !opts.headless {
		model := tui.New(bus, exec, cfg, globalPath, projectPath)
		p := tea.NewProgram(model,
			tea.WithAltScreen(),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		)

		g.Go(func() error {
			// Quitting the dashboard stops everything else
			defer cancel()
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			p.Quit()
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutdown complete", "active_continuous", exec.ActiveContinuousCount())
	return err
}

// registerBuiltins adds the preflight check and the two frame watchers.
// Idle-watch presses the configured settle key through keys.
func registerBuiltins(exec *scheduler.Executor, cfg *config.Config, keys tasks.KeySender, bus events.Publisher, logger *slog.Logger) error {
	builtins := []*scheduler.Task{
		tasks.NewResolutionCheck(cfg.Capture.Ratio, capture.Size{
			Width:  cfg.Capture.MinWidth,
			Height: cfg.Capture.MinHeight,
		}, bus, logger),
		tasks.NewFrameChange(logger),
		tasks.NewIdleWatch(idleStableFrames, cfg.Executor.WaitTimeout.Std(), keys, cfg.Capture.SettleKey, logger),
	}
	for _, t := range builtins {
		if err := exec.Register(t); err != nil {
			return err
		}
	}
	return nil
}
