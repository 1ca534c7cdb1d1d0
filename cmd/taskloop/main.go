// taskloop runs a cooperative, frame-driven task loop against a capture
// source, with an optional terminal dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aristath/taskloop/internal/config"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

func main() {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd creates the root cobra command.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "taskloop",
		Short:        "Frame-driven cooperative task loop",
		Long:         "taskloop captures frames from a source and runs registered tasks one at a time on a single worker.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (JSON or YAML); replaces the default global/project lookup")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format override (text, json)")

	root.AddCommand(
		newRunCmd(),
		newCheckResolutionCmd(),
		newHistoryCmd(),
	)

	return root
}

// loadConfig resolves the configuration and the paths the settings form
// saves to. An explicit --config file is used for both.
func loadConfig() (cfg *config.Config, globalPath, projectPath string, err error) {
	if flagConfig != "" {
		cfg, err = config.Load("", flagConfig)
		if err != nil {
			return nil, "", "", err
		}
		globalPath, projectPath = flagConfig, flagConfig
	} else {
		globalPath, projectPath, err = config.DefaultPaths()
		if err != nil {
			return nil, "", "", err
		}
		cfg, err = config.Load(globalPath, projectPath)
		if err != nil {
			return nil, "", "", err
		}
	}

	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
	return cfg, globalPath, projectPath, nil
}
