package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/taskloop/internal/capture"
	"github.com/aristath/taskloop/internal/scheduler"
)

func newCheckResolutionCmd() *cobra.Command {
	var (
		frames string
		ratio  string
	)

	cmd := &cobra.Command{
		Use:   "check-resolution",
		Short: "Check that the capture source has a supported resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if frames != "" {
				cfg.Capture.FramesDir = frames
			}
			if ratio != "" {
				cfg.Capture.Ratio = ratio
			}

			logger, closer, err := newLogger(cfg.Logging, false)
			if err != nil {
				return err
			}
			defer closer.Close()

			src, desc, err := newSource(cfg.Capture, logger)
			if err != nil {
				return err
			}
			exec, err := scheduler.New(scheduler.Config{
				Source:  src,
				Logger:  logger,
				Options: scheduler.OptionsFromConfig(cfg.Executor),
			})
			if err != nil {
				return err
			}

			ok, size, err := exec.CheckResolution(cmd.Context(), cfg.Capture.Ratio, capture.Size{
				Width:  cfg.Capture.MinWidth,
				Height: cfg.Capture.MinHeight,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:     %s\n", desc)
			fmt.Fprintf(out, "Resolution: %s\n", size)
			fmt.Fprintf(out, "Supported:  %t\n", ok)
			if !ok {
				return fmt.Errorf("resolution %s is not supported", size)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&frames, "frames", "", "Directory of PNG/JPEG frames to check")
	cmd.Flags().StringVar(&ratio, "ratio", "", "Required aspect ratio, e.g. 16:9 (default from config)")

	return cmd
}
