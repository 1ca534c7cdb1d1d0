package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/taskloop/internal/metrics"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		task  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent task runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("no history path configured (set history.path)")
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-20s  %-10s  %-10s  %-10s  %-19s  %s\n", "TASK", "KIND", "OUTCOME", "DURATION", "STARTED", "ERROR")
			fmt.Fprintf(out, "%-20s  %-10s  %-10s  %-10s  %-19s  %s\n", "----", "----", "-------", "--------", "-------", "-----")
			for _, r := range runs {
				if task != "" && r.Task != task {
					continue
				}
				fmt.Fprintf(out, "%-20s  %-10s  %-10s  %-10s  %-19s  %s\n",
					r.Task, r.Kind, r.Outcome,
					r.Duration().Round(time.Millisecond),
					r.StartedAt.Local().Format(time.DateTime),
					r.Error,
				)
			}

			fmt.Fprintln(out)
			for _, outcome := range []string{metrics.OutcomeCompleted, metrics.OutcomeFailed, metrics.OutcomeDisabled, metrics.OutcomeFinished} {
				n, err := store.CountRuns(ctx, task, outcome)
				if err != nil {
					return fmt.Errorf("count runs: %w", err)
				}
				fmt.Fprintf(out, "%s: %d  ", outcome, n)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&task, "task", "", "Only show runs of this task")

	return cmd
}
