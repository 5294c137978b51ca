package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
)

const defaultCommandTimeout = 30 * time.Second

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultCommandTimeout
	}
	return context.WithTimeout(cmd.Context(), d)
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue depths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadCLIConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := contextWithTimeout(cmd, defaultCommandTimeout)
			defer cancel()

			rdb, err := bootstrap.SetupRedis(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer func() { _ = rdb.Close() }()

			stats, err := queue.New(rdb, cfg.Queue).Stats(ctx)
			if err != nil {
				return err
			}
			renderStats(newTable(cmd.OutOrStdout()), stats)
			return nil
		},
	}
}

func renderStats(t table.Writer, stats queue.Stats) {
	t.AppendHeader(table.Row{"State", "Jobs"})
	t.AppendRows([]table.Row{
		{"pending", stats.Pending},
		{"processing", stats.Processing},
		{"delayed", stats.Delayed},
	})
	t.AppendFooter(table.Row{"total", stats.Total()})
	t.Render()
}
