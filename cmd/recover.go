package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
)

func newRecoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Move jobs stuck in processing back to pending",
		Long: `Recover returns every job in the processing list to pending. Run it only
while no worker is consuming, for example after a crash of a deployment that
sets queue.disable_recover.`,
		Args: cobra.NoArgs,
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

			n, err := queue.New(rdb, cfg.Queue).Recover(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "recovered %d job(s)\n", n)
			return nil
		},
	}
}
