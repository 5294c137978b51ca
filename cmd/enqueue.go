package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/queue"
)

func newEnqueueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <content-id> <link-id> <url>",
		Short: "Queue one link for enrichment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := domain.NewEnrichmentJob(args[0], args[1], args[2])
			if err != nil {
				return err
			}

			cfg, log, err := loadCLIConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			rdb, err := bootstrap.SetupRedis(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer func() { _ = rdb.Close() }()

			if enqueueErr := queue.New(rdb, cfg.Queue).Enqueue(ctx, job); enqueueErr != nil {
				return enqueueErr
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued link %s (%s)\n", job.LinkID, job.URL)
			return nil
		},
	}
}
