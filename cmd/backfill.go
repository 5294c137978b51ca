package cmd

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/intake"
)

const defaultBackfillLimit = 500

// unresolvedLister lists links that still have no metadata.
type unresolvedLister interface {
	ListUnresolved(ctx context.Context, limit int) ([]domain.LinkRecord, error)
}

// backfillResult counts what one backfill run did.
type backfillResult struct {
	Found  int
	Queued int
}

func newBackfillCommand() *cobra.Command {
	var (
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Queue links that never received metadata",
		Long: `Backfill finds links on live content whose metadata is still NULL, oldest
first, and queues them. Use it after an outage dropped enqueues on the write
path. Links already queued are harmless to queue again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadCLIConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := contextWithTimeout(cmd, defaultCommandTimeout)
			defer cancel()

			db, err := bootstrap.SetupDatabase(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			rdb, err := bootstrap.SetupRedis(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer func() { _ = rdb.Close() }()

			svc := bootstrap.SetupServices(cfg, db, rdb, log)

			var hook *intake.Hook
			if !dryRun {
				hook = svc.Hook
			}
			res, err := runBackfill(ctx, svc.Links, hook, limit, log)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Unresolved", "Queued", "Dry run"})
			t.AppendRow(table.Row{res.Found, res.Queued, dryRun})
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultBackfillLimit, "maximum number of links to queue")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count unresolved links without queueing them")
	return cmd
}

// runBackfill queues up to limit unresolved links. A nil hook only counts.
func runBackfill(
	ctx context.Context,
	links unresolvedLister,
	hook *intake.Hook,
	limit int,
	log infralogger.Logger,
) (backfillResult, error) {
	records, err := links.ListUnresolved(ctx, limit)
	if err != nil {
		return backfillResult{}, err
	}

	res := backfillResult{Found: len(records)}
	if hook == nil {
		return res, nil
	}

	for i := range records {
		link := &records[i]
		if hook.LinkCreated(ctx, link.ContentID, link.ID, link.URL) {
			res.Queued++
		}
	}

	log.Info("Backfill finished",
		infralogger.Int("found", res.Found),
		infralogger.Int("queued", res.Queued),
	)
	return res, nil
}
