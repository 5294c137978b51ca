package cmd

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/domain"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/fetcher"
)

func newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Fetch a URL and print the metadata a worker would store",
		Long: `Resolve runs the fetcher and extractor chain for one URL and prints the
result. Nothing is written to the database or the queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadCLIConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := contextWithTimeout(cmd, cfg.Worker.JobTimeout)
			defer cancel()

			res, resolveErr := bootstrap.NewResolver(cfg, log).Resolve(ctx, args[0])

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Field", "Value"})
			t.AppendRow(table.Row{"provider", res.Provider})
			if resolveErr != nil {
				t.AppendRow(table.Row{"error", resolveErr.Error()})
				t.AppendRow(table.Row{"kind", fetcher.Kind(resolveErr)})
				t.AppendRow(table.Row{"transient", strconv.FormatBool(domain.IsTransient(resolveErr))})
				t.Render()
				return fmt.Errorf("resolve %s: %w", args[0], resolveErr)
			}
			appendMetadataRows(t, res.Metadata)
			t.Render()
			return nil
		},
	}
}

func appendMetadataRows(t table.Writer, md *domain.Metadata) {
	if md.IsEmpty() {
		t.AppendRow(table.Row{"metadata", "(empty)"})
		return
	}
	t.AppendRows([]table.Row{
		{"title", md.Title},
		{"description", md.Description},
		{"image", md.Image},
		{"site_name", md.SiteName},
	})
	if md.Embed != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"embed.provider", md.Embed.Provider},
			{"embed.url", md.Embed.EmbedURL},
			{"embed.height", md.Embed.Height},
			{"embed.kind", md.Embed.Kind},
		})
	}
}
