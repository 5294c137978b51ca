package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP intake API and the worker pool",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return bootstrap.Start(cfgFile)
		},
	}
}
