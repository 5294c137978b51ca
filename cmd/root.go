// Package cmd implements the link-enricher command-line interface: the
// service itself plus operator commands for the queue.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/link-enricher/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/link-enricher/internal/config"
)

// cfgFile holds the path to the configuration file.
var cfgFile string

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "link-enricher",
		Short:         "Resolves link previews for content in the background",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $CONFIG_PATH or ./"+bootstrap.DefaultConfigPath+")",
	)

	root.AddCommand(
		newServeCommand(),
		newEnqueueCommand(),
		newResolveCommand(),
		newStatsCommand(),
		newRecoverCommand(),
		newBackfillCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// loadCLIConfig loads configuration and a logger that writes to stderr so
// command output on stdout stays clean.
func loadCLIConfig() (*config.Config, infralogger.Logger, error) {
	cfg, err := bootstrap.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Logging.OutputPaths = []string{"stderr"}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}
