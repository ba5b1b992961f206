// Package cli implements the chartlog command line: inspection and
// maintenance of durable encounter records.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chartlog/chartlog/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath  string
	Verbose bool
}

// NewRootCommand creates the root command for the chartlog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chartlog",
		Short: "chartlog - encounter event ledger tooling",
		Long:  "Inspect, export, and validate durable clinical-simulation encounter records.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.DBPath == "" {
				return fmt.Errorf("--db is required")
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the encounter database")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))

	return cmd
}

// openStore opens the database at the configured path.
func openStore(opts *RootOptions) (*store.Store, error) {
	s, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", opts.DBPath, err)
	}
	return s, nil
}
