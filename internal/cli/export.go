package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExportCommand prints the canonical JSON document for a stored encounter.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an encounter document as canonical JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("load session %s: %w", sessionID, err)
			}

			doc, err := rec.MarshalCanonical()
			if err != nil {
				return fmt.Errorf("canonicalize session %s: %w", sessionID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	cmd.MarkFlagRequired("session")

	return cmd
}
