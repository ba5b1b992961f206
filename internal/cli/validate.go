package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chartlog/chartlog/internal/session"
)

// NewValidateCommand checks a stored encounter document against the schema.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a stored encounter document against the schema",
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

			if err := session.ValidateDocument(rec); err != nil {
				return &ExitError{Code: ExitFailure, Err: fmt.Errorf("session %s: %w", sessionID, err)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: valid (%d events)\n", sessionID, len(rec.Events))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	cmd.MarkFlagRequired("session")

	return cmd
}
