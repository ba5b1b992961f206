package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSessionsCommand lists the sessions stored in the database.
func NewSessionsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := s.ListSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, id := range ids {
				count, err := s.EventCount(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("count events for %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d events\n", id, count)
			}
			return nil
		},
	}

	return cmd
}
