package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chartlog/chartlog/internal/ledger"
	"github.com/chartlog/chartlog/internal/narrative"
)

// NewShowCommand renders a stored encounter in one of the narrative styles.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	var (
		sessionID string
		styleStr  string
		allowStr  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render a stored encounter as timeline, summary, or context",
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := narrative.ParseStyle(styleStr)
			if err != nil {
				return err
			}
			allow, err := parseAllowList(allowStr)
			if err != nil {
				return err
			}

			s, err := openStore(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("load session %s: %w", sessionID, err)
			}

			text, err := narrative.Render(style, narrative.FromRecord(rec), narrative.Options{Allow: allow})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	cmd.Flags().StringVar(&styleStr, "style", string(narrative.StyleTimeline), "projection style (timeline|summary|context)")
	cmd.Flags().StringVar(&allowStr, "allow", "", "comma-separated verb allow-list (default: all verbs)")
	cmd.MarkFlagRequired("session")

	return cmd
}

// parseAllowList parses a comma-separated verb list into a VerbSet.
// Empty input means no filtering.
func parseAllowList(s string) (narrative.VerbSet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	set := narrative.VerbSet{}
	for _, part := range strings.Split(s, ",") {
		verb, err := ledger.ParseVerb(part)
		if err != nil {
			return nil, err
		}
		set[verb] = true
	}
	return set, nil
}
