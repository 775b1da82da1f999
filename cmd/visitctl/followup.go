package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
)

// NewFollowUpCommand creates the followup command
func NewFollowUpCommand(e *env) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "followup",
		Short: "Print the default follow-up date for an activity date",
		Long: `Print the date three days after --base, moved off weekends. Without
--base (or with an unreadable one) today is used.

Examples:
  visitctl followup --base 2024-05-17
  visitctl followup --base 2024年5月17日`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := e.now().In(extraction.Location(e.cfg.Timezone))
			if normalized, ok := extraction.NormalizeDate(base); ok {
				base = normalized
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), extraction.DefaultFollowUpDate(base, now))
			return err
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "Activity date the follow-up is counted from")
	return cmd
}
