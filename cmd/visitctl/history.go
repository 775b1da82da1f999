package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/visit-report-ai/internal/config"
	"github.com/wolfman30/visit-report-ai/internal/submissionlog"
)

// historySource lists recent submission attempts.
type historySource interface {
	Recent(ctx context.Context, limit int) ([]submissionlog.Entry, error)
}

type historyFlags struct {
	limit   int
	jsonOut bool
}

// NewHistoryCommand creates the history command
func NewHistoryCommand(e *env) *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent submission attempts",
		Long: `List the submission log, newest first. Requires DATABASE_URL.

Examples:
  visitctl history --limit 10
  visitctl history --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := e.openHistory(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			defer closeSrc()
			return runHistory(cmd.Context(), src, cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().IntVar(&flags.limit, "limit", 20, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Output in JSON format")

	return cmd
}

func runHistory(ctx context.Context, src historySource, out io.Writer, flags *historyFlags) error {
	entries, err := src.Recent(ctx, flags.limit)
	if err != nil {
		return err
	}
	if flags.jsonOut {
		return printJSON(out, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No submissions recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSTATUS\tRECORD\tOPERATOR\tCLIENT\tACTIVITY\tFILES")
	for _, en := range entries {
		record := en.CRMRecordID
		if record == "" {
			record = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			en.CreatedAt.Format("2006-01-02 15:04"),
			en.Status,
			record,
			en.OperatorName,
			en.ClientID,
			en.ActivityType,
			en.AttachmentCount,
		)
	}
	return tw.Flush()
}

func openSubmissionLog(ctx context.Context, cfg *appconfig.Config) (historySource, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, errors.New("DATABASE_URL is required for history")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect database: %w", err)
	}
	return submissionlog.NewStore(pool), pool.Close, nil
}
