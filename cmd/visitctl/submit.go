package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wolfman30/visit-report-ai/cmd/mainconfig"
	appconfig "github.com/wolfman30/visit-report-ai/internal/config"
	"github.com/wolfman30/visit-report-ai/internal/http/handlers"
	"github.com/wolfman30/visit-report-ai/internal/kintone"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/submission"
	"github.com/wolfman30/visit-report-ai/internal/submissionlog"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

type submitFlags struct {
	file   string
	dryRun bool
}

// NewSubmitCommand creates the submit command
func NewSubmitCommand(e *env) *cobra.Command {
	flags := &submitFlags{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a confirmed record to Kintone",
		Long: `Read a confirmed record (the same JSON the web form posts to /api/records)
and create it in Kintone. The submission is attempted once.

Examples:
  visitctl submit --file record.json
  visitctl submit --file record.json --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), e, cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.file, "file", "", "Path to the record JSON")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the Kintone payload instead of sending it")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSubmit(ctx context.Context, e *env, out io.Writer, flags *submitFlags) error {
	raw, err := afero.ReadFile(e.fs, flags.file)
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	var body handlers.SubmitRecordRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	req := body.ToRequest()

	master, err := e.master()
	if err != nil {
		return err
	}

	if flags.dryRun {
		rec := submission.Assemble(req.Report, req.Client, req.OperatorName, master.Roster(), nil)
		return printJSON(out, map[string]any{
			"app":    e.cfg.KintoneAppID,
			"record": kintone.BuildRecord(rec, master.CRMFields),
			"misses": rec.Misses,
		})
	}

	crm, err := e.newCRM(e.cfg, master, e.logger)
	if err != nil {
		return err
	}
	opts := []submission.Option{}
	if len(req.RecordingIDs) > 0 {
		store, err := mainconfig.NewRecordingStore(ctx, e.cfg, e.fs)
		if err != nil {
			return err
		}
		opts = append(opts, submission.WithAttachments(store))
	}
	if e.cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, e.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		opts = append(opts, submission.WithJournal(submissionlog.NewStore(pool)))
	}

	outcome, submitErr := submission.NewService(crm, master.Roster(), e.logger, opts...).Submit(ctx, req)
	if err := printJSON(out, outcome); err != nil {
		return err
	}
	return submitErr
}

func newKintoneCRM(cfg *appconfig.Config, master *masterdata.Data, logger *logging.Logger) (submission.CRM, error) {
	client, err := mainconfig.NewKintoneClient(cfg, master, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}
