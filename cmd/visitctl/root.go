package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wolfman30/visit-report-ai/cmd/mainconfig"
	appconfig "github.com/wolfman30/visit-report-ai/internal/config"
	"github.com/wolfman30/visit-report-ai/internal/llm"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/submission"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

// env carries the dependencies commands build on demand. Tests swap the
// factories for fakes.
type env struct {
	cfg    *appconfig.Config
	fs     afero.Fs
	now    func() time.Time
	logger *logging.Logger

	newLLM      func(ctx context.Context, cfg *appconfig.Config) (llm.Client, func(), error)
	newCRM      func(cfg *appconfig.Config, master *masterdata.Data, logger *logging.Logger) (submission.CRM, error)
	openHistory func(ctx context.Context, cfg *appconfig.Config) (historySource, func(), error)
}

func defaultEnv() *env {
	cfg := appconfig.Load()
	return &env{
		cfg:         cfg,
		fs:          afero.NewOsFs(),
		now:         time.Now,
		logger:      logging.NewWithWriter(cfg.LogLevel, "text", os.Stderr),
		newLLM:      mainconfig.NewLLMClient,
		newCRM:      newKintoneCRM,
		openHistory: openSubmissionLog,
	}
}

func (e *env) master() (*masterdata.Data, error) {
	return masterdata.LoadFS(e.fs, e.cfg.MasterDataPath)
}

// NewRootCommand creates the visitctl command tree.
func NewRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "visitctl",
		Short:         "Extract, review and submit sales visit reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		NewExtractCommand(e),
		NewFollowUpCommand(e),
		NewOptionsCommand(e),
		NewSubmitCommand(e),
		NewHistoryCommand(e),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
