package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/http/handlers"
	"github.com/wolfman30/visit-report-ai/internal/llm"
)

var errParseFailed = errors.New("extraction reply could not be parsed")

type extractFlags struct {
	mode     string
	text     string
	textFile string
	audio    string
}

// NewExtractCommand creates the extract command
func NewExtractCommand(e *env) *cobra.Command {
	flags := &extractFlags{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extraction pipeline on a recording or notes",
		Long: `Send a recording and/or notes to the extraction service and print the
normalized result as JSON.

Examples:
  visitctl extract --audio visit.m4a
  visitctl extract --mode qna --text-file notes.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), e, cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.mode, "mode", string(extraction.ModeActivityReport), "activity_report or qna")
	cmd.Flags().StringVar(&flags.text, "text", "", "Notes or transcript text")
	cmd.Flags().StringVar(&flags.textFile, "text-file", "", "Read notes from a file")
	cmd.Flags().StringVar(&flags.audio, "audio", "", "Path to an audio recording")

	return cmd
}

func runExtract(ctx context.Context, e *env, out io.Writer, flags *extractFlags) error {
	in := extraction.Input{
		Mode: handlers.ParseMode(flags.mode),
		Text: strings.TrimSpace(flags.text),
	}
	if flags.textFile != "" {
		raw, err := afero.ReadFile(e.fs, flags.textFile)
		if err != nil {
			return fmt.Errorf("read text file: %w", err)
		}
		in.Text = strings.TrimSpace(strings.Join([]string{in.Text, string(raw)}, "\n"))
	}
	if flags.audio != "" {
		data, err := afero.ReadFile(e.fs, flags.audio)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		in.Audio = &llm.Media{
			MIMEType:    llm.MIMETypeForFile(flags.audio),
			DisplayName: filepath.Base(flags.audio),
			Data:        data,
		}
	}

	master, err := e.master()
	if err != nil {
		return err
	}
	client, closeClient, err := e.newLLM(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	svc := extraction.NewService(client, master, e.logger,
		extraction.WithLocation(extraction.Location(e.cfg.Timezone)),
		extraction.WithTimeout(e.cfg.ExtractionTimeout),
		extraction.WithClock(e.now),
	)
	result, err := svc.Extract(ctx, in)
	if err != nil {
		return err
	}
	if err := printJSON(out, result); err != nil {
		return err
	}
	if result.Status == extraction.StatusParseFailed {
		return errParseFailed
	}
	return nil
}
