package extraction

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/visit-report-ai/internal/llm"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/observability/metrics"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

var extractionTracer = otel.Tracer("visitreport/extraction")

const maxLoggedReply = 2048

// Result statuses.
const (
	StatusExtracted   = "extracted"
	StatusParseFailed = "parse_failed"
)

// Input is one extraction request. At least one of Text or Audio is required.
type Input struct {
	Mode  Mode
	Text  string
	Audio *llm.Media
}

// Result is the outcome of a completed extraction call. A parse failure is a
// result, not an error: Raw carries the reply for the operator to inspect.
type Result struct {
	Mode     Mode            `json:"mode"`
	Status   string          `json:"status"`
	Report   *ActivityRecord `json:"report,omitempty"`
	QnA      QnaRecord       `json:"qna,omitempty"`
	Warnings []Warning       `json:"warnings,omitempty"`
	Failure  string          `json:"failure,omitempty"`
	Raw      string          `json:"raw,omitempty"`
}

// Service runs the extraction pipeline: instructions, service call, parse,
// date defaulting and review warnings.
type Service struct {
	client   llm.Client
	master   *masterdata.Data
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTimeout bounds each extraction service call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(client llm.Client, master *masterdata.Data, logger *logging.Logger, opts ...Option) *Service {
	if client == nil {
		panic("extraction: llm client is required")
	}
	if master == nil {
		panic("extraction: master data is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		client:   client,
		master:   master,
		logger:   logger,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current date in the service time zone.
func (s *Service) Today() string {
	return s.now().In(s.location).Format(ISODate)
}

// Extract runs one request through the pipeline. Upstream failures are
// returned as errors; an unusable reply yields a parse_failed result.
func (s *Service) Extract(ctx context.Context, in Input) (Result, error) {
	spec, err := LookupMode(string(in.Mode))
	if err != nil {
		return Result{}, err
	}
	text := strings.TrimSpace(in.Text)
	hasAudio := in.Audio != nil && len(in.Audio.Data) > 0
	if text == "" && !hasAudio {
		return Result{}, ErrNoInput
	}

	ctx, span := extractionTracer.Start(ctx, "extraction.extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("extraction.mode", string(spec.Mode)),
		attribute.String("extraction.provider", s.client.Name()),
		attribute.Bool("extraction.has_audio", hasAudio),
		attribute.Int("extraction.text_chars", utf8.RuneCountInString(text)),
	)

	now := s.now().In(s.location)
	params := ParamsFromMasterData(s.master, now.Format(ISODate))
	params.HasAudio = hasAudio
	params.HasText = text != ""

	instructions, err := spec.Instructions(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instructions")
		return Result{}, err
	}

	req := llm.Request{
		System:      []string{instructions},
		Prompt:      buildPrompt(text, hasAudio),
		Temperature: 0.2,
	}
	if hasAudio {
		req.Media = []llm.Media{*in.Audio}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := s.client.Complete(callCtx, req)
	s.metrics.ObserveExtractionLatency(string(spec.Mode), s.client.Name(), time.Since(started).Seconds())
	if err != nil {
		s.metrics.ObserveExtraction(string(spec.Mode), "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction call failed")
		s.logger.Error("extraction call failed",
			"mode", spec.Mode,
			"provider", s.client.Name(),
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err,
		)
		return Result{}, err
	}
	s.logger.Debug("extraction reply received",
		"mode", spec.Mode,
		"provider", s.client.Name(),
		"stop_reason", resp.StopReason,
		"total_tokens", resp.Usage.TotalTokens,
		"reply", truncate(resp.Text, maxLoggedReply),
	)

	extracted, err := ParseReply(spec, resp.Text)
	if err != nil {
		var failure *ParseFailure
		if !errors.As(err, &failure) {
			return Result{}, err
		}
		s.metrics.ObserveExtraction(string(spec.Mode), StatusParseFailed)
		span.SetAttributes(attribute.String("extraction.status", StatusParseFailed))
		s.logger.Warn("extraction reply unusable",
			"mode", spec.Mode,
			"provider", s.client.Name(),
			"stage", failure.Stage,
			"reason", failure.Reason,
		)
		return Result{
			Mode:    spec.Mode,
			Status:  StatusParseFailed,
			Failure: failure.Error(),
			Raw:     resp.Text,
		}, nil
	}

	result := Result{Mode: spec.Mode, Status: StatusExtracted}
	switch spec.Mode {
	case ModeActivityReport:
		rec := *extracted.Report
		result.Warnings = s.finishReport(&rec, now)
		result.Report = &rec
	default:
		result.QnA = extracted.QnA
	}

	s.metrics.ObserveExtraction(string(spec.Mode), StatusExtracted)
	span.SetAttributes(
		attribute.String("extraction.status", StatusExtracted),
		attribute.Int("extraction.warnings", len(result.Warnings)),
	)
	s.logger.Info("extraction completed",
		"mode", spec.Mode,
		"provider", s.client.Name(),
		"duration_ms", time.Since(started).Milliseconds(),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// finishReport normalizes the date fields, fills the default follow-up date
// when none was extracted and collects review warnings.
func (s *Service) finishReport(rec *ActivityRecord, now time.Time) []Warning {
	var warnings []Warning
	for _, key := range []string{FieldActionDate, FieldNextActionDate} {
		dst := rec.field(key)
		if IsPlaceholder(*dst) {
			*dst = ""
		}
		normalized, ok := NormalizeDate(*dst)
		if !ok {
			warnings = append(warnings, Warning{
				Field:   key,
				Code:    WarnInvalidDate,
				Message: "date could not be read: " + *dst,
			})
			continue
		}
		*dst = normalized
	}

	if rec.NextActionDate == "" {
		rec.NextActionDate = DefaultFollowUpDate(rec.ActionDate, now)
	}

	for _, key := range []string{FieldActivityType, FieldNextActivityType} {
		label := *rec.field(key)
		if label != "" && !IsPlaceholder(label) && !s.master.IsActivityLabel(label) {
			warnings = append(warnings, Warning{
				Field:   key,
				Code:    WarnUnknownLabel,
				Message: "not in the activity catalog: " + label,
			})
		}
	}
	return append(warnings, FindOverlaps(*rec)...)
}

func buildPrompt(text string, hasAudio bool) string {
	switch {
	case text != "" && hasAudio:
		return "Use the attached recording together with this memo.\n\nMemo:\n" + text
	case text != "":
		return "Memo:\n" + text
	default:
		return "Extract the record from the attached recording."
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
