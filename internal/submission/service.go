package submission

import (
	"context"
	"io"
	"strings"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/observability/metrics"
	"github.com/wolfman30/visit-report-ai/internal/submissionlog"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

// Receipt identifies a record created in the CRM.
type Receipt struct {
	ID       string
	Revision string
}

// CRM is the record store submissions go to.
type CRM interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (string, error)
	Submit(ctx context.Context, rec Record) (Receipt, error)
}

// AttachmentSource opens saved recordings by ID.
type AttachmentSource interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// Journal records submission attempts.
type Journal interface {
	Append(ctx context.Context, e submissionlog.Entry) error
}

// Request is one operator-confirmed submission.
type Request struct {
	Report       extraction.ActivityRecord
	Client       *ClientContext
	OperatorName string
	RecordingIDs []string
}

type AttachmentFailure struct {
	RecordingID string `json:"recording_id"`
	Error       string `json:"error"`
}

// Outcome reports what happened to a submission. ErrorDetail carries the
// CRM's own error text when the record was rejected.
type Outcome struct {
	OK                 bool                `json:"ok"`
	CRMRecordID        string              `json:"crm_record_id,omitempty"`
	Revision           string              `json:"revision,omitempty"`
	ErrorDetail        string              `json:"error_detail,omitempty"`
	AttachmentFailures []AttachmentFailure `json:"attachment_failures,omitempty"`
	Record             Record              `json:"record"`
}

// Service uploads attachments, assembles the record and submits it once.
// There is no automatic retry.
type Service struct {
	crm         CRM
	roster      Roster
	attachments AttachmentSource
	journal     Journal
	metrics     *metrics.PipelineMetrics
	logger      *logging.Logger
}

type Option func(*Service)

func WithAttachments(src AttachmentSource) Option {
	return func(s *Service) { s.attachments = src }
}

func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(crm CRM, roster Roster, logger *logging.Logger, opts ...Option) *Service {
	if crm == nil {
		panic("submission: crm required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{crm: crm, roster: roster, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends req to the CRM. Attachment failures are logged and skipped.
// A rejected record returns an Outcome with ErrorDetail and an
// *UpstreamError.
func (s *Service) Submit(ctx context.Context, req Request) (Outcome, error) {
	uploads, failures := s.uploadAttachments(ctx, req.RecordingIDs)

	rec := Assemble(req.Report, req.Client, req.OperatorName, s.roster, uploads)
	for _, miss := range rec.Misses {
		s.logger.Warn("operator not on roster", "operator_name", miss.Name)
	}

	outcome := Outcome{AttachmentFailures: failures, Record: rec}
	receipt, err := s.crm.Submit(ctx, rec)
	if err != nil {
		upErr := upstream("kintone", err)
		outcome.ErrorDetail = upErr.Detail
		if outcome.ErrorDetail == "" {
			outcome.ErrorDetail = err.Error()
		}
		s.metrics.ObserveSubmission("error")
		s.logger.Error("crm submission failed",
			"client_id", rec.ClientID,
			"operator_code", rec.OperatorCode,
			"attachments", len(rec.AttachmentKeys),
			"error", err,
		)
		s.record(ctx, rec, outcome)
		return outcome, upErr
	}

	outcome.OK = true
	outcome.CRMRecordID = receipt.ID
	outcome.Revision = receipt.Revision
	s.metrics.ObserveSubmission("ok")
	s.logger.Info("crm record created",
		"record_id", receipt.ID,
		"client_id", rec.ClientID,
		"operator_code", rec.OperatorCode,
		"attachments", len(rec.AttachmentKeys),
	)
	s.record(ctx, rec, outcome)
	return outcome, nil
}

func (s *Service) uploadAttachments(ctx context.Context, ids []string) ([]UploadResult, []AttachmentFailure) {
	var uploads []UploadResult
	var failures []AttachmentFailure
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key, err := s.uploadOne(ctx, id)
		s.metrics.ObserveAttachment(err == nil)
		if err != nil {
			s.logger.Warn("attachment upload failed", "recording_id", id, "error", err)
			failures = append(failures, AttachmentFailure{RecordingID: id, Error: err.Error()})
		}
		uploads = append(uploads, UploadResult{Name: id, FileKey: key, Err: err})
	}
	return uploads, failures
}

func (s *Service) uploadOne(ctx context.Context, id string) (string, error) {
	if s.attachments == nil {
		return "", upstream("recordings", errNoAttachmentSource)
	}
	rc, err := s.attachments.Open(ctx, id)
	if err != nil {
		return "", upstream("recordings", err)
	}
	defer rc.Close()

	key, err := s.crm.UploadFile(ctx, id, rc)
	if err != nil {
		return "", upstream("kintone", err)
	}
	return key, nil
}

// record appends to the journal. Failures are logged and never surface.
func (s *Service) record(ctx context.Context, rec Record, outcome Outcome) {
	if s.journal == nil {
		return
	}
	status := submissionlog.StatusOK
	if !outcome.OK {
		status = submissionlog.StatusFailed
	}
	entry := submissionlog.Entry{
		Status:          status,
		CRMRecordID:     outcome.CRMRecordID,
		CRMRevision:     outcome.Revision,
		ErrorDetail:     outcome.ErrorDetail,
		OperatorName:    rec.OperatorName,
		OperatorCode:    rec.OperatorCode,
		ClientID:        rec.ClientID,
		ActivityType:    rec.ActivityType,
		ActionDate:      rec.ActionDate,
		AttachmentCount: len(rec.AttachmentKeys),
	}
	if err := s.journal.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("submission log append failed", "error", err)
	}
}
