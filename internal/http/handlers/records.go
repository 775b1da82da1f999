package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/submission"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

const maxRecordBodyBytes = 1 << 20

// Submitter sends confirmed records to the CRM.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (submission.Outcome, error)
}

// RecordsHandler serves POST /api/records.
type RecordsHandler struct {
	submitter Submitter
	logger    *logging.Logger
}

// NewRecordsHandler returns a handler that answers 503 while submitter is nil.
func NewRecordsHandler(submitter Submitter, logger *logging.Logger) *RecordsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordsHandler{submitter: submitter, logger: logger}
}

// SubmitRecordRequest is the confirmation form as posted by the browser.
type SubmitRecordRequest struct {
	extraction.ActivityRecord
	Client       *submission.ClientContext `json:"client,omitempty"`
	ClientID     string                    `json:"client_id,omitempty"`
	ClientName   string                    `json:"client_name,omitempty"`
	OperatorName string                    `json:"operator_name"`
	RecordingID  string                    `json:"recording_id,omitempty"`
	RecordingIDs []string                  `json:"recording_ids,omitempty"`
}

// ToRequest folds the flat and nested client fields into one request.
func (b SubmitRecordRequest) ToRequest() submission.Request {
	req := submission.Request{
		Report:       b.ActivityRecord,
		Client:       b.Client,
		OperatorName: strings.TrimSpace(b.OperatorName),
	}
	if req.Client == nil && strings.TrimSpace(b.ClientID) != "" {
		req.Client = &submission.ClientContext{ID: b.ClientID, DisplayName: b.ClientName}
	}

	seen := make(map[string]struct{})
	for _, id := range append([]string{b.RecordingID}, b.RecordingIDs...) {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		req.RecordingIDs = append(req.RecordingIDs, id)
	}
	return req
}

func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "crm not configured", "")
		return
	}

	var body SubmitRecordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", err.Error())
		return
	}

	outcome, err := h.submitter.Submit(r.Context(), body.ToRequest())
	if err != nil {
		var upErr *submission.UpstreamError
		if errors.As(err, &upErr) {
			writeJSON(w, http.StatusBadGateway, outcome)
			return
		}
		h.logger.Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "submission failed", "")
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}
