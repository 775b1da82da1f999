package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/llm"
	"github.com/wolfman30/visit-report-ai/internal/recordings"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

const (
	defaultMaxUploadBytes = 50 << 20
	multipartMemory       = 32 << 20
)

// legacyModes maps the mode values older form builds still post.
var legacyModes = map[string]extraction.Mode{
	"sales": extraction.ModeActivityReport,
	"qa":    extraction.ModeQnA,
}

// Extractor runs the extraction pipeline.
type Extractor interface {
	Extract(ctx context.Context, in extraction.Input) (extraction.Result, error)
}

// RecordingSaver keeps uploaded audio for attachment at submit time.
type RecordingSaver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

type ExtractionConfig struct {
	Extractor      Extractor
	Recordings     RecordingSaver
	MaxUploadBytes int64
	Logger         *logging.Logger
}

// ExtractionHandler serves POST /api/extractions.
type ExtractionHandler struct {
	extractor  Extractor
	recordings RecordingSaver
	maxUpload  int64
	logger     *logging.Logger
}

func NewExtractionHandler(cfg ExtractionConfig) *ExtractionHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &ExtractionHandler{
		extractor:  cfg.Extractor,
		recordings: cfg.Recordings,
		maxUpload:  cfg.MaxUploadBytes,
		logger:     cfg.Logger,
	}
}

// ExtractionResponse wraps the pipeline result with the form context the
// confirmation step needs.
type ExtractionResponse struct {
	extraction.Result
	RecordingID string                `json:"recording_id,omitempty"`
	StaffName   string                `json:"staff_name,omitempty"`
	Client      *extractionClientEcho `json:"client,omitempty"`
}

type extractionClientEcho struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParseMode accepts the catalog identifiers and the legacy form values.
func ParseMode(raw string) extraction.Mode {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return extraction.ModeActivityReport
	}
	if m, ok := legacyModes[raw]; ok {
		return m
	}
	return extraction.Mode(raw)
}

// Create handles a multipart form with mode, text, audio, staff_name,
// client_id and client_name.
func (h *ExtractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction service not configured", "")
		return
	}

	if r.ContentLength > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large", "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in := extraction.Input{
		Mode: ParseMode(r.FormValue("mode")),
		Text: strings.TrimSpace(r.FormValue("text")),
	}

	audio, err := readAudio(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read audio upload", err.Error())
		return
	}
	in.Audio = audio

	if _, err := extraction.LookupMode(string(in.Mode)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if in.Text == "" && in.Audio == nil {
		writeError(w, http.StatusBadRequest, extraction.ErrNoInput.Error(), "")
		return
	}

	resp := ExtractionResponse{StaffName: strings.TrimSpace(r.FormValue("staff_name"))}
	if id := strings.TrimSpace(r.FormValue("client_id")); id != "" {
		resp.Client = &extractionClientEcho{ID: id, Name: strings.TrimSpace(r.FormValue("client_name"))}
	}

	if in.Audio != nil && h.recordings != nil {
		id, err := h.recordings.Save(r.Context(), in.Audio.DisplayName, in.Audio.Data)
		if err != nil {
			h.logger.Warn("recording not saved", "file_name", in.Audio.DisplayName, "error", err)
		} else {
			resp.RecordingID = id
		}
	}

	result, err := h.extractor.Extract(r.Context(), in)
	if err != nil {
		h.writeExtractionError(w, err)
		return
	}
	resp.Result = result

	status := http.StatusOK
	if result.Status == extraction.StatusParseFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (h *ExtractionHandler) writeExtractionError(w http.ResponseWriter, err error) {
	var unknown *extraction.UnknownModeError
	var upstream *llm.UpstreamError
	switch {
	case errors.As(err, &unknown), errors.Is(err, extraction.ErrNoInput), errors.Is(err, llm.ErrMediaUnsupported):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "extraction service timed out", "")
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, "extraction service failed", upstream.Err.Error())
	default:
		h.logger.Error("extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "extraction failed", "")
	}
}

func readAudio(r *http.Request) (*llm.Media, error) {
	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if header.Filename == "" {
		return nil, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &llm.Media{
		MIMEType:    llm.MIMETypeForFile(header.Filename),
		DisplayName: header.Filename,
		Data:        data,
	}, nil
}

var _ RecordingSaver = recordings.Store(nil)
