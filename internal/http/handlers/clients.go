package handlers

import (
	"context"
	"net/http"

	"github.com/wolfman30/visit-report-ai/internal/kintone"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

// ClientSearcher finds CRM clients by name keyword.
type ClientSearcher interface {
	Search(ctx context.Context, keyword string) ([]kintone.ClientSummary, error)
}

// ClientsHandler serves GET /api/clients?q=.
type ClientsHandler struct {
	searcher ClientSearcher
	logger   *logging.Logger
}

func NewClientsHandler(searcher ClientSearcher, logger *logging.Logger) *ClientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClientsHandler{searcher: searcher, logger: logger}
}

// List never fails: a missing searcher or a lookup error yields an empty list.
func (h *ClientsHandler) List(w http.ResponseWriter, r *http.Request) {
	results := []kintone.ClientSummary{}
	if h != nil && h.searcher != nil {
		found, err := h.searcher.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			h.logger.Warn("client search failed", "error", err)
		} else if found != nil {
			results = found
		}
	}
	writeJSON(w, http.StatusOK, results)
}
