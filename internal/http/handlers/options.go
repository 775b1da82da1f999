package handlers

import (
	"net/http"

	"github.com/wolfman30/visit-report-ai/internal/extraction"
	"github.com/wolfman30/visit-report-ai/internal/masterdata"
)

// OptionsResponse feeds the select boxes of the confirmation form.
type OptionsResponse struct {
	Version    string   `json:"version"`
	Staff      []string `json:"staff"`
	Activities []string `json:"activities"`
	Modes      []string `json:"modes"`
	Today      string   `json:"today,omitempty"`
}

// OptionsHandler serves GET /api/options.
type OptionsHandler struct {
	master *masterdata.Data
	today  func() string
}

// NewOptionsHandler builds the handler. today may be nil.
func NewOptionsHandler(master *masterdata.Data, today func() string) *OptionsHandler {
	return &OptionsHandler{master: master, today: today}
}

func (h *OptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	modes := make([]string, 0, 2)
	for _, m := range extraction.Modes() {
		modes = append(modes, string(m))
	}
	resp := OptionsResponse{
		Version:    h.master.Version,
		Staff:      h.master.StaffNames(),
		Activities: h.master.ActivityLabels(),
		Modes:      modes,
	}
	if h.today != nil {
		resp.Today = h.today()
	}
	writeJSON(w, http.StatusOK, resp)
}
