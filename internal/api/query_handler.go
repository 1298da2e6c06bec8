package api

import (
	"net/http"
	"nimbusadmin/internal/core"
	"strconv"
)

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		SQL          string `json:"sql"`
		Database     string `json:"database"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.gateway.Execute(r.Context(), req.ConnectionID, req.SQL, req.Database)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) RecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, core.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.audits.GetRecent(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func int64Query(r *http.Request, name string) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, core.NewValidationError(name + " is required")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, core.NewValidationError(name + " must be an integer")
	}
	return v, nil
}
