package api

import (
	"net/http"
	"nimbusadmin/internal/core"
	"nimbusadmin/internal/service"
)

// Settings endpoints translate between JSON and the engine's control
// commands. GET takes ?connectionId=, PUT takes a JSON body carrying the
// connectionId plus the intent fields.

func connectionIDQuery(r *http.Request) (string, error) {
	id := r.URL.Query().Get("connectionId")
	if id == "" {
		return "", core.NewValidationError("connectionId is required")
	}
	return id, nil
}

func (h *Handler) GetReplication(w http.ResponseWriter, r *http.Request) {
	id, err := connectionIDQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := h.settings.ReplicationStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) PutReplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		Full         *bool  `json:"full_replication"`
		Incremental  *bool  `json:"incremental_replication"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConnectionID == "" || (req.Full == nil && req.Incremental == nil) {
		writeError(w, core.NewValidationError("connectionId and at least one toggle are required"))
		return
	}

	if req.Full != nil {
		if err := h.settings.SetFullReplication(r.Context(), req.ConnectionID, *req.Full); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Incremental != nil {
		if err := h.settings.SetIncrementalReplication(r.Context(), req.ConnectionID, *req.Incremental); err != nil {
			writeError(w, err)
			return
		}
	}
	writeSuccess(w)
}

func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := connectionIDQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.settings.PerformanceConfig(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) PutPerformance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		Key          string `json:"key"`
		Value        int    `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConnectionID == "" || req.Key == "" {
		writeError(w, core.NewValidationError("connectionId and key are required"))
		return
	}

	if err := h.settings.SetPerformanceValue(r.Context(), req.ConnectionID, req.Key, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) GetBinlog(w http.ResponseWriter, r *http.Request) {
	id, err := connectionIDQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pos, err := h.settings.BinlogPosition(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// PutBinlog rewrites the checkpoint and responds with the re-read position
// so the caller sees what the engine actually accepted.
func (h *Handler) PutBinlog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		File         string `json:"file"`
		Position     int64  `json:"position"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConnectionID == "" {
		writeError(w, core.NewValidationError("connectionId is required"))
		return
	}

	if err := h.settings.SetBinlogPosition(r.Context(), req.ConnectionID, req.File, req.Position); err != nil {
		writeError(w, err)
		return
	}
	pos, err := h.settings.BinlogPosition(r.Context(), req.ConnectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	id, err := connectionIDQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.settings.SourceConfig(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) PutSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		service.SourceConfigUpdate
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConnectionID == "" {
		writeError(w, core.NewValidationError("connectionId is required"))
		return
	}

	if err := h.settings.UpdateSourceConfig(r.Context(), req.ConnectionID, req.SourceConfigUpdate); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) GetIncludedDbs(w http.ResponseWriter, r *http.Request) {
	id, err := connectionIDQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	dbs, err := h.settings.IncludedDbs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"included_dbs": dbs})
}

func (h *Handler) PutIncludedDbs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		Databases    string `json:"included_dbs"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConnectionID == "" {
		writeError(w, core.NewValidationError("connectionId is required"))
		return
	}

	if err := h.settings.SetIncludedDbs(r.Context(), req.ConnectionID, req.Databases); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) GetSchemaSync(w http.ResponseWriter, r *http.Request) {
	id, err := connectionIDQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	enabled, err := h.settings.SchemaSync(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (h *Handler) PutSchemaSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionID string `json:"connectionId"`
		Enabled      *bool  `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConnectionID == "" || req.Enabled == nil {
		writeError(w, core.NewValidationError("connectionId and enabled are required"))
		return
	}

	if err := h.settings.SetSchemaSync(r.Context(), req.ConnectionID, *req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}
