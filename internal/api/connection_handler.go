package api

import (
	"net/http"
	"nimbusadmin/internal/core"
	"nimbusadmin/internal/logger"
	"nimbusadmin/internal/service"
)

func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.GetAll()
	if err != nil {
		writeError(w, err)
		return
	}

	// Stored passwords are ciphertext; hand plaintext back to the
	// authenticated dashboard, matching what it saved.
	out := make([]core.ConnectionProfile, 0, len(profiles))
	for _, p := range profiles {
		plain, derr := h.crypto.Decrypt(p.Password)
		if derr != nil {
			logger.Error.Printf("Failed to decrypt password for profile %s: %v", p.ID, derr)
			plain = ""
		}
		p.Password = plain
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpsertConnection(w http.ResponseWriter, r *http.Request) {
	var profile core.ConnectionProfile
	if err := decodeBody(r, &profile); err != nil {
		writeError(w, err)
		return
	}

	if profile.ID == "" || profile.Name == "" || profile.Host == "" || profile.Port == 0 || profile.Username == "" {
		writeError(w, core.NewValidationError("id, name, host, port and username are required"))
		return
	}

	enc, err := h.crypto.Encrypt(profile.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	profile.Password = enc

	if err := h.profiles.Upsert(&profile); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, core.NewValidationError("id is required"))
		return
	}

	if err := h.profiles.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

// TestConnection probes reachability with SELECT 1 using ad hoc credentials,
// bypassing the registry, so a profile can be validated before saving.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Host == "" || req.Port == 0 || req.User == "" {
		writeError(w, core.NewValidationError("host, port and user are required"))
		return
	}

	rows, err := service.TestConnection(r.Context(), req.Host, req.Port, req.User, req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "connection successful",
		"data":    rows,
	})
}
