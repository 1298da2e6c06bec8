package api

import (
	"net/http"
	"nimbusadmin/internal/core"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers()
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.auth.CreateUser(req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ID == 0 {
		writeError(w, core.NewValidationError("id is required"))
		return
	}

	if err := h.auth.UpdateUser(req.ID, req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := int64Query(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.DeleteUser(id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}
