package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"nimbusadmin/internal/core"
	"nimbusadmin/internal/logger"
	"nimbusadmin/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Handler wires the HTTP surface to the services. Everything except
// /auth/login sits behind bearer-token auth.
type Handler struct {
	auth        *service.AuthService
	gateway     *service.CommandGateway
	settings    *service.SettingsTranslator
	profiles    core.ProfileRepository
	audits      core.AuditRepository
	crypto      *service.EncryptionService
	corsOrigins []string
}

func NewHandler(auth *service.AuthService, gateway *service.CommandGateway, settings *service.SettingsTranslator,
	profiles core.ProfileRepository, audits core.AuditRepository, crypto *service.EncryptionService, corsOrigins []string) *Handler {
	return &Handler{
		auth:        auth,
		gateway:     gateway,
		settings:    settings,
		profiles:    profiles,
		audits:      audits,
		crypto:      crypto,
		corsOrigins: corsOrigins,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	// Brute-force protection on login
	loginLimiter := NewRateLimiter(5, 3)
	r.With(loginLimiter.Middleware).Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/users", h.ListUsers)
		r.Post("/users", h.CreateUser)
		r.Put("/users", h.UpdateUser)
		r.Delete("/users", h.DeleteUser)

		r.Get("/connections", h.ListConnections)
		r.Post("/connections", h.UpsertConnection)
		r.Delete("/connections", h.DeleteConnection)

		r.Post("/query", h.Query)
		r.Post("/test", h.TestConnection)
		r.Get("/audit", h.RecentAudit)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/replication", h.GetReplication)
			r.Put("/replication", h.PutReplication)
			r.Get("/performance", h.GetPerformance)
			r.Put("/performance", h.PutPerformance)
			r.Get("/binlog", h.GetBinlog)
			r.Put("/binlog", h.PutBinlog)
			r.Get("/source", h.GetSource)
			r.Put("/source", h.PutSource)
			r.Get("/included-dbs", h.GetIncludedDbs)
			r.Put("/included-dbs", h.PutIncludedDbs)
			r.Get("/schema-sync", h.GetSchemaSync)
			r.Put("/schema-sync", h.PutSchemaSync)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// writeError maps the error taxonomy onto HTTP statuses. Upstream failures
// keep the engine's native error code in "details" for operator diagnosis.
func writeError(w http.ResponseWriter, err error) {
	var (
		authErr       *core.AuthError
		validationErr *core.ValidationError
		conflictErr   *core.ConflictError
		notFoundErr   *core.NotFoundError
		upstreamErr   *core.UpstreamError
	)

	switch {
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": authErr.Message})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": validationErr.Message})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": conflictErr.Message})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": notFoundErr.Message})
	case errors.As(err, &upstreamErr):
		body := map[string]interface{}{"error": upstreamErr.Message}
		if upstreamErr.Code != 0 {
			body["details"] = upstreamErr.Code
		}
		writeJSON(w, http.StatusInternalServerError, body)
	default:
		logger.Error.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.NewValidationError("invalid request body")
	}
	return nil
}
