// ABOUTME: Operator API service with JWT bearer middleware
// ABOUTME: Mounts connection and audit handlers on a chi subrouter

package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keyhaus/partner-gateway/internal/auth"
	"github.com/keyhaus/partner-gateway/internal/store"
)

// Service handles the operator API.
type Service struct {
	store    store.Store
	verifier *auth.AdminTokenVerifier
	logger   *slog.Logger
}

// NewService creates the operator API service.
func NewService(st store.Store, verifier *auth.AdminTokenVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		verifier: verifier,
		logger:   logger.With("component", "admin"),
	}
}

// Routes returns the operator API router. All routes require a valid admin
// bearer token.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requireToken)

	r.Get("/connections", s.handleListConnections)
	r.Post("/connections", s.handleCreateConnection)
	r.Get("/connections/{id}", s.handleGetConnection)
	r.Post("/connections/{id}/revoke", s.handleRevokeConnection)
	r.Delete("/connections/{id}", s.handleDeleteConnection)
	r.Get("/audit", s.handleListAudit)

	return r
}

type subjectKey struct{}

// subjectFromContext returns the operator subject set by requireToken.
func subjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}

// requireToken authenticates the request with a "Bearer <jwt>" header and
// stores the operator subject in the request context.
func (s *Service) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		subject, err := s.verifier.Verify(token)
		if err != nil {
			s.logger.Warn("admin token rejected", "error", err, "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey{}, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
