// ABOUTME: HTTP handlers for partner connection management
// ABOUTME: Create, list, get, revoke and delete operations with audit logging

package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/keyhaus/partner-gateway/internal/store"
)

// connectionView is the wire representation of a partner connection.
type connectionView struct {
	ID                string `json:"id"`
	Integration       string `json:"integration"`
	IntegrationUserID string `json:"integrationUserId"`
	APIKey            string `json:"apiKey,omitempty"`
	TeamID            string `json:"teamId,omitempty"`
	BrokerID          string `json:"brokerId,omitempty"`
	ShopID            string `json:"shopId,omitempty"`
	Email             string `json:"email,omitempty"`
	Status            string `json:"status"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

func viewOf(p *store.Principal, includeKey bool) connectionView {
	v := connectionView{
		ID:                p.ID,
		Integration:       string(p.Integration),
		IntegrationUserID: p.IntegrationUserID,
		TeamID:            p.TeamID,
		BrokerID:          p.BrokerID,
		ShopID:            p.ShopID,
		Email:             p.Email,
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
	// The API key is returned once, on creation. List and get responses omit
	// it so a leaked admin token cannot harvest partner credentials.
	if includeKey {
		v.APIKey = p.APIKey
	}
	return v
}

type createConnectionRequest struct {
	Integration       string `json:"integration"`
	IntegrationUserID string `json:"integrationUserId"`
	APIKey            string `json:"apiKey"`
	TeamID            string `json:"teamId"`
	BrokerID          string `json:"brokerId"`
	ShopID            string `json:"shopId"`
	Email             string `json:"email"`
}

func (s *Service) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	integration := store.IntegrationType(req.Integration)
	if !integration.Valid() {
		writeError(w, http.StatusBadRequest, "unknown integration")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "apiKey required")
		return
	}

	now := time.Now().UTC()
	p := &store.Principal{
		ID:                uuid.New().String(),
		Integration:       integration,
		IntegrationUserID: req.IntegrationUserID,
		APIKey:            req.APIKey,
		TeamID:            req.TeamID,
		BrokerID:          req.BrokerID,
		ShopID:            req.ShopID,
		Email:             req.Email,
		Status:            store.PrincipalStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreatePrincipal(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrDuplicatePrincipal) {
			writeError(w, http.StatusConflict, "connection already exists")
			return
		}
		s.logger.Error("creating connection", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.audit(r, store.AuditCreateConnection, p.ID, map[string]any{
		"integration": string(p.Integration),
		"teamId":      p.TeamID,
	})

	writeJSON(w, http.StatusCreated, viewOf(p, true))
}

func (s *Service) handleListConnections(w http.ResponseWriter, r *http.Request) {
	filter := store.PrincipalFilter{}
	if v := r.URL.Query().Get("integration"); v != "" {
		integration := store.IntegrationType(v)
		if !integration.Valid() {
			writeError(w, http.StatusBadRequest, "unknown integration")
			return
		}
		filter.Integration = &integration
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := store.PrincipalStatus(v)
		filter.Status = &status
	}

	principals, err := s.store.ListPrincipals(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing connections", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]connectionView, len(principals))
	for i := range principals {
		views[i] = viewOf(&principals[i], false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": views})
}

func (s *Service) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.GetPrincipal(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.logger.Error("getting connection", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p, false))
}

func (s *Service) handleRevokeConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.UpdatePrincipalStatus(r.Context(), id, store.PrincipalStatusRevoked); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.logger.Error("revoking connection", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.audit(r, store.AuditRevokeConnection, id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(store.PrincipalStatusRevoked)})
}

func (s *Service) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeletePrincipal(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.logger.Error("deleting connection", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.audit(r, store.AuditDeleteConnection, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAuditLog(r.Context(), 100)
	if err != nil {
		s.logger.Error("listing audit log", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type auditView struct {
		ID         string         `json:"id"`
		Actor      string         `json:"actor"`
		Action     string         `json:"action"`
		TargetType string         `json:"targetType"`
		TargetID   string         `json:"targetId"`
		Timestamp  string         `json:"timestamp"`
		Detail     map[string]any `json:"detail,omitempty"`
	}
	views := make([]auditView, len(entries))
	for i, e := range entries {
		views[i] = auditView{
			ID:         e.ID,
			Actor:      e.Actor,
			Action:     string(e.Action),
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Detail:     e.Detail,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

// audit records a mutating admin action. Audit failures are logged, not
// surfaced; the mutation already happened.
func (s *Service) audit(r *http.Request, action store.AuditAction, targetID string, detail map[string]any) {
	entry := &store.AuditEntry{
		Actor:      subjectFromContext(r.Context()),
		Action:     action,
		TargetType: "connection",
		TargetID:   targetID,
		Detail:     detail,
	}
	if err := s.store.AppendAuditLog(r.Context(), entry); err != nil {
		s.logger.Error("appending audit entry", "error", err, "action", string(action))
	}
}
