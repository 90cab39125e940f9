// ABOUTME: HTTP handlers for partner-facing routes
// ABOUTME: Login token issuance, session echo and webhook acknowledgement

package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/keyhaus/partner-gateway/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleLogin completes Partner A's signed login initiation. The guard has
// already verified the body signature and resolved the principal; all that is
// left is issuing the opaque access token that carries the API key through
// the rest of the browser redirect flow.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	token, err := s.cipher.Encrypt(principal.APIKey)
	if err != nil {
		s.logger.Error("issuing access token", "error", err, "principal", principal.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	resp := map[string]any{
		"accessToken":       token,
		"tokenType":         "AccessToken",
		"integrationUserId": principal.IntegrationUserID,
	}
	if ttl := s.cfg.PartnerA.TokenTTL; ttl > 0 {
		resp["expiresIn"] = int64(ttl.Seconds())
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleSession returns the identity behind an access token. Partner A's
// embedded UI calls this to confirm the token still resolves.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"principalId":       principal.ID,
		"integration":       string(principal.Integration),
		"integrationUserId": principal.IntegrationUserID,
		"teamId":            principal.TeamID,
		"brokerId":          principal.BrokerID,
		"shopId":            principal.ShopID,
	})
}

// handleWebhook acknowledges a verified Partner B webhook. The business
// processing behind webhooks lives elsewhere; this layer only guarantees the
// event was authentic and which principal it belongs to.
func (s *Server) handleWebhook(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := auth.MustFromContext(r.Context())

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			// The guard already parsed this body; a failure here means the
			// strategy did not restore it correctly and is a server bug.
			s.logger.Error("re-reading webhook body", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		eventID := uuid.New().String()
		s.logger.Info("webhook accepted",
			"kind", kind,
			"event_id", eventID,
			"principal", principal.ID,
		)
		writeJSON(w, http.StatusCreated, map[string]string{
			"eventId": eventID,
			"status":  "accepted",
		})
	}
}

// handleListings is the API-key-guarded read endpoint Partner B polls. The
// listing data itself is owned by the platform core; the gateway returns the
// resolved identity scope so the partner can verify its key is wired to the
// right tenant.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"principalId": principal.ID,
		"teamId":      principal.TeamID,
		"listings":    []any{},
	})
}
