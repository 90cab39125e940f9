// ABOUTME: Tests for the operator API service
// ABOUTME: Exercises bearer auth, connection CRUD and audit logging over HTTP

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhaus/partner-gateway/internal/auth"
	"github.com/keyhaus/partner-gateway/internal/store"
)

const testAdminSecret = "admin-test-secret"

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "admin-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	verifier := auth.NewAdminTokenVerifier([]byte(testAdminSecret))
	return NewService(st, verifier, nil), st
}

func adminToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := auth.NewAdminTokenVerifier([]byte(testAdminSecret)).Generate(subject, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createConnection(t *testing.T, handler http.Handler, token string, body map[string]string) connectionView {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/connections", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created connectionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestRequireToken(t *testing.T) {
	svc, _ := newTestService(t)
	handler := svc.Routes()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"valid token", adminToken(t, "ops@example.com"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodGet, "/connections", tt.token, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireToken_ExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	token, err := auth.NewAdminTokenVerifier([]byte(testAdminSecret)).Generate("ops", -time.Minute)
	require.NoError(t, err)

	rec := doRequest(t, svc.Routes(), http.MethodGet, "/connections", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateConnection(t *testing.T) {
	svc, _ := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops@example.com")

	created := createConnection(t, handler, token, map[string]string{
		"integration":       "partner_b",
		"integrationUserId": "crm-user-7",
		"apiKey":            "key-abc",
		"teamId":            "team-1",
	})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "key-abc", created.APIKey, "create response echoes the key once")
	assert.Equal(t, "active", created.Status)

	// The key must not reappear on reads.
	rec := doRequest(t, handler, http.MethodGet, "/connections/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got connectionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.APIKey)
}

func TestCreateConnection_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"unknown integration", map[string]string{"integration": "partner_c", "apiKey": "k"}},
		{"missing api key", map[string]string{"integration": "partner_b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/connections", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateConnection_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops")

	body := map[string]string{
		"integration": "partner_b",
		"apiKey":      "dup-key",
		"teamId":      "team-1",
	}
	createConnection(t, handler, token, body)
	rec := doRequest(t, handler, http.MethodPost, "/connections", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRevokeConnection(t *testing.T) {
	svc, st := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops@example.com")

	created := createConnection(t, handler, token, map[string]string{
		"integration": "partner_a",
		"apiKey":      "key-revoke",
	})

	rec := doRequest(t, handler, http.MethodPost, "/connections/"+created.ID+"/revoke", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p, err := st.GetPrincipal(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PrincipalStatusRevoked, p.Status)
}

func TestDeleteConnection(t *testing.T) {
	svc, st := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops")

	created := createConnection(t, handler, token, map[string]string{
		"integration": "partner_a",
		"apiKey":      "key-del",
	})

	rec := doRequest(t, handler, http.MethodDelete, "/connections/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := st.GetPrincipal(context.Background(), created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec = doRequest(t, handler, http.MethodDelete, "/connections/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConnections_Filter(t *testing.T) {
	svc, _ := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops")

	for _, body := range []map[string]string{
		{"integration": "partner_a", "apiKey": "key-a"},
		{"integration": "partner_b", "apiKey": "key-b", "teamId": "team-1"},
		{"integration": "partner_b", "apiKey": "key-b", "teamId": "team-2"},
	} {
		createConnection(t, handler, token, body)
	}

	rec := doRequest(t, handler, http.MethodGet, "/connections?integration=partner_b", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Connections []connectionView `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Connections, 2)
}

func TestAuditTrail(t *testing.T) {
	svc, st := newTestService(t)
	handler := svc.Routes()
	token := adminToken(t, "ops@example.com")

	created := createConnection(t, handler, token, map[string]string{
		"integration": "partner_b",
		"apiKey":      "key-audit",
	})
	doRequest(t, handler, http.MethodPost, "/connections/"+created.ID+"/revoke", token, nil)

	entries, err := st.ListAuditLog(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "ops@example.com", e.Actor, "actor comes from the token subject")
	}

	rec := doRequest(t, handler, http.MethodGet, "/audit", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var auditResp struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auditResp))
	assert.Len(t, auditResp.Entries, 2)
}
