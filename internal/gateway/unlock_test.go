// ABOUTME: Tests for the unlock relay page and the server-side exchange
// ABOUTME: Uses an httptest provider to verify forwarding behavior

package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyhaus/partner-gateway/internal/store"
)

func unlockForm() url.Values {
	return url.Values{
		"token":         {"tok-1"},
		"secret":        {"sec-1"},
		"cacheId":       {"cache-1"},
		"extendedClaim": {"claim-1"},
	}
}

func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUnlockPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPartnerAUnlock, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))

	// The template's JS escaper rewrites slashes, so match on the host.
	page := rec.Body.String()
	assert.Contains(t, page, "provider.example.com")
	assert.Contains(t, page, "postMessage")
	assert.NotContains(t, page, `"*"`, "relay must not post to a wildcard origin")
}

func TestUnlockExchange(t *testing.T) {
	var gotForm url.Values
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		io.WriteString(w, "UNLOCKED")
	}))
	defer provider.Close()

	cfg := testConfig()
	cfg.PartnerA.ProviderURL = provider.URL
	srv, _ := newTestServer(t, cfg)

	form := unlockForm()
	rec := postForm(srv.Handler(), PathPartnerAUnlockExchange, form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "UNLOCKED", rec.Body.String(), "provider response relayed verbatim")

	for _, key := range []string{"token", "secret", "cacheId", "extendedClaim"} {
		assert.Equal(t, form.Get(key), gotForm.Get(key), key)
	}
}

func TestUnlockExchange_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	form := url.Values{"token": {"tok-1"}} // no secret, no cacheId
	rec := postForm(srv.Handler(), PathPartnerAUnlockExchange, form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnlockExchange_ProviderError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer provider.Close()

	cfg := testConfig()
	cfg.PartnerA.ProviderURL = provider.URL
	srv, _ := newTestServer(t, cfg)

	rec := postForm(srv.Handler(), PathPartnerAUnlockExchange, unlockForm())
	assert.Equal(t, http.StatusForbidden, rec.Code, "provider status relayed")
}

func TestUnlockExchange_ProviderUnconfigured(t *testing.T) {
	cfg := testConfig()
	cfg.PartnerA.ProviderURL = ""

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "unlock-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	srv, err := New(cfg, st, nil)
	require.NoError(t, err)

	rec := postForm(srv.Handler(), PathPartnerAUnlockExchange, unlockForm())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
