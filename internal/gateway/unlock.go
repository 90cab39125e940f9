// ABOUTME: Cross-window unlock relay for the Partner A browser flow
// ABOUTME: Serves the embedded relay page and the server-side exchange endpoint

package gateway

import (
	_ "embed"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
)

//go:embed unlock.html
var unlockPage string

var unlockTmpl = template.Must(template.New("unlock").Parse(unlockPage))

// unlockParams are the fields the provider expects in the unlock POST.
type unlockParams struct {
	Token         string
	Secret        string
	CacheID       string
	ExtendedClaim string
}

func unlockParamsFromForm(r *http.Request) (unlockParams, bool) {
	if err := r.ParseForm(); err != nil {
		return unlockParams{}, false
	}
	p := unlockParams{
		Token:         r.Form.Get("token"),
		Secret:        r.Form.Get("secret"),
		CacheID:       r.Form.Get("cacheId"),
		ExtendedClaim: r.Form.Get("extendedClaim"),
	}
	if p.Token == "" || p.Secret == "" || p.CacheID == "" {
		return unlockParams{}, false
	}
	return p, true
}

// handleUnlockPage serves the relay page Partner A embeds in an iframe. The
// page posts the unlock parameters to the provider and relays the textual
// response to the parent window. The message target is pinned to the
// configured provider origin; a wildcard would let any embedding page read
// the unlock result.
func (s *Server) handleUnlockPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := unlockTmpl.Execute(w, map[string]string{
		"ProviderURL":    s.cfg.PartnerA.ProviderURL,
		"ProviderOrigin": s.cfg.PartnerA.ProviderOrigin,
	})
	if err != nil {
		s.logger.Error("rendering unlock page", "error", err)
	}
}

// handleUnlockExchange is the server-side variant of the unlock relay for
// partner UIs that cannot make the cross-origin call themselves. It forwards
// the parameters to the provider and returns the provider's text response
// verbatim. The secret passes through; it is the partner's, not ours, and is
// never logged.
func (s *Server) handleUnlockExchange(w http.ResponseWriter, r *http.Request) {
	params, ok := unlockParamsFromForm(r)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed request"})
		return
	}
	if s.cfg.PartnerA.ProviderURL == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unlock provider not configured"})
		return
	}

	form := url.Values{
		"token":         {params.Token},
		"secret":        {params.Secret},
		"cacheId":       {params.CacheID},
		"extendedClaim": {params.ExtendedClaim},
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		s.cfg.PartnerA.ProviderURL, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("building unlock request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("unlock provider unreachable", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "provider unreachable"})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.logger.Warn("reading unlock response", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "provider unreachable"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}
