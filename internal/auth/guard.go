// ABOUTME: HTTP middleware dispatching requests to their declared auth strategy
// ABOUTME: Enforces the route-policy table and converts rejections to HTTP statuses

package auth

import (
	"log/slog"
	"net/http"
)

// Observer receives authentication outcomes for metrics. Implementations must
// be safe for concurrent use.
type Observer interface {
	ObserveAuth(strategy StrategyName, outcome string)
}

// Guard wires verified requests to exactly one principal. Per request it runs
// the declared strategy (credential extraction, cryptographic verification,
// principal resolution), then double-checks the route-policy table before
// attaching the principal to the request context. Every failure is terminal
// for the request; authentication failures are never transient, so nothing is
// retried.
type Guard struct {
	policy     *RoutePolicy
	strategies map[StrategyName]Strategy
	logger     *slog.Logger
	observer   Observer
}

// NewGuard builds a guard over the closed strategy set. logger and observer
// may be nil.
func NewGuard(policy *RoutePolicy, logger *slog.Logger, observer Observer, strategies ...Strategy) *Guard {
	byName := make(map[StrategyName]Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		policy:     policy,
		strategies: byName,
		logger:     logger.With("component", "auth"),
		observer:   observer,
	}
}

// Require returns middleware enforcing the named strategy on the wrapped
// routes. The route path must also be declared for that strategy in the
// policy table; a mismatch rejects even a cryptographically valid credential,
// stopping replay of webhook credentials against login routes and vice versa.
func (g *Guard) Require(name StrategyName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			strategy, ok := g.strategies[name]
			if !ok {
				g.reject(w, r, name, Rejected(ReasonRoutePolicy))
				return
			}

			result := strategy.Authenticate(r)
			if !result.OK() {
				g.reject(w, r, name, result)
				return
			}

			if !g.policy.Allows(r.URL.Path, name) {
				g.reject(w, r, name, Rejected(ReasonRoutePolicy))
				return
			}

			g.observe(name, "authorized")
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), result.Principal())))
		})
	}
}

// reject terminates the request. The response carries no detail beyond the
// status: every authentication failure looks identical externally, so a
// caller cannot probe which part of a credential was wrong.
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, name StrategyName, result Result) {
	g.observe(name, string(result.Reason()))

	attrs := []any{
		"route", r.URL.Path,
		"strategy", string(name),
		"reason", string(result.Reason()),
	}
	if result.Credential() != "" {
		attrs = append(attrs, "credential", result.Credential())
	}
	if r.RemoteAddr != "" {
		attrs = append(attrs, "remote_addr", r.RemoteAddr)
	}
	g.logger.Warn("auth failure", attrs...)

	w.Header().Set("Content-Type", "application/json")
	if result.Reason() == ReasonMalformedRequest {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"malformed request"}`))
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthenticated"}`))
}

func (g *Guard) observe(strategy StrategyName, outcome string) {
	if g.observer != nil {
		g.observer.ObserveAuth(strategy, outcome)
	}
}
