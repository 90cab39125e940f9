// ABOUTME: Static route-policy table mapping route paths to required strategies
// ABOUTME: Stops a credential valid for one route class being replayed on another

package auth

// StrategyName identifies one of the closed set of authentication strategies.
type StrategyName string

const (
	StrategyAPIKey      StrategyName = "api_key"
	StrategyWebhook     StrategyName = "webhook"
	StrategySignedLogin StrategyName = "signed_login"
	StrategyAccessToken StrategyName = "access_token"
)

// RoutePolicy is the static allow-list of route path to expected strategy.
// Built once at startup, immutable afterwards, and therefore safe to share
// across concurrent requests without synchronization.
type RoutePolicy struct {
	entries map[string]StrategyName
}

// NewRoutePolicy builds the policy table. The entries map is copied; later
// mutation of the argument does not affect the policy.
func NewRoutePolicy(entries map[string]StrategyName) *RoutePolicy {
	copied := make(map[string]StrategyName, len(entries))
	for path, name := range entries {
		copied[path] = name
	}
	return &RoutePolicy{entries: copied}
}

// Lookup returns the strategy declared for the exact route path.
func (p *RoutePolicy) Lookup(path string) (StrategyName, bool) {
	name, ok := p.entries[path]
	return name, ok
}

// Allows reports whether the route path is declared for exactly the given
// strategy. Unknown paths are never allowed.
func (p *RoutePolicy) Allows(path string, name StrategyName) bool {
	declared, ok := p.entries[path]
	return ok && declared == name
}
