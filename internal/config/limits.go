package config

import "time"

// RouteName identifies an auth route that is subject to rate limiting
type RouteName string

const (
	RouteLogin    RouteName = "login"
	RouteRegister RouteName = "register"
	RouteRefresh  RouteName = "refresh"
)

// RateLimitPolicy caps requests from one client IP on one route within a window
type RateLimitPolicy struct {
	Route  RouteName
	Limit  int64
	Window time.Duration
}

// Unlimited reports whether the policy disables limiting
func (p RateLimitPolicy) Unlimited() bool {
	return p.Limit <= 0 || p.Window <= 0
}

// RateLimitPolicies returns the per-route policies derived from the config.
// Register is stricter than the base limit; refresh is looser because clients
// rotate on every access-token expiry.
func (c *Config) RateLimitPolicies() map[RouteName]RateLimitPolicy {
	base := c.AuthRateLimit
	return map[RouteName]RateLimitPolicy{
		RouteLogin:    {Route: RouteLogin, Limit: base, Window: c.AuthRateWindow},
		RouteRegister: {Route: RouteRegister, Limit: max(base/2, 1), Window: c.AuthRateWindow},
		RouteRefresh:  {Route: RouteRefresh, Limit: base * 3, Window: c.AuthRateWindow},
	}
}

// PolicyFor returns the policy for a route, or an unlimited policy if none is configured
func (c *Config) PolicyFor(route RouteName) RateLimitPolicy {
	if c.AuthRateLimit <= 0 {
		return RateLimitPolicy{Route: route}
	}
	if p, ok := c.RateLimitPolicies()[route]; ok {
		return p
	}
	return RateLimitPolicy{Route: route}
}
