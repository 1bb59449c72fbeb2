package routing

import "dukan.org/internal/gateway"

// Decision is the outcome of a gate check for one navigation.
type Decision struct {
	Allow      bool
	RedirectTo string
	// Next is the originally requested location, preserved so the caller
	// can replay it after a successful login.
	Next string
}

// Authenticate passes when a principal is present; otherwise the navigation
// bounces to the login entry point with the destination captured.
func Authenticate(principal *gateway.Principal, requested string) Decision {
	if principal != nil {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: LoginPath, Next: requested}
}

// Authorize passes when the principal's role is in the allow set. A
// privilege failure bounces to the role's own landing route, never to login:
// the identity is already established, only the privilege is missing.
func Authorize(principal *gateway.Principal, allowed []string, requested string) Decision {
	if principal == nil {
		return Decision{RedirectTo: LoginPath, Next: requested}
	}
	role := normalizeRole(principal.Role)
	for _, a := range allowed {
		if normalizeRole(a) == role {
			return Decision{Allow: true}
		}
	}
	return Decision{RedirectTo: Route(role)}
}
