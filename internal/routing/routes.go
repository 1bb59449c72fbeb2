// Package routing decides where an authenticated principal lands and whether
// a navigation is allowed. Everything here is pure: the gates hold no state
// beyond the principal handed to them.
package routing

import "strings"

// Roles issued by the identity API.
const (
	RoleOwner    = "owner"
	RoleStaff    = "staff"
	RoleSupplier = "supplier"
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const (
	// LoginPath is the entry point unauthenticated navigations bounce to.
	LoginPath = "/login"
	// DefaultPath is where unrecognized roles land.
	DefaultPath = "/"
)

var landing = map[string]string{
	RoleOwner:    "/dashboard",
	RoleAdmin:    "/admin",
	RoleStaff:    "/pos",
	RoleSupplier: "/supplier/orders",
	RoleCustomer: "/shop",
}

// Route maps a role to its landing path. Total over any input: an
// unrecognized role lands on DefaultPath, never an error.
func Route(role string) string {
	if path, ok := landing[normalizeRole(role)]; ok {
		return path
	}
	return DefaultPath
}

// KnownRole reports whether the role is one the router has a landing for.
func KnownRole(role string) bool {
	_, ok := landing[normalizeRole(role)]
	return ok
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
