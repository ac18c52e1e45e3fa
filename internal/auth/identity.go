// Package auth implements the identity & session guard: it resolves bearer
// credentials to caller identities, caches backing-store lookups for a
// bounded TTL, and exposes the role model used by authorization checks.
package auth

import "errors"

// Role is the coarse permission level attached to a registered identity.
type Role string

// Known roles. The artisan operates the backend under RoleAdmin; customers
// submit and follow their own requests under RoleCustomer.
const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the resolved caller of an operation. A zero Identity (or one
// with Anonymous set) represents a guest without a credential.
type Identity struct {
	ID        string
	Email     string
	Role      Role
	Anonymous bool
}

// Anonymous is the identity used for callers presenting no credential.
var AnonymousIdentity = Identity{Anonymous: true}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return !i.Anonymous && i.Role == RoleAdmin }

// Guard errors. Authentication failures (bad credential) are distinct from
// authorization failures (valid credential, denied access) so handlers can
// map them to 401 and 403 respectively.
var (
	// ErrUnauthenticated indicates a missing, malformed, or expired credential.
	ErrUnauthenticated = errors.New("invalid or expired credential")

	// ErrAccountDisabled indicates a valid credential for an account that has
	// been disabled. This is an authorization failure, not an authentication
	// one: the caller proved who they are, they are just not allowed in.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrWrongRole indicates the resolved identity does not hold the role an
	// operation requires.
	ErrWrongRole = errors.New("insufficient role")
)
