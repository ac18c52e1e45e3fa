// Package auth implements the identity & session guard. This file provides
// the Guard itself: bearer-token parsing, cached profile resolution against
// the backing user store, and role checks.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// UserStore is the backing identity store consulted on cache misses.
// Implementations are responsible for persistence only; the Guard owns
// caching and staleness.
type UserStore interface {
	// GetUser fetches the profile for id, or gorm.ErrRecordNotFound.
	GetUser(ctx context.Context, id string) (User, error)
}

// User is the minimal profile shape the guard needs from the backing store.
type User struct {
	ID       string
	Email    string
	Role     Role
	Disabled bool
}

// Guard resolves bearer credentials to identities. Tokens are HS256 JWTs
// carrying sub/role/email claims; the profile behind the token is loaded
// through the TTL cache so repeated requests from the same caller do not hit
// the backing store on every round trip.
type Guard struct {
	// Secret is the HMAC key used to verify token signatures.
	Secret []byte
	// Store is the authoritative identity store.
	Store UserStore
	// Cache fronts Store lookups. Optional; a nil cache disables caching.
	Cache *userCache
}

// userCache adapts Cache (which stores domain.User rows) to the guard's
// profile shape without the guard depending on the persistence model.
type userCache struct {
	inner *Cache
}

// NewGuard constructs a Guard backed by store and an identity cache.
// A nil cache is allowed and simply disables caching.
func NewGuard(secret []byte, store UserStore, cache *Cache) *Guard {
	g := &Guard{Secret: secret, Store: store}
	if cache != nil {
		g.Cache = &userCache{inner: cache}
	}
	return g
}

// tokenClaims is the claim set this backend issues and accepts.
type tokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Resolve maps a raw bearer token to an Identity.
//
// Behavior:
//   - Empty token → the anonymous identity, no error. Absence of a
//     credential is not a failure; role checks happen downstream.
//   - Malformed, badly signed, or expired token → ErrUnauthenticated.
//   - Valid token whose account is disabled → ErrAccountDisabled (an
//     authorization failure, distinct from authentication).
//   - Valid token whose account no longer exists → ErrUnauthenticated.
//
// On success for a non-anonymous caller the profile comes from the cache
// when fresh; otherwise the backing store is queried and the cache entry is
// populated/refreshed.
func (g *Guard) Resolve(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AnonymousIdentity, nil
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return g.Secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrUnauthenticated
	}

	u, err := g.profile(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, err
	}
	if u.Disabled {
		return Identity{}, ErrAccountDisabled
	}

	role := u.Role
	if role == "" {
		role = Role(claims.Role)
	}
	return Identity{ID: u.ID, Email: u.Email, Role: role}, nil
}

// RequireRole resolves the token and additionally rejects identities that do
// not hold the wanted role. Anonymous callers fail with ErrUnauthenticated;
// authenticated callers with a different role fail with ErrWrongRole.
func (g *Guard) RequireRole(ctx context.Context, token string, want Role) (Identity, error) {
	ident, err := g.Resolve(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if ident.Anonymous {
		return Identity{}, ErrUnauthenticated
	}
	if ident.Role != want {
		return Identity{}, ErrWrongRole
	}
	return ident, nil
}

// profile loads the user behind id, consulting the cache first.
func (g *Guard) profile(ctx context.Context, id string) (User, error) {
	if g.Cache != nil {
		if row, ok := g.Cache.inner.Get(id); ok {
			return User{ID: row.ID, Email: row.Email, Role: Role(row.Role), Disabled: row.Disabled}, nil
		}
	}
	u, err := g.Store.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if g.Cache != nil {
		g.Cache.inner.Put(id, domain.User{ID: u.ID, Email: u.Email, Role: string(u.Role), Disabled: u.Disabled})
	}
	return u, nil
}
