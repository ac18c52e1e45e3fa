package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

var testSecret = []byte("unit-test-secret")

// memStore is an in-memory UserStore that counts lookups so cache behavior
// can be asserted.
type memStore struct {
	users map[string]User
	hits  int
}

func (s *memStore) GetUser(_ context.Context, id string) (User, error) {
	s.hits++
	u, ok := s.users[id]
	if !ok {
		return User{}, gorm.ErrRecordNotFound
	}
	return u, nil
}

func signToken(t *testing.T, sub string, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role:  role,
		Email: sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func newTestGuard(store *memStore) *Guard {
	return NewGuard(testSecret, store, NewCache(5*time.Minute, nil))
}

func TestResolveEmptyTokenIsAnonymous(t *testing.T) {
	g := newTestGuard(&memStore{})
	ident, err := g.Resolve(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ident.Anonymous {
		t.Fatal("empty credential must resolve to the anonymous identity")
	}
}

func TestResolveValidToken(t *testing.T) {
	store := &memStore{users: map[string]User{
		"u1": {ID: "u1", Email: "u1@example.com", Role: RoleCustomer},
	}}
	g := newTestGuard(store)

	tok := signToken(t, "u1", "customer", time.Now().Add(time.Hour))
	ident, err := g.Resolve(context.Background(), tok)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ident.ID != "u1" || ident.Role != RoleCustomer || ident.Anonymous {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestResolveCachesProfile(t *testing.T) {
	store := &memStore{users: map[string]User{
		"u1": {ID: "u1", Email: "u1@example.com", Role: RoleCustomer},
	}}
	g := newTestGuard(store)
	tok := signToken(t, "u1", "customer", time.Now().Add(time.Hour))

	for i := 0; i < 3; i++ {
		if _, err := g.Resolve(context.Background(), tok); err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
	}
	if store.hits != 1 {
		t.Fatalf("store hit %d times, want 1 (remaining resolves served from cache)", store.hits)
	}
}

func TestResolveRejectsBadSignature(t *testing.T) {
	g := newTestGuard(&memStore{})

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := g.Resolve(context.Background(), s); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	g := newTestGuard(&memStore{users: map[string]User{"u1": {ID: "u1"}}})
	tok := signToken(t, "u1", "customer", time.Now().Add(-time.Minute))

	if _, err := g.Resolve(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	g := newTestGuard(&memStore{})
	if _, err := g.Resolve(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestResolveUnknownSubject(t *testing.T) {
	g := newTestGuard(&memStore{users: map[string]User{}})
	tok := signToken(t, "ghost", "customer", time.Now().Add(time.Hour))

	if _, err := g.Resolve(context.Background(), tok); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestResolveDisabledAccount(t *testing.T) {
	g := newTestGuard(&memStore{users: map[string]User{
		"u1": {ID: "u1", Role: RoleCustomer, Disabled: true},
	}})
	tok := signToken(t, "u1", "customer", time.Now().Add(time.Hour))

	if _, err := g.Resolve(context.Background(), tok); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("got %v, want ErrAccountDisabled", err)
	}
}

func TestRequireRole(t *testing.T) {
	g := newTestGuard(&memStore{users: map[string]User{
		"admin": {ID: "admin", Role: RoleAdmin},
		"cust":  {ID: "cust", Role: RoleCustomer},
	}})
	adminTok := signToken(t, "admin", "admin", time.Now().Add(time.Hour))
	custTok := signToken(t, "cust", "customer", time.Now().Add(time.Hour))

	if _, err := g.RequireRole(context.Background(), adminTok, RoleAdmin); err != nil {
		t.Fatalf("admin should pass the admin check: %v", err)
	}
	if _, err := g.RequireRole(context.Background(), custTok, RoleAdmin); !errors.Is(err, ErrWrongRole) {
		t.Fatalf("got %v, want ErrWrongRole", err)
	}
	if _, err := g.RequireRole(context.Background(), "", RoleAdmin); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous caller: got %v, want ErrUnauthenticated", err)
	}
}
