// Package services – Actor
//
// This file defines the Actor value that every service operation receives:
// the resolved identity of the caller plus, for guests, the per-request
// access token they presented. It also implements the shared visibility rule
// used by all request-scoped operations.
package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/auth"
	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/repo"
)

// Actor is the caller of a service operation. Exactly one of three shapes is
// meaningful: an admin identity, a registered customer identity, or an
// anonymous identity carrying a guest access token.
type Actor struct {
	Identity   auth.Identity
	GuestToken string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Identity.IsAdmin() }

// Sender maps the actor to the message-thread party it speaks for. The admin
// is the artisan; everyone else (owner or guest) is the requester.
func (a Actor) Sender() domain.Sender {
	if a.IsAdmin() {
		return domain.SenderArtisan
	}
	return domain.SenderRequester
}

// canSee implements the visibility rule shared by every request-scoped
// operation: admins see everything, a registered customer sees their own
// requests, and a guest sees a request when their token matches its access
// token.
func (a Actor) canSee(req *domain.CommissionRequest) bool {
	if a.IsAdmin() {
		return true
	}
	if !a.Identity.Anonymous {
		return req.Owned() && *req.UserID == a.Identity.ID
	}
	if a.GuestToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.GuestToken), []byte(req.AccessToken)) == 1
}

// owns reports whether the actor is the requester side of req: the owning
// registered user, or a guest holding its access token. Admins do not "own"
// requests.
func (a Actor) owns(req *domain.CommissionRequest) bool {
	return !a.IsAdmin() && a.canSee(req)
}

// loadVisible fetches a request and applies the visibility rule. A missing
// request and one the actor may not see are indistinguishable on purpose:
// both come back as ErrRequestNotFound so request IDs cannot be probed.
func loadVisible(ctx context.Context, db *gorm.DB, id string, actor Actor) (*domain.CommissionRequest, error) {
	req, err := repo.GetRequest(ctx, db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if !actor.canSee(req) {
		return nil, ErrRequestNotFound
	}
	return req, nil
}
