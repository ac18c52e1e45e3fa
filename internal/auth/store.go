// Package auth implements the identity & session guard. This file provides
// the GORM-backed UserStore used in production wiring.
package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/repo"
)

// GormStore resolves users from the users table.
type GormStore struct {
	DB *gorm.DB
}

// GetUser implements UserStore.
func (s GormStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return User{}, err
	}
	return User{ID: u.ID, Email: u.Email, Role: Role(u.Role), Disabled: u.Disabled}, nil
}
