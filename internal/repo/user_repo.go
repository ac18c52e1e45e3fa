// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the User model
// consulted by the identity guard.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// GetUser fetches one user row by primary key.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user row.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Create(u).Error
}

// SetUserDisabled flips the disabled flag on a user.
func SetUserDisabled(ctx context.Context, db *gorm.DB, id string, disabled bool) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("disabled", disabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
