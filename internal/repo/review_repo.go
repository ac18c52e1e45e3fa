// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving the eligibility gate to the services package.
//
// Error semantics:
//   - Duplicate reviews (same request_id, user_id) rely on the database
//     unique constraint and are returned as a raw DB error. The service layer
//     translates that into a domain error (ErrAlreadyReviewed).
//   - On other DB errors (connectivity, constraints, etc.), the raw gorm
//     error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// CreateReview inserts a review row with both moderation flags unset.
//
// The combination (request_id, user_id) must be unique, enforced by the
// database schema. A duplicate insert returns the raw constraint error which
// the service layer maps to its duplicate sentinel, closing the
// check-then-insert race between two concurrent submissions.
func CreateReview(ctx context.Context, db *gorm.DB, rev *domain.Review) error {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	rev.Approved = false
	rev.Published = false
	rev.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(rev).Error
}

// GetReview fetches a review by ID, or ErrNotFound.
func GetReview(ctx context.Context, db *gorm.DB, id string) (*domain.Review, error) {
	var rev domain.Review
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetReviewByRequestUser fetches the review left by userID on requestID, or
// ErrNotFound when the pair has no review yet.
func GetReviewByRequestUser(ctx context.Context, db *gorm.DB, requestID, userID string) (*domain.Review, error) {
	var rev domain.Review
	err := db.WithContext(ctx).
		Where("request_id = ? AND user_id = ?", requestID, userID).
		First(&rev).Error
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// UpdateReviewFlags sets the moderation flags that are present (nil means
// "leave unchanged"). The two flags are independent: approving never touches
// published and vice versa.
func UpdateReviewFlags(ctx context.Context, db *gorm.DB, id string, approved, published *bool) error {
	fields := map[string]any{}
	if approved != nil {
		fields["approved"] = *approved
	}
	if published != nil {
		fields["published"] = *published
	}
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetReviewReply stores (or replaces) the artisan's reply and stamps the
// reply timestamp. Resubmitting overwrites the previous reply.
func SetReviewReply(ctx context.Context, db *gorm.DB, id, text string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reply_text": text,
			"replied_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPublishedReviews returns reviews that are both approved and published,
// newest first. This is the read model consumed by the public site.
func ListPublishedReviews(ctx context.Context, db *gorm.DB) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("approved = ? AND published = ?", true, true).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
