// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// ThreadStats returns aggregate metadata for a request's message thread: the
// total number of messages, the greatest CreatedAt among them, and the number
// of messages already marked read.
//
// Posting a message changes count/lastCreated; marking messages read changes
// readCount, so an ETag derived from all three invalidates on either kind of
// mutation. When the thread is empty, lastCreated is nil.
func ThreadStats(ctx context.Context, db *gorm.DB, requestID string) (count int64, lastCreated *time.Time, readCount int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("request_id = ?", requestID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, 0, err
	}
	if count == 0 {
		return 0, nil, 0, nil
	}

	// Latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, 0, err
	}

	if err = db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("request_id = ? AND read_at IS NOT NULL", requestID).
		Count(&readCount).Error; err != nil {
		return 0, nil, 0, err
	}

	return count, &row.CreatedAt, readCount, nil
}

// RequestsStats returns aggregate metadata for a user's commission requests:
// the total number of rows and the maximum UpdatedAt timestamp among those
// rows. When the user has no requests, maxUpdatedAt is nil.
func RequestsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.CommissionRequest{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
