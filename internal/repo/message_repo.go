// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: append, ordered retrieval, read-state updates, and unread counts.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// CreateMessage appends a message to a request's thread with read_at unset.
func CreateMessage(ctx context.Context, db *gorm.DB, requestID string, sender domain.Sender, body string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Sender:    sender,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// ListMessages returns the full thread ordered deterministically
// (CreatedAt ASC, ID ASC).
func ListMessages(ctx context.Context, db *gorm.DB, requestID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID scoped to its request, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, requestID, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("id = ? AND request_id = ?", id, requestID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkReadUpTo stamps read_at on every unread message authored by sender up
// to and including the boundary position (boundary is the CreatedAt/ID pair
// of the last message the viewer has seen). Messages already read keep their
// original timestamp, which makes the operation idempotent. The returned
// count is the number of rows newly marked.
func MarkReadUpTo(ctx context.Context, db *gorm.DB, requestID string, sender domain.Sender, boundaryCreated time.Time, boundaryID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("request_id = ? AND sender = ? AND read_at IS NULL", requestID, sender).
		Where("(created_at < ?) OR (created_at = ? AND id <= ?)", boundaryCreated, boundaryCreated, boundaryID).
		Update("read_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}

// UnreadCount returns how many messages authored by sender are still unread.
// The viewer's own messages never count toward their unread total.
func UnreadCount(ctx context.Context, db *gorm.DB, requestID string, sender domain.Sender) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("request_id = ? AND sender = ? AND read_at IS NULL", requestID, sender).
		Count(&total).Error
	return total, err
}

// CountMessages returns the number of messages in a request's thread.
func CountMessages(ctx context.Context, db *gorm.DB, requestID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages WHERE request_id = ?", requestID).Scan(&total).Error
	return total, err
}
