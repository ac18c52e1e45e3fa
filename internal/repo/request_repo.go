// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// CommissionRequest and Attachment models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Lifecycle legality, authorization, and
// visibility rules live in the services package.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - UpdateRequestStatus reports success through its rows-affected count so
//     the service layer can detect a lost compare-and-set race.
//   - On other DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRequest inserts a new CommissionRequest row. The caller supplies a
// fully populated entity (ID, snapshot, category, payload, access token);
// CreatedAt is stamped here in UTC and Status defaults to "new" when unset.
func CreateRequest(ctx context.Context, db *gorm.DB, req *domain.CommissionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = domain.StatusNew
	}
	req.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(req).Error
}

// GetRequest fetches a single request by ID, or ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.CommissionRequest, error) {
	var req domain.CommissionRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListRequestsByUser returns all requests owned by userID, newest first.
func ListRequestsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.CommissionRequest, error) {
	var out []domain.CommissionRequest
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountRequests returns the total number of requests, optionally filtered by
// lifecycle status (empty status means all).
func CountRequests(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.CommissionRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListRequestsPage returns a paginated slice of requests, newest first,
// optionally filtered by status. Use CountRequests for pagination metadata.
func ListRequestsPage(ctx context.Context, db *gorm.DB, status domain.Status, offset, limit int) ([]domain.CommissionRequest, error) {
	q := db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.CommissionRequest
	err := q.
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateRequestStatus performs the atomic check-then-set step of a lifecycle
// transition: the status column is written only when it still holds the value
// the caller observed. The returned count is 0 when another transition won
// the race (or the row is gone), in which case nothing was modified.
func UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.Status) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.CommissionRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// UpdateCommercialFields writes the provided column/value pairs on a request
// and bumps updated_at. The service layer is responsible for restricting
// which columns may appear here and for authorization.
func UpdateCommercialFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.CommissionRequest{}).
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

// CreateAttachment inserts an attachment row bound to a request. The caller
// provides the stored object reference returned by the storage collaborator.
func CreateAttachment(ctx context.Context, db *gorm.DB, att *domain.Attachment) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	att.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(att).Error
}

// GetAttachment fetches an attachment by ID scoped to its parent request, or
// ErrNotFound when either side of the pair does not match.
func GetAttachment(ctx context.Context, db *gorm.DB, requestID, id string) (*domain.Attachment, error) {
	var att domain.Attachment
	err := db.WithContext(ctx).
		Where("id = ? AND request_id = ?", id, requestID).
		First(&att).Error
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// ListAttachments returns all attachments of a request in upload order.
func ListAttachments(ctx context.Context, db *gorm.DB, requestID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteAttachment removes an attachment row. It returns ErrNotFound when no
// row matched, so callers can distinguish a repeat delete.
func DeleteAttachment(ctx context.Context, db *gorm.DB, requestID, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND request_id = ?", id, requestID).
		Delete(&domain.Attachment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
