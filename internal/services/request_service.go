// Package services – RequestService
//
// This file implements the RequestService, which owns the commission request
// lifecycle: validated creation (with attachment upload), the atomic status
// transition, commercial-field edits, attachment management, and
// visibility-guarded reads. Service-level errors (ErrRequestNotFound,
// ErrIllegalTransition, ...) are returned for predictable cases so handlers
// can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/notify"
	"github.com/artisan-atelier/commission-backend/internal/repo"
	"github.com/artisan-atelier/commission-backend/internal/storage"
)

// RequestService implements the use-cases around commission requests.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store holds attachment bytes. May be nil when attachments are disabled.
	Store storage.Store
	// Notifier delivers lifecycle notifications, best-effort.
	Notifier notify.Notifier

	validate *validator.Validate
}

// NewRequestService constructs a RequestService. A nil notifier is replaced
// with a no-op so call sites never have to nil-check.
func NewRequestService(db *gorm.DB, store storage.Store, notifier notify.Notifier) *RequestService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &RequestService{
		DB:       db,
		Store:    store,
		Notifier: notifier,
		validate: validator.New(),
	}
}

// AttachmentUpload is one file accompanying a request submission.
type AttachmentUpload struct {
	FileName string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// CreateRequestInput is the submission payload for a new commission request.
// The contact snapshot is validated; Details is an opaque category-specific
// payload stored verbatim and never inspected here.
type CreateRequestInput struct {
	ContactName  string  `validate:"required,max=120"`
	ContactEmail string  `validate:"required,email"`
	ContactPhone *string `validate:"omitempty,max=32"`
	Category     domain.Category
	Details      string

	// Verified is the result of the human-verification collaborator. Only
	// consulted for guest submissions; authenticated callers skip the check.
	Verified bool

	Attachments []AttachmentUpload
}

// Create validates and persists a new commission request.
//
// Semantics:
//   - Category must be one of the fixed enum values (ErrInvalidCategory).
//   - Contact name and a syntactically valid email are required
//     (ErrInvalidContact); phone is optional.
//   - Guest submissions (anonymous actor) require Verified=true
//     (ErrVerificationRequired).
//   - Attachments are uploaded to the object store first; the request row and
//     attachment rows are then inserted in one transaction. An upload failure
//     fails the whole create. A DB failure removes the uploaded objects
//     best-effort, so storage does not accumulate orphans.
//   - Status starts at "new" and an access token is minted so guests can
//     follow the request without an account.
//
// A "request created" notification is dispatched asynchronously on success.
func (s *RequestService) Create(ctx context.Context, actor Actor, in CreateRequestInput) (*domain.CommissionRequest, error) {
	if !in.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, ErrInvalidContact
	}
	if actor.Identity.Anonymous && !in.Verified {
		return nil, ErrVerificationRequired
	}
	if len(in.Attachments) > 0 && s.Store == nil {
		return nil, errors.New("attachment storage not configured")
	}

	details := strings.TrimSpace(in.Details)
	if details == "" {
		details = "{}"
	}

	req := &domain.CommissionRequest{
		ID:           uuid.NewString(),
		ContactName:  strings.TrimSpace(in.ContactName),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		ContactPhone: in.ContactPhone,
		Category:     in.Category,
		Status:       domain.StatusNew,
		Details:      details,
		AccessToken:  uuid.NewString(),
	}
	if !actor.Identity.Anonymous {
		id := actor.Identity.ID
		req.UserID = &id
	}

	// Upload first, persist after. Uploaded paths are tracked so a later
	// failure can clean them up.
	now := time.Now().UTC()
	uploaded := make([]string, 0, len(in.Attachments))
	rows := make([]domain.Attachment, 0, len(in.Attachments))
	for _, up := range in.Attachments {
		path := storage.ObjectPath(now)
		if err := s.Store.Put(ctx, path, up.Reader, up.Size, up.MimeType); err != nil {
			s.removeObjects(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, path)
		rows = append(rows, domain.Attachment{
			ID:          uuid.NewString(),
			RequestID:   req.ID,
			FileName:    up.FileName,
			StoragePath: path,
			MimeType:    up.MimeType,
			SizeBytes:   up.Size,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateRequest(ctx, tx, req); err != nil {
			return err
		}
		for i := range rows {
			if err := repo.CreateAttachment(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.removeObjects(ctx, uploaded)
		return nil, err
	}

	notify.Async(func(ctx context.Context) error {
		return s.Notifier.RequestCreated(ctx, req)
	})
	return req, nil
}

// Transition moves a request along one lifecycle edge.
//
// Authorization: the admin may take any edge; the requester (owning user or
// guest with the access token) may only cancel. Everyone else gets
// ErrRequestNotFound via the visibility rule, or ErrForbidden when they can
// see the request but may not move it.
//
// Concurrency: the write is a compare-and-set on the observed status. When a
// concurrent transition wins the race, zero rows match and the caller gets
// ErrIllegalTransition, exactly as if the edge had never existed.
func (s *RequestService) Transition(ctx context.Context, id string, target domain.Status, actor Actor) (*domain.CommissionRequest, error) {
	if !target.Valid() {
		return nil, ErrIllegalTransition
	}
	req, err := loadVisible(ctx, s.DB, id, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && target != domain.StatusCancelled {
		return nil, ErrForbidden
	}
	if !req.Status.CanTransitionTo(target) {
		return nil, ErrIllegalTransition
	}

	rows, err := repo.UpdateRequestStatus(ctx, s.DB, id, req.Status, target)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Someone else transitioned first; the edge we validated is stale.
		return nil, ErrIllegalTransition
	}

	from := req.Status
	req.Status = target
	notify.Async(func(ctx context.Context) error {
		return s.Notifier.StatusChanged(ctx, req, from, target)
	})
	return req, nil
}

// UpdateCommercialInput carries the artisan-editable commercial fields. Nil
// means "leave unchanged"; a pointer to the zero value clears/sets the field.
type UpdateCommercialInput struct {
	QuoteAmount *float64
	QuoteNotes  *string
	DueDate     *time.Time
	AdminNotes  *string
}

// UpdateCommercial sets quote, due date, and internal notes on a request.
// Admin only. Edits are blocked on rejected and cancelled requests
// (ErrRequestClosed); a delivered request can still be annotated.
func (s *RequestService) UpdateCommercial(ctx context.Context, id string, in UpdateCommercialInput, actor Actor) (*domain.CommissionRequest, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if in.QuoteAmount != nil && *in.QuoteAmount < 0 {
		return nil, ErrInvalidQuote
	}
	req, err := loadVisible(ctx, s.DB, id, actor)
	if err != nil {
		return nil, err
	}
	if req.Status == domain.StatusRejected || req.Status == domain.StatusCancelled {
		return nil, ErrRequestClosed
	}

	fields := map[string]any{}
	if in.QuoteAmount != nil {
		fields["quote_amount"] = *in.QuoteAmount
	}
	if in.QuoteNotes != nil {
		fields["quote_notes"] = *in.QuoteNotes
	}
	if in.DueDate != nil {
		fields["due_date"] = in.DueDate.UTC()
	}
	if in.AdminNotes != nil {
		fields["admin_notes"] = *in.AdminNotes
	}
	if len(fields) == 0 {
		return req, nil
	}
	if err := repo.UpdateCommercialFields(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return repo.GetRequest(ctx, s.DB, id)
}

// AddAttachment uploads one more file to an existing request. Allowed for the
// admin and the requester while the request is not terminal.
func (s *RequestService) AddAttachment(ctx context.Context, requestID string, up AttachmentUpload, actor Actor) (*domain.Attachment, error) {
	if s.Store == nil {
		return nil, errors.New("attachment storage not configured")
	}
	req, err := loadVisible(ctx, s.DB, requestID, actor)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return nil, ErrRequestClosed
	}

	path := storage.ObjectPath(time.Now().UTC())
	if err := s.Store.Put(ctx, path, up.Reader, up.Size, up.MimeType); err != nil {
		return nil, err
	}
	att := &domain.Attachment{
		RequestID:   requestID,
		FileName:    up.FileName,
		StoragePath: path,
		MimeType:    up.MimeType,
		SizeBytes:   up.Size,
	}
	if err := repo.CreateAttachment(ctx, s.DB, att); err != nil {
		s.removeObjects(ctx, []string{path})
		return nil, err
	}
	return att, nil
}

// DeleteAttachment removes an attachment row and, best-effort, its stored
// object. Allowed for the admin and the requester.
func (s *RequestService) DeleteAttachment(ctx context.Context, requestID, attID string, actor Actor) error {
	if _, err := loadVisible(ctx, s.DB, requestID, actor); err != nil {
		return err
	}
	att, err := repo.GetAttachment(ctx, s.DB, requestID, attID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if err := repo.DeleteAttachment(ctx, s.DB, requestID, attID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	s.removeObjects(ctx, []string{att.StoragePath})
	return nil
}

// Get returns a single request when the actor may see it.
func (s *RequestService) Get(ctx context.Context, id string, actor Actor) (*domain.CommissionRequest, error) {
	return loadVisible(ctx, s.DB, id, actor)
}

// Attachments lists the attachments of a visible request.
func (s *RequestService) Attachments(ctx context.Context, requestID string, actor Actor) ([]domain.Attachment, error) {
	if _, err := loadVisible(ctx, s.DB, requestID, actor); err != nil {
		return nil, err
	}
	return repo.ListAttachments(ctx, s.DB, requestID)
}

// ListOwn returns all requests belonging to the authenticated customer,
// newest first.
func (s *RequestService) ListOwn(ctx context.Context, actor Actor) ([]domain.CommissionRequest, error) {
	if actor.Identity.Anonymous {
		return nil, ErrForbidden
	}
	return repo.ListRequestsByUser(ctx, s.DB, actor.Identity.ID)
}

// ListPage returns a page of all requests, optionally filtered by status.
// Admin only; this is the dashboard view.
func (s *RequestService) ListPage(ctx context.Context, actor Actor, status domain.Status, page, pageSize int) ([]domain.CommissionRequest, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountRequests(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CommissionRequest{}, 0, nil
	}
	items, err := repo.ListRequestsPage(ctx, s.DB, status, offset, pageSize)
	return items, total, err
}

// removeObjects deletes stored objects best-effort, logging failures. Used
// for cleanup when a create half-succeeded.
func (s *RequestService) removeObjects(ctx context.Context, paths []string) {
	if s.Store == nil {
		return
	}
	for _, p := range paths {
		if err := s.Store.Remove(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to clean up stored object")
		}
	}
}
