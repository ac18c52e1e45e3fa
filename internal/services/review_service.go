// Package services – ReviewService
//
// This file implements the ReviewService, which governs the review gate on
// delivered commissions: eligibility reporting, transactional submission
// (with the unique index closing the concurrent-submit race), independent
// moderation flags, and artisan replies.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/repo"
)

// DefaultMaxReviewRunes caps review bodies when no explicit limit is set.
const DefaultMaxReviewRunes = 4000

// EligibilityReason is the machine-readable outcome of an eligibility check.
type EligibilityReason string

// Eligibility outcomes. Only "eligible" permits submission; the others name
// the first failed gate.
const (
	Eligible              EligibilityReason = "eligible"
	ReasonRequestNotFound EligibilityReason = "request_not_found"
	ReasonNotDelivered    EligibilityReason = "not_delivered"
	ReasonAlreadyReviewed EligibilityReason = "already_reviewed"
)

// ReviewService implements the use-cases around reviews.
type ReviewService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// MaxBodyRunes caps review bodies by rune length.
	MaxBodyRunes int
}

// NewReviewService constructs a ReviewService with the default body cap.
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{DB: db, MaxBodyRunes: DefaultMaxReviewRunes}
}

// Eligibility reports whether userID may review requestID.
//
// The gates, in order: the request must exist, it must be delivered, and the
// user must not have reviewed it already. Any registered user may review any
// delivered commission; the (request, user) unique index caps each user at
// one review per request. Guests cannot review at all (ErrGuestReview).
func (s *ReviewService) Eligibility(ctx context.Context, requestID, userID string) (EligibilityReason, error) {
	if userID == "" {
		return "", ErrGuestReview
	}
	return s.eligibility(ctx, s.DB, requestID, userID)
}

// SubmitReviewInput is the payload of a review submission.
type SubmitReviewInput struct {
	Rating    int
	Title     *string
	Body      string
	PhotoPath *string
}

// Submit creates a review for a delivered commission.
//
// Validation: rating must be 1..5 (ErrInvalidRating) and the body within the
// rune cap (ErrReviewTooLong). Eligibility is re-checked inside the
// transaction so a transition or submission that landed after the caller's
// earlier eligibility probe is still caught. The insert relies on the
// (request_id, user_id) unique index: of two concurrent submissions exactly
// one row survives and the loser gets ErrAlreadyReviewed.
//
// New reviews always start unapproved and unpublished.
func (s *ReviewService) Submit(ctx context.Context, requestID, userID string, in SubmitReviewInput) (*domain.Review, error) {
	if userID == "" {
		return nil, ErrGuestReview
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	body := strings.TrimSpace(in.Body)
	max := s.MaxBodyRunes
	if max <= 0 {
		max = DefaultMaxReviewRunes
	}
	if utf8.RuneCountInString(body) > max {
		return nil, ErrReviewTooLong
	}

	rev := &domain.Review{
		ID:        uuid.NewString(),
		RequestID: requestID,
		UserID:    userID,
		Rating:    in.Rating,
		Title:     in.Title,
		Body:      body,
		PhotoPath: in.PhotoPath,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reason, err := s.eligibility(ctx, tx, requestID, userID)
		if err != nil {
			return err
		}
		switch reason {
		case ReasonRequestNotFound:
			return ErrRequestNotFound
		case ReasonNotDelivered:
			return ErrNotDelivered
		case ReasonAlreadyReviewed:
			return ErrAlreadyReviewed
		}

		if err := repo.CreateReview(ctx, tx, rev); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrAlreadyReviewed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// Moderate sets the moderation flags that are present; nil leaves a flag
// unchanged. Approved and Published are independent: publishing does not
// imply approval and approving does not publish.
func (s *ReviewService) Moderate(ctx context.Context, reviewID string, approved, published *bool) (*domain.Review, error) {
	if err := repo.UpdateReviewFlags(ctx, s.DB, reviewID, approved, published); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return repo.GetReview(ctx, s.DB, reviewID)
}

// Reply stores the artisan's reply on a review, overwriting any previous
// reply and stamping the reply time.
func (s *ReviewService) Reply(ctx context.Context, reviewID, text string) (*domain.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyReply
	}
	if err := repo.SetReviewReply(ctx, s.DB, reviewID, text); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return repo.GetReview(ctx, s.DB, reviewID)
}

// ListPublished returns the approved-and-published read model consumed by
// the public site.
func (s *ReviewService) ListPublished(ctx context.Context) ([]domain.Review, error) {
	return repo.ListPublishedReviews(ctx, s.DB)
}

// eligibility runs the gate checks on the given handle (plain or
// transaction-bound).
func (s *ReviewService) eligibility(ctx context.Context, db *gorm.DB, requestID, userID string) (EligibilityReason, error) {
	req, err := repo.GetRequest(ctx, db, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReasonRequestNotFound, nil
		}
		return "", err
	}
	if req.Status != domain.StatusDelivered {
		return ReasonNotDelivered, nil
	}
	if _, err := repo.GetReviewByRequestUser(ctx, db, requestID, userID); err == nil {
		return ReasonAlreadyReviewed, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	return Eligible, nil
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
