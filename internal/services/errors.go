// Package services defines the business logic for commission requests,
// message threads, and reviews. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer. State errors (illegal transition, review
// eligibility) carry stable reason semantics so callers can render specific
// guidance rather than a generic failure.
package services

import "errors"

// Request-related errors.
var (
	// ErrRequestNotFound indicates that the requested commission does not
	// exist or is not visible to the caller. The two cases are deliberately
	// indistinguishable so existence is not leaked to unauthorized callers.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidCategory is returned when the submitted category is not one
	// of the fixed enum values.
	ErrInvalidCategory = errors.New("unknown category")

	// ErrInvalidStatus is returned when a supplied lifecycle status is not a
	// known state name.
	ErrInvalidStatus = errors.New("unknown status")

	// ErrInvalidContact is returned when the contact snapshot is missing a
	// name or a syntactically valid email address.
	ErrInvalidContact = errors.New("contact name and a valid email are required")

	// ErrVerificationRequired is returned when a guest submission arrives
	// without a positive result from the human-verification collaborator.
	ErrVerificationRequired = errors.New("human verification required")

	// ErrIllegalTransition is returned when a lifecycle transition is not an
	// edge of the transition table, including the case where a concurrent
	// transition changed the state after the caller observed it.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrRequestClosed is returned when commercial fields or attachments are
	// edited on a rejected or cancelled request.
	ErrRequestClosed = errors.New("request is closed")

	// ErrForbidden indicates the identity was resolved but lacks permission
	// for the operation (wrong role, not the owning requester).
	ErrForbidden = errors.New("operation not permitted")

	// ErrAttachmentNotFound indicates the referenced attachment does not
	// exist on the given request.
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrInvalidQuote is returned when a quote amount is negative.
	ErrInvalidQuote = errors.New("quote amount must not be negative")
)

// Message-thread errors.
var (
	// ErrEmptyMessage is returned when a posted message body is empty after
	// trimming.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrMessageTooLong is returned when a message body exceeds the
	// configured rune limit.
	ErrMessageTooLong = errors.New("message body too long")

	// ErrMessageNotFound indicates the referenced message does not exist in
	// the request's thread.
	ErrMessageNotFound = errors.New("message not found")
)

// Review errors.
var (
	// ErrNotDelivered is returned when a review is submitted before the
	// request reached the delivered state.
	ErrNotDelivered = errors.New("request not delivered")

	// ErrAlreadyReviewed is returned when the (request, user) pair already
	// has a review.
	ErrAlreadyReviewed = errors.New("review already exists")

	// ErrInvalidRating is returned when the rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrReviewTooLong is returned when the review body exceeds its bound.
	ErrReviewTooLong = errors.New("review body too long")

	// ErrReviewNotFound indicates the referenced review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrGuestReview is returned when an unauthenticated caller attempts to
	// review; only registered users may review.
	ErrGuestReview = errors.New("reviews require a registered account")

	// ErrEmptyReply is returned when an artisan reply is empty after trimming.
	ErrEmptyReply = errors.New("reply text is empty")
)
