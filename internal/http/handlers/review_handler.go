// Review HTTP handlers.
//
// This file exposes REST endpoints for the review gate:
//   - GET  /requests/{id}/review/eligibility  (may this user review?)
//   - POST /requests/{id}/review              (submit, registered users only)
//   - GET  /reviews                           (published read model, public)
//   - POST /reviews/{id}/moderate             (admin: approve/publish flags)
//   - POST /reviews/{id}/reply                (admin: reply to a review)
//
// Reviews require an account: eligibility and submission both reject
// anonymous callers with 401 before touching the service gates.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/services"
)

//
// DTOs
//

// EligibilityResponse reports whether the caller may review a request and,
// when not, which gate failed.
type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason" example:"not_delivered"`
}

// SubmitReviewBody is the JSON payload for submitting a review.
type SubmitReviewBody struct {
	// Rating is the star rating, 1 to 5.
	Rating int `json:"rating" binding:"required" example:"5"`
	// Title is an optional headline (max 160 chars).
	Title *string `json:"title,omitempty" example:"Beautiful work"`
	// Body is the review text.
	Body string `json:"body" example:"The engraving exceeded every expectation."`
	// PhotoPath optionally references an uploaded photo of the piece.
	PhotoPath *string `json:"photo_path,omitempty"`
}

// ModerateReviewBody carries the independent moderation flags. Absent flags
// are left unchanged; publishing does not imply approval.
type ModerateReviewBody struct {
	Approved  *bool `json:"approved,omitempty"`
	Published *bool `json:"published,omitempty"`
}

// ReplyReviewBody is the artisan's reply text.
type ReplyReviewBody struct {
	Text string `json:"text" binding:"required,min=1" example:"Thank you, it was a joy to make."`
}

// ListReviewsResponse wraps the published reviews read model.
type ListReviewsResponse struct {
	Reviews []domain.Review `json:"reviews"`
}

//
// Handlers
//

// ReviewEligibility godoc
// @ID          reviewEligibility
// @Summary     Check review eligibility
// @Description Reports whether the authenticated caller may review the request.
// @Description The reason names the first failed gate: request_not_found,
// @Description not_delivered, or already_reviewed.
// @Tags        Reviews
// @Produce     json
//
// @Param       id  path  string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.EligibilityResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Account required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/review/eligibility [get]
func (h *Handlers) ReviewEligibility(c *gin.Context) {
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	act := actor(c)
	if act.Identity.Anonymous {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, services.ErrGuestReview.Error())
		return
	}

	reason, err := h.revSvc.Eligibility(c.Request.Context(), requestID, act.Identity.ID)
	if err != nil {
		switch err {
		case services.ErrGuestReview:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, EligibilityResponse{
		Eligible: reason == services.Eligible,
		Reason:   string(reason),
	})
}

// SubmitReview godoc
// @ID          submitReview
// @Summary     Submit a review
// @Description Creates a review for a delivered commission.
// @Description New reviews start unapproved and unpublished. One review per
// @Description (request, user); a second submission yields 409 already_reviewed.
// @Tags        Reviews
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                      true  "Request ID (UUID)"  format(uuid)
// @Param       body  body  handlers.SubmitReviewBody   true  "Review payload"
//
// @Success     201  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Account required"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not delivered / already reviewed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/review [post]
func (h *Handlers) SubmitReview(c *gin.Context) {
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	act := actor(c)
	if act.Identity.Anonymous {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, services.ErrGuestReview.Error())
		return
	}

	var body SubmitReviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating required")
		return
	}

	in := services.SubmitReviewInput{
		Rating:    body.Rating,
		Title:     body.Title,
		Body:      body.Body,
		PhotoPath: body.PhotoPath,
	}
	rev, err := h.revSvc.Submit(c.Request.Context(), requestID, act.Identity.ID, in)
	if err != nil {
		switch err {
		case services.ErrGuestReview:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
		case services.ErrInvalidRating, services.ErrReviewTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrNotDelivered:
			fail(c, http.StatusConflict, ErrCodeNotDelivered, err.Error())
		case services.ErrAlreadyReviewed:
			fail(c, http.StatusConflict, ErrCodeAlreadyReviewed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, rev)
}

// ListPublishedReviews godoc
// @ID          listPublishedReviews
// @Summary     List published reviews
// @Description Returns reviews that are both approved and published, newest first.
// @Description This is the public read model consumed by the site.
// @Tags        Reviews
// @Produce     json
//
// @Success     200  {object}  handlers.ListReviewsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews [get]
func (h *Handlers) ListPublishedReviews(c *gin.Context) {
	items, err := h.revSvc.ListPublished(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Review{}
	}
	ok(c, http.StatusOK, ListReviewsResponse{Reviews: items})
}

// ModerateReview godoc
// @ID          moderateReview
// @Summary     Moderate a review
// @Description Sets the approved and published flags independently. Routed behind
// @Description the admin gate.
// @Tags        Reviews
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                        true  "Review ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ModerateReviewBody   true  "Flags to set"
//
// @Success     200  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews/{id}/moderate [post]
func (h *Handlers) ModerateReview(c *gin.Context) {
	reviewID := c.Param("id")
	if _, err := uuid.Parse(reviewID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "review id must be a UUID")
		return
	}

	var body ModerateReviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if body.Approved == nil && body.Published == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one flag required")
		return
	}

	rev, err := h.revSvc.Moderate(c.Request.Context(), reviewID, body.Approved, body.Published)
	if err != nil {
		switch err {
		case services.ErrReviewNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "review not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, rev)
}

// ReplyReview godoc
// @ID          replyReview
// @Summary     Reply to a review
// @Description Stores the artisan's public reply, overwriting any previous one.
// @Description Routed behind the admin gate.
// @Tags        Reviews
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                     true  "Review ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ReplyReviewBody   true  "Reply text"
//
// @Success     200  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews/{id}/reply [post]
func (h *Handlers) ReplyReview(c *gin.Context) {
	reviewID := c.Param("id")
	if _, err := uuid.Parse(reviewID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "review id must be a UUID")
		return
	}

	var body ReplyReviewBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}

	rev, err := h.revSvc.Reply(c.Request.Context(), reviewID, body.Text)
	if err != nil {
		switch err {
		case services.ErrEmptyReply:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrReviewNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "review not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, rev)
}
