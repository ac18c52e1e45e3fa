// Commission request HTTP handlers.
//
// This file exposes REST endpoints for commission request resources:
//   - POST   /requests                       (submit, guest or authenticated)
//   - GET    /requests                       (own requests / admin dashboard)
//   - GET    /requests/{id}                  (visibility-guarded read)
//   - POST   /requests/{id}/status           (lifecycle transition)
//   - PATCH  /requests/{id}/commercial       (quote, due date, internal notes)
//   - POST   /requests/{id}/attachments      (add one file)
//   - DELETE /requests/{id}/attachments/{attID}
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
// Authorization lives in the service layer; the handlers only assemble the
// acting party from the resolved identity and the optional guest access token.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/auth"
	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/http/middleware"
	"github.com/artisan-atelier/commission-backend/internal/repo"
	"github.com/artisan-atelier/commission-backend/internal/services"
	"github.com/artisan-atelier/commission-backend/internal/utils"
	"github.com/artisan-atelier/commission-backend/internal/verify"
)

//
// Service contracts (context-aware)
//

// RequestService defines commission request operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context for cancellation and timeouts.
type RequestService interface {
	// Create validates and persists a new commission request.
	Create(ctx context.Context, actor services.Actor, in services.CreateRequestInput) (*domain.CommissionRequest, error)
	// Transition moves a request along one lifecycle edge.
	Transition(ctx context.Context, id string, target domain.Status, actor services.Actor) (*domain.CommissionRequest, error)
	// UpdateCommercial sets quote, due date, and internal notes.
	UpdateCommercial(ctx context.Context, id string, in services.UpdateCommercialInput, actor services.Actor) (*domain.CommissionRequest, error)
	// AddAttachment uploads one more file to an existing request.
	AddAttachment(ctx context.Context, requestID string, up services.AttachmentUpload, actor services.Actor) (*domain.Attachment, error)
	// DeleteAttachment removes an attachment and its stored object.
	DeleteAttachment(ctx context.Context, requestID, attID string, actor services.Actor) error
	// Get returns a single visible request.
	Get(ctx context.Context, id string, actor services.Actor) (*domain.CommissionRequest, error)
	// Attachments lists the attachments of a visible request.
	Attachments(ctx context.Context, requestID string, actor services.Actor) ([]domain.Attachment, error)
	// ListOwn returns the authenticated customer's requests, newest first.
	ListOwn(ctx context.Context, actor services.Actor) ([]domain.CommissionRequest, error)
	// ListPage returns a page of all requests (admin dashboard).
	ListPage(ctx context.Context, actor services.Actor, status domain.Status, page, pageSize int) ([]domain.CommissionRequest, int64, error)
}

// MessageService defines message thread operations consumed by HTTP handlers.
type MessageService interface {
	// Post appends a message to the thread of a visible request.
	Post(ctx context.Context, requestID string, actor services.Actor, body string) (*domain.Message, error)
	// List returns the full thread in stable order.
	List(ctx context.Context, requestID string, actor services.Actor) ([]domain.Message, error)
	// MarkRead stamps read_at on counterpart messages up to a boundary.
	MarkRead(ctx context.Context, requestID, upToID string, actor services.Actor) (int64, error)
	// UnreadCount counts unread counterpart messages.
	UnreadCount(ctx context.Context, requestID string, actor services.Actor) (int64, error)
	// Visible reports whether the actor may see the request's thread.
	Visible(ctx context.Context, requestID string, actor services.Actor) error
}

// ReviewService defines review gate operations consumed by HTTP handlers.
type ReviewService interface {
	// Eligibility reports whether a user may review a request.
	Eligibility(ctx context.Context, requestID, userID string) (services.EligibilityReason, error)
	// Submit creates a review for a delivered commission.
	Submit(ctx context.Context, requestID, userID string, in services.SubmitReviewInput) (*domain.Review, error)
	// Moderate sets the independent moderation flags.
	Moderate(ctx context.Context, reviewID string, approved, published *bool) (*domain.Review, error)
	// Reply stores the artisan's reply on a review.
	Reply(ctx context.Context, reviewID, text string) (*domain.Review, error)
	// ListPublished returns the approved-and-published read model.
	ListPublished(ctx context.Context) ([]domain.Review, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for requests, messages, and reviews. It
// depends on abstract service interfaces to keep transport concerns separate
// from business logic.
type Handlers struct {
	reqSvc   RequestService
	msgSvc   MessageService
	revSvc   ReviewService
	verifier verify.Verifier
}

// New constructs a Handlers instance bound to the given services. A nil
// verifier disables the guest challenge (development mode): every guest
// submission counts as verified.
func New(reqSvc RequestService, msgSvc MessageService, revSvc ReviewService, verifier verify.Verifier) *Handlers {
	if verifier == nil {
		verifier = verify.AllowAll{}
	}
	return &Handlers{reqSvc: reqSvc, msgSvc: msgSvc, revSvc: revSvc, verifier: verifier}
}

// actor assembles the acting party for service calls: the identity resolved
// by the auth middleware plus, for guests, the access token they presented.
func actor(c *gin.Context) services.Actor {
	return services.Actor{
		Identity:   middleware.IdentityFrom(c),
		GuestToken: guestAccessToken(c),
	}
}

// guestAccessToken reads the per-request access token from the `token` query
// parameter, falling back to the X-Access-Token header for clients that do
// not want the secret in URLs.
func guestAccessToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	return strings.TrimSpace(c.GetHeader("X-Access-Token"))
}

//
// DTOs
//

// CreateRequestBody is the JSON payload for submitting a commission request.
// The same fields are accepted as multipart form values when the submission
// carries attachments.
type CreateRequestBody struct {
	// ContactName is the submitter's display name (1–120 chars).
	ContactName string `json:"contact_name" example:"Ada Lovelace"`
	// ContactEmail is where quotes and updates are sent.
	ContactEmail string `json:"contact_email" example:"ada@example.com"`
	// ContactPhone is optional.
	ContactPhone *string `json:"contact_phone,omitempty" example:"+44 20 7946 0958"`
	// Category selects the craft: engraving, cake, event, or other.
	Category string `json:"category" example:"engraving"`
	// Details is the category-specific payload, stored verbatim.
	Details json.RawMessage `json:"details,omitempty"`
	// VerificationToken is the challenge response; required for guests.
	VerificationToken string `json:"verification_token,omitempty"`
}

// CreateRequestResponse returns the new request plus its access token. The
// token is shown exactly once, here; it is never included in later reads.
type CreateRequestResponse struct {
	Request     *domain.CommissionRequest `json:"request"`
	Attachments []domain.Attachment       `json:"attachments,omitempty"`
	AccessToken string                    `json:"access_token"`
}

// GetRequestResponse is a request together with its attachment metadata.
type GetRequestResponse struct {
	Request     *domain.CommissionRequest `json:"request"`
	Attachments []domain.Attachment       `json:"attachments"`
}

// TransitionRequestBody names the target lifecycle state.
type TransitionRequestBody struct {
	// Status is the target state, e.g. "quote_sent" or "cancelled".
	Status string `json:"status" binding:"required" example:"quote_sent"`
}

// UpdateCommercialBody carries the artisan-editable commercial fields.
// Absent fields are left unchanged.
type UpdateCommercialBody struct {
	QuoteAmount *float64   `json:"quote_amount,omitempty" example:"149.50"`
	QuoteNotes  *string    `json:"quote_notes,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AdminNotes  *string    `json:"admin_notes,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRequestsResponse wraps a page of requests and pagination information.
// Pagination is nil for the non-paginated own-requests view.
type ListRequestsResponse struct {
	Requests   []domain.CommissionRequest `json:"requests"`
	Pagination *Pagination                `json:"pagination,omitempty"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// Submission limits enforced at the edge, before any upload happens.
const (
	maxCreateAttachments = 5
	maxAttachmentBytes   = 10 << 20
)

// openUploads converts multipart file headers into attachment uploads. The
// returned closer releases every opened file; call it after the service call.
func openUploads(files []*multipart.FileHeader) ([]services.AttachmentUpload, func(), error) {
	ups := make([]services.AttachmentUpload, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range files {
		if fh.Size > maxAttachmentBytes {
			closeAll()
			return nil, nil, fmt.Errorf("attachment %q exceeds %d bytes", fh.Filename, maxAttachmentBytes)
		}
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		ups = append(ups, services.AttachmentUpload{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Reader:   f,
		})
	}
	return ups, closeAll, nil
}

//
// Handlers
//

// CreateRequest godoc
// @ID          createRequest
// @Summary     Submit a commission request
// @Description Creates a commission request for a guest or an authenticated customer.
// @Description Guests must include a verification token. Accepts JSON, or multipart
// @Description form data when attachments accompany the submission.
// @Tags        Requests
// @Accept      json
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       body  body  handlers.CreateRequestBody  true  "Submission payload"
//
// @Success     201  {object}  handlers.CreateRequestResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Verification required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	ctx := c.Request.Context()

	var body CreateRequestBody
	var uploads []services.AttachmentUpload

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart form")
			return
		}
		body = CreateRequestBody{
			ContactName:       c.PostForm("contact_name"),
			ContactEmail:      c.PostForm("contact_email"),
			Category:          c.PostForm("category"),
			Details:           json.RawMessage(c.PostForm("details")),
			VerificationToken: c.PostForm("verification_token"),
		}
		if p := strings.TrimSpace(c.PostForm("contact_phone")); p != "" {
			body.ContactPhone = &p
		}

		files := form.File["attachments"]
		if len(files) > maxCreateAttachments {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest,
				fmt.Sprintf("too many attachments: max %d", maxCreateAttachments))
			return
		}
		ups, closeAll, err := openUploads(files)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		defer closeAll()
		uploads = ups
	} else {
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	act := actor(c)

	// Guests prove humanity before anything is stored; authenticated callers
	// are trusted by their credential.
	verified := true
	if act.Identity.Anonymous {
		okv, err := h.verifier.Verify(ctx, body.VerificationToken, c.ClientIP())
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "verification unavailable")
			return
		}
		verified = okv
	}

	in := services.CreateRequestInput{
		ContactName:  body.ContactName,
		ContactEmail: body.ContactEmail,
		ContactPhone: body.ContactPhone,
		Category:     domain.Category(strings.ToLower(strings.TrimSpace(body.Category))),
		Details:      string(body.Details),
		Verified:     verified,
		Attachments:  uploads,
	}

	req, err := h.reqSvc.Create(ctx, act, in)
	if err != nil {
		switch err {
		case services.ErrInvalidCategory:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrInvalidContact:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrVerificationRequired:
			fail(c, http.StatusForbidden, ErrCodeVerificationRequired, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Read the fresh request back through its own access token; the token
	// only passes the visibility check on an anonymous actor.
	echo := services.Actor{Identity: auth.AnonymousIdentity, GuestToken: req.AccessToken}
	atts, _ := h.reqSvc.Attachments(ctx, req.ID, echo)
	ok(c, http.StatusCreated, CreateRequestResponse{
		Request:     req,
		Attachments: atts,
		AccessToken: req.AccessToken,
	})
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Fetch a commission request
// @Description Returns one request with its attachment metadata. Owners use their
// @Description credential; guests pass the access token via ?token= or X-Access-Token.
// @Tags        Requests
// @Produce     json
//
// @Param       id     path   string  true   "Request ID (UUID)"  format(uuid)
// @Param       token  query  string  false  "Guest access token"
//
// @Success     200  {object}  handlers.GetRequestResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	act := actor(c)
	req, err := h.reqSvc.Get(ctx, id, act)
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	atts, err := h.reqSvc.Attachments(ctx, id, act)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if atts == nil {
		atts = []domain.Attachment{}
	}
	ok(c, http.StatusOK, GetRequestResponse{Request: req, Attachments: atts})
}

// ListRequests godoc
// @ID          listRequests
// @Summary     List commission requests
// @Description Customers get their own requests (ETag-aware). The admin gets the
// @Description paginated dashboard view, optionally filtered by status.
// @Tags        Requests
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches (own view)"
// @Param       status         query   string  false "Status filter (admin view)"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRequestsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()
	act := actor(c)

	if act.Identity.Anonymous {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	if act.IsAdmin() {
		h.listRequestsAdmin(c, act)
		return
	}

	// ETag pre-check (best effort).
	if svc, okSvc := h.reqSvc.(*services.RequestService); okSvc && svc.DB != nil {
		count, maxTS, err := repo.RequestsStats(ctx, svc.DB, act.Identity.ID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"requests:%s:%d:%d"`, act.Identity.ID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.reqSvc.ListOwn(ctx, act)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.CommissionRequest{}
	}
	ok(c, http.StatusOK, ListRequestsResponse{Requests: items})
}

// listRequestsAdmin serves the paginated dashboard view.
func (h *Handlers) listRequestsAdmin(c *gin.Context, act services.Actor) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)
	status := domain.Status(strings.ToLower(strings.TrimSpace(c.Query("status"))))

	items, total, err := h.reqSvc.ListPage(ctx, act, status, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrInvalidStatus:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListRequestsResponse{
		Requests: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// TransitionRequest godoc
// @ID          transitionRequest
// @Summary     Move a request along its lifecycle
// @Description The admin may take any legal edge; the requester (owner or guest with
// @Description the access token) may only cancel. Illegal edges and lost races both
// @Description yield 409 illegal_transition.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                           true  "Request ID (UUID)"  format(uuid)
// @Param       body  body  handlers.TransitionRequestBody   true  "Target status"
//
// @Success     200  {object}  domain.CommissionRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Illegal transition"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/status [post]
func (h *Handlers) TransitionRequest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body TransitionRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	target := domain.Status(strings.ToLower(strings.TrimSpace(body.Status)))
	if !target.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status")
		return
	}

	req, err := h.reqSvc.Transition(c.Request.Context(), id, target, actor(c))
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the admin may take this edge")
		case services.ErrIllegalTransition:
			fail(c, http.StatusConflict, ErrCodeIllegalTransition, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, req)
}

// UpdateCommercial godoc
// @ID          updateCommercial
// @Summary     Update commercial fields
// @Description Sets quote amount, quote notes, due date, and internal notes.
// @Description Admin only. Rejected and cancelled requests cannot be edited.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                          true  "Request ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateCommercialBody   true  "Fields to set"
//
// @Success     200  {object}  domain.CommissionRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request closed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/commercial [patch]
func (h *Handlers) UpdateCommercial(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body UpdateCommercialBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := services.UpdateCommercialInput{
		QuoteAmount: body.QuoteAmount,
		QuoteNotes:  body.QuoteNotes,
		DueDate:     body.DueDate,
		AdminNotes:  body.AdminNotes,
	}
	req, err := h.reqSvc.UpdateCommercial(c.Request.Context(), id, in, actor(c))
	if err != nil {
		switch err {
		case services.ErrForbidden:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin role required")
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrInvalidQuote:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrRequestClosed:
			fail(c, http.StatusConflict, ErrCodeRequestClosed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, req)
}

// AddAttachment godoc
// @ID          addAttachment
// @Summary     Add an attachment
// @Description Uploads one file (multipart field "file") to an open request.
// @Tags        Requests
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       id    path      string  true  "Request ID (UUID)"  format(uuid)
// @Param       file  formData  file    true  "File to attach"
//
// @Success     201  {object}  domain.Attachment
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request closed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/attachments [post]
func (h *Handlers) AddAttachment(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"file\" required")
		return
	}
	ups, closeAll, err := openUploads([]*multipart.FileHeader{fh})
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	defer closeAll()

	att, err := h.reqSvc.AddAttachment(c.Request.Context(), id, ups[0], actor(c))
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrRequestClosed:
			fail(c, http.StatusConflict, ErrCodeRequestClosed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, att)
}

// DeleteAttachment godoc
// @ID          deleteAttachment
// @Summary     Delete an attachment
// @Description Removes an attachment row and its stored object.
// @Tags        Requests
// @Produce     json
//
// @Param       id     path  string  true  "Request ID (UUID)"     format(uuid)
// @Param       attID  path  string  true  "Attachment ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/attachments/{attID} [delete]
func (h *Handlers) DeleteAttachment(c *gin.Context) {
	id := c.Param("id")
	attID := c.Param("attID")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	err := h.reqSvc.DeleteAttachment(c.Request.Context(), id, attID, actor(c))
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrAttachmentNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "attachment not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// dbOf extracts the raw GORM handle from a concrete service for best-effort
// transport concerns (ETags, idempotency replay). Returns nil for fakes.
func dbOf(svc any) *gorm.DB {
	switch s := svc.(type) {
	case *services.RequestService:
		return s.DB
	case *services.MessageService:
		return s.DB
	case *services.ReviewService:
		return s.DB
	default:
		return nil
	}
}
