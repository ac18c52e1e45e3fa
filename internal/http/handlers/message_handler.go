// Message thread HTTP handlers.
//
// This file exposes REST endpoints for the per-request negotiation thread:
//   - GET  /requests/{id}/messages         (list, ETag + poll hint headers)
//   - POST /requests/{id}/messages         (append a message)
//   - POST /requests/{id}/messages/read    (mark read up to a message)
//   - GET  /requests/{id}/messages/unread  (unread counterpart count)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Polling contract:
// The list endpoint advertises the reference polling intervals via
// X-Poll-Interval and X-Poll-Interval-Background (seconds), so every client
// backs off the same way without hardcoding the numbers.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, request, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/http/middleware"
	"github.com/artisan-atelier/commission-backend/internal/poll"
	"github.com/artisan-atelier/commission-backend/internal/repo"
	"github.com/artisan-atelier/commission-backend/internal/services"
)

//
// DTOs
//

// PostMessageBody is the JSON payload for posting a thread message.
//
// Body is normalized by the handler (line endings and excessive blank lines)
// before being passed to the service layer, which enforces the rune cap.
type PostMessageBody struct {
	// Body is the message text. It must be non-empty after trimming.
	Body string `json:"body" binding:"required,min=1" example:"Could the engraving use a serif typeface?"`
}

// PostMessageResponse is the JSON envelope for a newly created message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains the full thread of a request.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// MarkReadBody names the newest message the viewer has seen.
type MarkReadBody struct {
	// UpToID is the boundary message; it and everything older is marked read.
	UpToID string `json:"up_to_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// MarkReadResponse reports how many messages were newly marked read.
type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

// UnreadCountResponse carries the viewer's unread counterpart count.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeBody normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxBodyRunes inspects the concrete MessageService for a configured
// body-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxBodyRunes(msgSvc MessageService) int {
	if ms, okSvc := msgSvc.(*services.MessageService); okSvc {
		if ms.MaxBodyRunes > 0 {
			return ms.MaxBodyRunes
		}
	}
	return services.DefaultMaxBodyRunes
}

// setPollHeaders advertises the reference polling intervals in seconds.
func setPollHeaders(c *gin.Context) {
	c.Header("X-Poll-Interval", strconv.Itoa(int(poll.DefaultForegroundEvery.Seconds())))
	c.Header("X-Poll-Interval-Background", strconv.Itoa(int(poll.DefaultBackgroundEvery.Seconds())))
}

//
// Handlers
//

// ListMessages godoc
// @ID          listMessages
// @Summary     List the message thread
// @Description Returns every message of the request in stable order. Supports weak
// @Description ETag revalidation via If-None-Match (the tag covers posts and read
// @Description marks) and advertises the polling contract via X-Poll-Interval.
// @Tags        Messages
// @Produce     json
//
// @Param       id             path    string  true   "Request ID (UUID)"  format(uuid)
// @Param       token          query   string  false  "Guest access token"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag            "Weak ETag for current thread state"
// @Header      200  {string} X-Poll-Interval "Foreground polling interval (seconds)"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requests/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	setPollHeaders(c)

	// Authorization first: a not-found and a not-visible request must be
	// indistinguishable, so no header is emitted before List decides.
	items, err := h.msgSvc.List(ctx, requestID, actor(c))
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	// ETag revalidation (best effort). The tag covers message count, newest
	// timestamp, and read count, so both posting and marking read invalidate
	// it.
	if db := dbOf(h.msgSvc); db != nil {
		count, lastTS, readCount, statErr := repo.ThreadStats(ctx, db, requestID)
		if statErr == nil {
			var ts int64
			if lastTS != nil {
				ts = lastTS.Unix()
			}
			etag := fmt.Sprintf(`W/"thread:%s:%d:%d:%d"`, requestID, count, ts, readCount)
			c.Header("ETag", etag)
			c.Header("Cache-Control", "private, no-cache")
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	if items == nil {
		items = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Post a message to the thread
// @Description Appends a message; the sender side (requester or artisan) is derived
// @Description from the caller, never from the payload. Supports idempotent retries
// @Description via the Idempotency-Key header (same key → same stored message).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       id               path    string  true   "Request ID (UUID)"  format(uuid)
// @Param       token            query   string  false  "Guest access token"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       body             body    handlers.PostMessageBody  true  "Message payload"
//
// @Success     201  {object}  handlers.PostMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body PostMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	text := sanitizeBody(body.Body)
	maxRunes := discoverMaxBodyRunes(h.msgSvc)
	if text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		return
	}
	if utf8.RuneCountInString(text) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("body too long: max %d runes", maxRunes))
		return
	}

	act := actor(c)
	callerID := act.Identity.ID // "" for guests; keyed with the request ID

	// Idempotency (replay path) – read the validated key if present. The
	// caller must be able to see the request before any stored message is
	// served: a guest record is keyed on an empty user ID, so the key alone
	// must never stand in for the access token.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if err := h.msgSvc.Visible(ctx, requestID, act); err != nil {
			switch err {
			case services.ErrRequestNotFound:
				fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
			default:
				fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			}
			return
		}
		if db := dbOf(h.msgSvc); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, callerID, requestID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(ctx, db, requestID, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, PostMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	// Normal processing (the service has a second guard for length).
	m, err := h.msgSvc.Post(ctx, requestID, act, text)
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest,
				fmt.Sprintf("body too long: max %d runes", maxRunes))
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := dbOf(h.msgSvc); db != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, db, callerID, requestID, idemKey, m.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, PostMessageResponse{Message: m})
}

// MarkMessagesRead godoc
// @ID          markMessagesRead
// @Summary     Mark messages read
// @Description Stamps read_at on every unread counterpart message up to and
// @Description including the boundary. Idempotent; repeating marks nothing new.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       id     path   string                  true   "Request ID (UUID)"  format(uuid)
// @Param       token  query  string                  false  "Guest access token"
// @Param       body   body   handlers.MarkReadBody   true   "Boundary message"
//
// @Success     200  {object}  handlers.MarkReadResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request or message not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/messages/read [post]
func (h *Handlers) MarkMessagesRead(c *gin.Context) {
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body MarkReadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "up_to_id required")
		return
	}

	marked, err := h.msgSvc.MarkRead(c.Request.Context(), requestID, body.UpToID, actor(c))
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Marked: marked})
}

// UnreadCount godoc
// @ID          unreadCount
// @Summary     Count unread messages
// @Description Returns how many counterpart messages the caller has not marked read.
// @Tags        Messages
// @Produce     json
//
// @Param       id     path   string  true   "Request ID (UUID)"  format(uuid)
// @Param       token  query  string  false  "Guest access token"
//
// @Success     200  {object}  handlers.UnreadCountResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/messages/unread [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	n, err := h.msgSvc.UnreadCount(c.Request.Context(), requestID, actor(c))
	if err != nil {
		switch err {
		case services.ErrRequestNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Unread: n})
}
