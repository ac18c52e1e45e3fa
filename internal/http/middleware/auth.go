// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file bridges the identity guard into the request pipeline. Most routes
// are reachable anonymously (guests follow their commissions with an access
// token instead of an account), so Authenticate never rejects a missing
// credential; it only rejects credentials that are present and broken.
// RequireAdmin gates the artisan-only surface.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/artisan-atelier/commission-backend/internal/auth"
)

// Context keys for the resolved caller. Handlers read these instead of
// re-parsing the Authorization header.
const (
	ctxKeyIdentity = "identity"
	ctxKeyUserID   = "userID"
)

// IdentityFrom returns the identity resolved by Authenticate. Routes without
// the middleware (or callers with no credential) get the anonymous identity.
func IdentityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.AnonymousIdentity
}

// Authenticate resolves the Authorization header through the guard and
// stashes the identity in the Gin context.
//
// Behavior:
//   - No Authorization header: anonymous identity, request proceeds.
//   - "Bearer <token>" that resolves: identity + userID stored, proceeds.
//   - Malformed, expired, or unknown token: 401. A broken credential is never
//     silently downgraded to anonymous, otherwise an expired session would
//     look like a permission bug on guest-accessible routes.
//   - Valid token for a disabled account: 403.
func Authenticate(guard *auth.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))

		ident, err := guard.Resolve(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			code := "unauthenticated"
			if errors.Is(err, auth.ErrAccountDisabled) {
				status = http.StatusForbidden
				code = "account_disabled"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       code,
				"message":    err.Error(),
			})
			return
		}

		c.Set(ctxKeyIdentity, ident)
		if !ident.Anonymous {
			c.Set(ctxKeyUserID, ident.ID)
		}
		c.Next()
	}
}

// RequireAdmin aborts with 401 for anonymous callers and 403 for
// authenticated callers without the admin role. Place after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident.Anonymous {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthenticated",
				"message":    "authentication required",
			})
			return
		}
		if !ident.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "forbidden",
				"message":    "admin role required",
			})
			return
		}
		c.Next()
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer x"
// header value. Returns "" for absent or non-Bearer schemes.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
