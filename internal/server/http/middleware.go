package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gpgvault/internal/common"
	"github.com/dmitrijs2005/gpgvault/internal/server/models"
	"github.com/dmitrijs2005/gpgvault/internal/server/ratelimit"
)

// Context keys and header names used by the auth middleware.
const (
	headerAPIKey     = "X-API-Key"
	headerUsername   = "X-Username"
	headerAdminToken = "X-Admin-Token"

	ctxAccount     = "account"
	ctxAdminHandle = "admin_handle"
)

// sessionAuth authenticates requests with a session key (or legacy API key)
// and stores the resolved account in the gin context.
func (h *Handler) sessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(headerAPIKey)
		if token == "" {
			abortWithError(c, common.ErrorUnauthorized)
			return
		}

		account, err := h.users.VerifyCredential(c.Request.Context(), c.GetHeader(headerUsername), token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(ctxAccount, account)
		c.Next()
	}
}

// accountFrom retrieves the account placed by sessionAuth.
func accountFrom(c *gin.Context) (*models.Account, bool) {
	v, ok := c.Get(ctxAccount)
	if !ok {
		return nil, false
	}
	account, ok := v.(*models.Account)
	return account, ok
}

// adminAuth authenticates requests bearing an admin token.
func (h *Handler) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, err := h.admin.VerifyToken(c.GetHeader(headerAdminToken))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(ctxAdminHandle, handle)
		c.Next()
	}
}

// rateLimit rejects callers that exceed the limiter's per-IP budget.
func rateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
