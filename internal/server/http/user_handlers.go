package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gpgvault/internal/common"
)

type credentialsRequest struct {
	Handle   string `json:"handle" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Handle      string    `json:"handle"`
	SessionKey  string    `json:"session_key"`
	WindowIndex int64     `json:"window_index"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type profileResponse struct {
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
	PublicKey string    `json:"public_key"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "handle and password are required")
		return
	}

	account, session, err := h.users.Register(c.Request.Context(), req.Handle, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{
		Handle:      account.Handle,
		SessionKey:  session.Key,
		WindowIndex: session.WindowIndex,
		ExpiresAt:   session.ExpiresAt,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "handle and password are required")
		return
	}

	account, session, err := h.users.Login(c.Request.Context(), req.Handle, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		Handle:      account.Handle,
		SessionKey:  session.Key,
		WindowIndex: session.WindowIndex,
		ExpiresAt:   session.ExpiresAt,
	})
}

func (h *Handler) profile(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortWithError(c, common.ErrorInternal)
		return
	}

	publicKey, err := h.gpg.PublicKey(c.Request.Context(), account)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		Handle:    account.Handle,
		CreatedAt: account.CreatedAt,
		PublicKey: publicKey,
	})
}
