package http

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type challengeRequest struct {
	Handle string `json:"handle" binding:"required"`
}

type challengeResponse struct {
	Challenge string    `json:"challenge"`
	ExpiresAt time.Time `json:"expires_at"`
}

type challengeVerifyRequest struct {
	Handle    string `json:"handle" binding:"required"`
	Challenge string `json:"challenge" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type adminTokenResponse struct {
	Handle string `json:"handle"`
	Token  string `json:"token"`
}

type adminInfoResponse struct {
	Handle    string   `json:"handle"`
	Operators []string `json:"operators"`
}

func (h *Handler) adminChallenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "handle is required")
		return
	}

	challenge, expiresAt, err := h.admin.IssueChallenge(req.Handle)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, challengeResponse{Challenge: challenge, ExpiresAt: expiresAt})
}

func (h *Handler) adminVerify(c *gin.Context) {
	var req challengeVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "handle, challenge and signature are required")
		return
	}
	sig, ok := decodePayload(c, "signature", req.Signature)
	if !ok {
		return
	}

	token, err := h.admin.VerifyChallenge(c.Request.Context(), req.Handle, req.Challenge, sig)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, adminTokenResponse{Handle: req.Handle, Token: token})
}

func (h *Handler) adminInfo(c *gin.Context) {
	handles := h.admin.Handles()
	sort.Strings(handles)
	c.JSON(http.StatusOK, adminInfoResponse{
		Handle:    c.GetString(ctxAdminHandle),
		Operators: handles,
	})
}
