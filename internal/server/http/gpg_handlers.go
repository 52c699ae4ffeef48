package http

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gpgvault/internal/common"
)

// Binary payloads cross the wire base64-encoded inside JSON.

type signRequest struct {
	Data string `json:"data" binding:"required"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

type verifyRequest struct {
	Data      string `json:"data" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

type cipherRequest struct {
	Data string `json:"data" binding:"required"`
}

type cipherResponse struct {
	Data string `json:"data"`
}

func decodePayload(c *gin.Context, field, value string) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		abortBadRequest(c, field+" must be base64-encoded")
		return nil, false
	}
	return raw, true
}

func (h *Handler) sign(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortWithError(c, common.ErrorInternal)
		return
	}

	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "data is required")
		return
	}
	data, ok := decodePayload(c, "data", req.Data)
	if !ok {
		return
	}

	sig, err := h.gpg.Sign(c.Request.Context(), account, data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, signResponse{Signature: base64.StdEncoding.EncodeToString(sig)})
}

func (h *Handler) verify(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortWithError(c, common.ErrorInternal)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "data and signature are required")
		return
	}
	data, ok := decodePayload(c, "data", req.Data)
	if !ok {
		return
	}
	sig, ok := decodePayload(c, "signature", req.Signature)
	if !ok {
		return
	}

	valid, err := h.gpg.VerifySignature(c.Request.Context(), account, data, sig)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, verifyResponse{Valid: valid})
}

func (h *Handler) encrypt(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortWithError(c, common.ErrorInternal)
		return
	}

	var req cipherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "data is required")
		return
	}
	data, ok := decodePayload(c, "data", req.Data)
	if !ok {
		return
	}

	ct, err := h.gpg.Encrypt(c.Request.Context(), account, data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cipherResponse{Data: base64.StdEncoding.EncodeToString(ct)})
}

func (h *Handler) decrypt(c *gin.Context) {
	account, ok := accountFrom(c)
	if !ok {
		abortWithError(c, common.ErrorInternal)
		return
	}

	var req cipherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "data is required")
		return
	}
	data, ok := decodePayload(c, "data", req.Data)
	if !ok {
		return
	}

	pt, err := h.gpg.Decrypt(c.Request.Context(), account, data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cipherResponse{Data: base64.StdEncoding.EncodeToString(pt)})
}
