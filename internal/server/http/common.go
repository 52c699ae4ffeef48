// Package http exposes the REST surface: identity, GPG operations, and admin
// challenge-response auth on a gin router.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gpgvault/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// abortWithError maps service errors to HTTP statuses. Validation messages
// describe the caller's own input and pass through; everything else is
// replaced with a generic message so internals and account existence never
// leak.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "authentication failed"})
	case errors.Is(err, common.ErrorAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.Is(err, common.ErrorNoKeyMaterial), errors.Is(err, common.ErrorNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
