package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"imgmeta/internal/domain"
	"imgmeta/internal/middleware"
)

// ErrorResponse is the envelope for every error response.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeInvalidBody = "INVALID_BODY"
	CodeNotFound    = "NOT_FOUND"
	CodeStore       = "STORE_ERROR"
	CodeInternal    = "INTERNAL_ERROR"
)

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, ErrorResponse{Error: APIError{Code: code, Message: msg}})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Validation messages are safe to echo; 5xx messages are generic.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, "image not found"
	case errors.Is(err, domain.ErrStore):
		return http.StatusInternalServerError, CodeStore, "storage backend failure"
	default:
		return http.StatusInternalServerError, CodeInternal, "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("internal error")
	}
	RespondError(c, status, code, msg)
}
