package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ddtft/internal/domain"
	"ddtft/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrExtractionTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "EXTRACTION_TIMEOUT", "extraction did not finish in time"
	case errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest, "EMPTY_INPUT", "input text is empty"
	case errors.Is(err, domain.ErrUnsupportedDocumentFormat):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_DOCUMENT_FORMAT", "document type cannot be determined"
	case errors.Is(err, domain.ErrLayoutAmbiguous):
		return http.StatusUnprocessableEntity, "LAYOUT_AMBIGUOUS", "document layout is ambiguous"
	case errors.Is(err, domain.ErrPatternNotFound):
		return http.StatusUnprocessableEntity, "PATTERN_NOT_FOUND", "a required field could not be located"
	case errors.Is(err, domain.ErrExtractionNotFound):
		return http.StatusNotFound, "EXTRACTION_NOT_FOUND", "extraction not found"
	case errors.Is(err, domain.ErrSourceNotArchived):
		return http.StatusNotFound, "SOURCE_NOT_ARCHIVED", "source document was not archived"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, txt"
	case errors.Is(err, domain.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge, "SOURCE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrInvalidExportFormat):
		return http.StatusBadRequest, "INVALID_EXPORT_FORMAT", "invalid export format; allowed: csv, xlsx"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// errorHandler sends mapped error responses and logs the internal ones.
type errorHandler struct {
	log zerolog.Logger
}

// HandleError maps a domain error and sends the appropriate error response.
func (h errorHandler) HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get(middleware.ContextKeyRequestID)
		h.log.Error().Err(err).Interface("request_id", requestID).Str("path", c.Request.URL.Path).Msg("handler: internal error")
	}
	RespondError(c, status, code, msg)
}
