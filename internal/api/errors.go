package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereceipt/label-engine/internal/generator"
	"github.com/thereceipt/label-engine/internal/renderer"
)

// APIError is the body of every failed request
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message, cause)
}

// NewNoDataError reports a render without records
func NewNoDataError() *APIError {
	return newError(http.StatusBadRequest, "NO_DATA", generator.ErrNoData.Error(), nil)
}

// NewInvalidLayoutError reports a layout that failed to parse or validate
func NewInvalidLayoutError(cause error) *APIError {
	return newError(http.StatusBadRequest, "INVALID_LAYOUT", "layout is invalid", cause)
}

// NewPrinterUnavailableError reports a failed delivery
func NewPrinterUnavailableError(target string, cause error) *APIError {
	return newError(http.StatusBadGateway, "PRINTER_UNAVAILABLE", fmt.Sprintf("could not deliver to %s", target), cause)
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", message, cause)
}

func newError(status int, code, message string, cause error) *APIError {
	err := &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// renderError maps generator failures to API errors
func renderError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, generator.ErrNoData):
		return NewNoDataError()
	case errors.Is(err, generator.ErrInvalidLayout):
		return NewInvalidLayoutError(err)
	case errors.Is(err, renderer.ErrInvalidDPI):
		return NewBadRequestError("invalid render options", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(http.StatusServiceUnavailable, "INTERNAL_ERROR", "render was interrupted", err)
	default:
		return NewInternalError("failed to render labels", err)
	}
}

func respondError(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.Status, err)
}
