package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:   errorStr,
		Message: message,
		Code:    code,
	}
}

// HandleError logs the error and writes the JSON error envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	fields := []logger.Field{
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		GetLogger().Error("API error", fields...)
	} else {
		GetLogger().Debug("API error", fields...)
	}

	return ctx.JSON(code, NewErrorResponse(err, message, code))
}

// handleDomainError maps an error category to its HTTP status.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryState):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the request body and writes a 400 on failure. The returned
// bool is false when a response has already been written.
func (c *Controller) bind(ctx echo.Context, dst any) (bool, error) {
	if err := ctx.Bind(dst); err != nil {
		return false, c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	return true, nil
}
