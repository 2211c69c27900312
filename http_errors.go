package users

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respond(ctx router.Context, status int, message string, data any) error {
	return ctx.JSON(status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// JSONErrorHandler is the single translator from domain errors to HTTP
// responses. Handlers return errors; nothing else formats an error body.
func JSONErrorHandler(logger Logger) router.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(ctx router.Context, err error) error {
		// Payload validation failures carry per-field messages.
		var verr validation.Errors
		if errors.As(err, &verr) {
			return ctx.JSON(router.StatusBadRequest, APIResponse{
				Success: false,
				Message: "Request validation failed",
				Errors:  verr,
			})
		}

		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			logger.Error("Unhandled error", "error", err)
			return ctx.JSON(router.StatusInternalServerError, APIResponse{
				Success: false,
				Message: "An unexpected server error occurred",
			})
		}

		status := statusFromError(richErr)
		if status >= router.StatusInternalServerError {
			// Never leak internals on 5xx; the log line keeps the details.
			logger.Error("Internal error",
				"error", richErr.Message,
				"category", richErr.Category,
				"text_code", richErr.TextCode,
			)
			return ctx.JSON(status, APIResponse{
				Success: false,
				Message: "An unexpected server error occurred",
			})
		}

		return ctx.JSON(status, APIResponse{
			Success: false,
			Message: richErr.Message,
		})
	}
}

func statusFromError(err *errors.Error) int {
	if err.Code != 0 {
		return err.Code
	}

	switch err.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return router.StatusBadRequest
	case errors.CategoryAuth:
		return router.StatusUnauthorized
	case errors.CategoryAuthz:
		return router.StatusForbidden
	case errors.CategoryNotFound:
		return errors.CodeNotFound
	case errors.CategoryConflict:
		return errors.CodeConflict
	default:
		return router.StatusInternalServerError
	}
}
