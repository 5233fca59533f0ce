package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// NewQuotaExceededError signals that a plan limit blocks the requested action.
func NewQuotaExceededError(message string) *AppError {
	return &AppError{
		Code:    "QUOTA_EXCEEDED",
		Message: message,
	}
}

// NewProviderError wraps a non-2xx or malformed response from an external API.
func NewProviderError(message string, err error) *AppError {
	return &AppError{
		Code:    "PROVIDER_ERROR",
		Message: message,
		Err:     err,
	}
}

// NewConfigError signals a missing credential or configuration value. The
// message must tell the user how to fix it, not just that something failed.
func NewConfigError(message string) *AppError {
	return &AppError{
		Code:    "CONFIG_ERROR",
		Message: message,
	}
}

// NewPaymentVerificationError signals a webhook that failed signature, amount,
// currency, or receiver checks. Never applied; always logged.
func NewPaymentVerificationError(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_VERIFICATION_FAILED",
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// StatusForError maps an AppError code to the HTTP status the request
// boundary should answer with. Unknown errors map to 500.
func StatusForError(err error) int {
	appErr, ok := err.(*AppError)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case "QUOTA_EXCEEDED":
		return fiber.StatusForbidden
	case "PROVIDER_ERROR":
		return fiber.StatusBadGateway
	case "CONFIG_ERROR":
		return fiber.StatusPreconditionFailed
	case "PAYMENT_VERIFICATION_FAILED":
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
