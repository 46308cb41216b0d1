package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"visamate/types"
)

// ErrorHandler turns classified pipeline faults into HTTP responses. The
// status is chosen by switching on the fault kind; error text from deep
// inside a collaborator never leaks to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiErr, ok := err.(Error); ok {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	if valErr, ok := err.(ValidationError); ok {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var fault *types.Fault
	if errors.As(err, &fault) {
		status := statusFor(fault.Kind)
		slog.Error("request failed", "kind", fault.Kind.String(), "status", status, "error", err)
		return c.Status(status).JSON(NewError(status, fault.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	slog.Error("request failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).
		JSON(NewError(fiber.StatusInternalServerError, "internal server error"))
}

func statusFor(kind types.Kind) int {
	switch kind {
	case types.KindInvalidInput, types.KindExtractionFailure, types.KindNoContent:
		return fiber.StatusBadRequest
	case types.KindEmbeddingQuota, types.KindCompletionQuota:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrMissingFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "no file provided",
	}
}
