package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, unavailable, internal_error
	Message   string `json:"message"` // human-readable
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errInvalidField returns a 400 error naming the offending field.
func errInvalidField(c *fiber.Ctx, field, msg string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(400).JSON(APIError{
		Status:    400,
		Code:      "bad_request",
		Message:   msg,
		Field:     field,
		RequestID: reqID,
	})
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error. The cause is logged, not echoed.
func errInternal(c *fiber.Ctx, err error) error {
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return newError(c, 500, "internal_error", "internal server error")
}

// errFromDomain maps service errors onto HTTP responses.
func errFromDomain(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	var ie *domain.InvalidInputError
	switch {
	case errors.As(err, &ve):
		return errInvalidField(c, ve.Field, ve.Error())
	case errors.As(err, &ie):
		return errInvalidField(c, ie.Field, ie.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrNoZones):
		return newError(c, 503, "unavailable", err.Error())
	default:
		return errInternal(c, err)
	}
}
