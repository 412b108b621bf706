package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/paygate/internal/services"
)

// errorStatuses maps service errors to responses. An empty message echoes the
// error text; upstream failures get a fixed one.
var errorStatuses = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrUserIDMissing, fiber.StatusBadRequest, ""},
	{services.ErrInvalidPayment, fiber.StatusBadRequest, ""},
	{services.ErrUserAlreadyExists, fiber.StatusConflict, ""},
	{services.ErrUserNotFound, fiber.StatusNotFound, ""},
	{services.ErrInvalidPayKey, fiber.StatusUnauthorized, ""},
	{services.ErrGateway, fiber.StatusBadGateway, "payment gateway unavailable"},
}

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": "..."} with the matching status code.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.message != "" {
				return e.status, e.message
			}
			return e.status, err.Error()
		}
	}

	return fiber.StatusInternalServerError, "internal server error"
}
