package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/session"
)

// errorHandler maps domain errors to transport statuses. Cursor conflicts
// carry both cursors so the client can realign its buffer without another
// round trip.
func errorHandler(c *fiber.Ctx, err error) error {
	var conflict *repository.CursorConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":    "cursor_conflict",
			"expected": conflict.Expected,
			"actual":   conflict.Actual,
		})
	}
	var invalid *session.InvalidSegmentError
	if errors.As(err, &invalid) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "invalid_segment",
			"index":   invalid.Index,
			"message": invalid.Reason,
		})
	}

	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return respond(c, fiber.StatusNotFound, "session_not_found", err)
	case errors.Is(err, repository.ErrSessionCompleted):
		return respond(c, fiber.StatusConflict, "session_completed", err)
	case errors.Is(err, session.ErrAccessDenied):
		return respond(c, fiber.StatusForbidden, "access_denied", err)
	case errors.Is(err, session.ErrInvalidConfig):
		return respond(c, fiber.StatusUnprocessableEntity, "invalid_config", err)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":   "request_failed",
			"message": fiberErr.Message,
		})
	}

	slog.Error("request failed", "error", err, "path", c.Path())
	return respond(c, fiber.StatusInternalServerError, "internal_error", errors.New("internal error"))
}

func respond(c *fiber.Ctx, status int, code string, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": err.Error(),
	})
}
