package handlers

import (
	"errors"
	"log"

	"feedstream/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the single boundary translator: every error a
// handler, middleware, or service returns ends up here and is mapped
// to a status code and a uniform {message, data?} body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = fiber.StatusUnprocessableEntity
		case errors.Is(err, apperror.ErrUnauthorized):
			status = fiber.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = fiber.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = fiber.StatusNotFound
		}

		body := fiber.Map{"message": appErr.Message}
		if appErr.Data != nil {
			body["data"] = appErr.Data
		}
		return c.Status(status).JSON(body)
	}

	// Fiber's own errors (404 route misses, 426 upgrade required, ...)
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
		})
	}

	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}
