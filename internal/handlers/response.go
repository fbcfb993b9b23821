package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"dailyscrum/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error to its status and writes the error envelope.
func respondError(c *fiber.Ctx, err error, message string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error(message, "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		slog.Debug(message, "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// respond writes the success envelope {message, status, <key>: payload}.
func respond(c *fiber.Ctx, status int, message, key string, payload any) error {
	body := fiber.Map{
		"message": message,
		"status":  status,
	}
	if key != "" {
		body[key] = payload
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, err error) error {
	return respondError(c, fmt.Errorf("%v: %w", err, services.ErrValidation), "Invalid request body")
}

// validateRequest runs v on req and writes the per-field error map on failure.
// It returns false when a response has already been written.
func validateRequest(c *fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	err := v.Struct(req)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, badRequest(c, err)
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"error":   services.ErrValidation.Error(),
		"errors":  errorMessages,
	})
}
