// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const exposeErrorsKey = "expose_errors"

// Envelope is the body of every API response.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     any    `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ExposeErrors marks requests whose error envelopes may carry the internal
// error text. It is installed only in development.
func ExposeErrors() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(exposeErrorsKey, true)
		return c.Next()
	}
}

func exposing(c *fiber.Ctx) bool {
	v, _ := c.Locals(exposeErrorsKey).(bool)
	return v
}

func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Success writes a successful envelope.
func Success(c *fiber.Ctx, status int, message string, data any) error {
	return Write(c, status, true, message, data)
}

// Write writes an envelope carrying data with an arbitrary outcome.
func Write(c *fiber.Ctx, status int, success bool, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: now(),
	})
}

// Fail writes an error envelope. err is included only when errors are exposed.
func Fail(c *fiber.Ctx, status int, message string, err error) error {
	env := Envelope{
		Success:   false,
		Message:   message,
		Timestamp: now(),
	}
	if err != nil && exposing(c) {
		env.Error = err.Error()
	}
	return c.Status(status).JSON(env)
}

// ValidationFailed writes a 400 envelope. The per-field details are always
// included since they describe the caller's own input.
func ValidationFailed(c *fiber.Ctx, message string, details any) error {
	return c.Status(fiber.StatusBadRequest).JSON(Envelope{
		Success:   false,
		Message:   message,
		Error:     details,
		Timestamp: now(),
	})
}
