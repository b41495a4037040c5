package middleware

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"reposearch/internal/logging"
)

// Logger is a middleware that logs each HTTP request as one JSON line.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
func Logger(log *slog.Logger) fiber.Handler {
	log = log.With("component", "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}

		log.Log(c.UserContext(), level, "http_request",
			"request_id", rid,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", float64(time.Since(start).Microseconds())/1000,
		)
		return err
	}
}

// LoggerWithWriter logs to w with timestamps rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.New(w, loc))
}
