package log

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Setup redirects log output to stdout plus an optional file.
func Setup(logFile string) {
	if logFile == "" {
		return
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warn().Err(err).Str("file", logFile).Msg("could not open log file")
		return
	}
	logger = zerolog.New(io.MultiWriter(os.Stdout, f)).With().Timestamp().Logger()
}

func Info(action string, fields map[string]any) {
	logger.Info().Fields(fields).Str("action", action).Msg("")
}

func Warn(action string, fields map[string]any) {
	logger.Warn().Fields(fields).Str("action", action).Msg("")
}

func Error(action string, err error, fields map[string]any) {
	logger.Error().Err(err).Fields(fields).Str("action", action).Msg("")
}

// Request logs with the request id and path attached when a fiber
// context is in play.
func Request(c *fiber.Ctx, action string, fields map[string]any) {
	ev := logger.Info().Fields(fields).Str("action", action).
		Str("method", c.Method()).Str("path", c.Path())
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		ev = ev.Str("req_id", rid)
	}
	ev.Msg("")
}
