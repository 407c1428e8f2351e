package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grade-predictor-api/internal/config"
	"github.com/noah-isme/grade-predictor-api/internal/handler"
	"github.com/noah-isme/grade-predictor-api/internal/middleware"
	"github.com/noah-isme/grade-predictor-api/internal/observability"
	"github.com/noah-isme/grade-predictor-api/internal/utils"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeHandler  *handler.GradeHandler
	UploadHandler *handler.UploadHandler
	// HealthChecks are probed by the health endpoint, keyed by name.
	HealthChecks map[string]handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(api)
	}

	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(api, middleware.RateLimit("upload", cfg.UploadRateLimit, time.Minute))
	}

	app.Use(func(c *fiber.Ctx) error {
		return utils.SendErrorWithCode(c, fiber.StatusNotFound, utils.CodeNotFound, "Route not found", nil)
	})
}

// ErrorHandler renders errors that escape a handler with the API envelope.
// Body limit violations surface here before any handler runs.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			switch fiberErr.Code {
			case fiber.StatusRequestEntityTooLarge:
				observability.UploadRejected().WithLabelValues("too_large").Inc()
				return utils.SendErrorWithCode(c, fiberErr.Code, utils.CodeFileTooLarge, "File exceeds maximum allowed size", nil)
			case fiber.StatusNotFound:
				return utils.SendErrorWithCode(c, fiberErr.Code, utils.CodeNotFound, fiberErr.Message, nil)
			case fiber.StatusMethodNotAllowed:
				return utils.SendErrorWithCode(c, fiberErr.Code, "", fiberErr.Message, nil)
			}
			if fiberErr.Code < fiber.StatusInternalServerError {
				return utils.SendErrorWithCode(c, fiberErr.Code, utils.CodeInvalidBody, fiberErr.Message, nil)
			}
		}

		logger.Error().Err(err).Str("path", c.Path()).Str("correlation_id", middleware.GetCorrelationID(c)).Msg("unhandled error")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeServerError, "Internal server error", nil)
	}
}
