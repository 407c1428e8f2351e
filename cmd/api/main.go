package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/grade-predictor-api/internal/config"
	"github.com/noah-isme/grade-predictor-api/internal/database"
	"github.com/noah-isme/grade-predictor-api/internal/grading"
	"github.com/noah-isme/grade-predictor-api/internal/handler"
	"github.com/noah-isme/grade-predictor-api/internal/middleware"
	"github.com/noah-isme/grade-predictor-api/internal/router"
	"github.com/noah-isme/grade-predictor-api/internal/service"
	"github.com/noah-isme/grade-predictor-api/pkg/ai"
)

// multipart framing on top of the file itself
const bodySlack = 1024 * 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, extraction cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	completer, err := ai.NewOpenAICompleter(ai.OpenAIConfig{
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		Model:      cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
		Retries:    cfg.LLMRetries,
		RetryDelay: cfg.LLMRetryDelay,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}
	if cfg.LLMWarmup {
		go warmup(completer, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	engine := grading.NewEngine(grading.Config{
		DefaultPaceAverage: cfg.DefaultPaceAverage,
		SolverIterations:   cfg.SolverIterations,
	})
	extractionCfg := service.ExtractionConfig{
		MaxTextChars: cfg.MaxTextChars,
		CacheTTL:     cfg.ExtractionCacheTTL,
	}

	gradeService := service.NewGradeService(engine, validate, logger)
	syllabusService := service.NewSyllabusService(completer, redisClient, extractionCfg, logger)
	gradesService := service.NewGradesService(completer, redisClient, extractionCfg, logger)

	checks := map[string]handler.Pinger{"llm": completer}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxUploadBytes() + bodySlack,
		ErrorHandler: router.ErrorHandler(logger),
		// LLM extraction can outlast fiber's default timeouts
		ReadTimeout:  time.Minute,
		WriteTimeout: cfg.LLMTimeout*time.Duration(cfg.LLMRetries) + time.Minute,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		GradeHandler:  handler.NewGradeHandler(gradeService, logger),
		UploadHandler: handler.NewUploadHandler(syllabusService, gradesService, cfg.MaxUploadBytes(), logger),
		HealthChecks:  checks,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("model", completer.Model()).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func warmup(completer *ai.OpenAICompleter, logger zerolog.Logger) {
	start := time.Now()
	if err := completer.Warmup(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("llm warmup failed, first upload may be slow")
		return
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("llm warmed up")
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
