package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	LogLevel string
	RedisURL string

	ExtractionCacheTTL time.Duration
	MaxTextChars       int
	MaxUploadMB        int
	UploadRateLimit    int

	LLMBaseURL    string
	LLMModel      string
	LLMAPIKey     string
	LLMTimeout    time.Duration
	LLMRetries    int
	LLMRetryDelay time.Duration
	LLMWarmup     bool

	DefaultPaceAverage float64
	SolverIterations   int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// MaxUploadBytes returns the upload limit in bytes.
func (c Config) MaxUploadBytes() int {
	return c.MaxUploadMB * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEPRED")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Grade Predictor API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("extraction.cache_ttl", "24h")
	v.SetDefault("extraction.max_text_chars", 12000)
	v.SetDefault("upload.max_mb", 16)
	v.SetDefault("upload.rate_limit", 10)
	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.timeout", "300s")
	v.SetDefault("llm.retries", 2)
	v.SetDefault("llm.retry_delay", "5s")
	v.SetDefault("llm.warmup", true)
	v.SetDefault("grading.default_pace_average", 75.0)
	v.SetDefault("grading.solver_iterations", 50)

	cacheTTL, err := parseDuration(v, "extraction.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	llmTimeout, err := parseDuration(v, "llm.timeout")
	if err != nil {
		return Config{}, err
	}
	retryDelay, err := parseDuration(v, "llm.retry_delay")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		LogLevel:           strings.ToLower(v.GetString("log.level")),
		RedisURL:           v.GetString("redis.url"),
		ExtractionCacheTTL: cacheTTL,
		MaxTextChars:       v.GetInt("extraction.max_text_chars"),
		MaxUploadMB:        v.GetInt("upload.max_mb"),
		UploadRateLimit:    v.GetInt("upload.rate_limit"),
		LLMBaseURL:         v.GetString("llm.base_url"),
		LLMModel:           v.GetString("llm.model"),
		LLMAPIKey:          v.GetString("llm.api_key"),
		LLMTimeout:         llmTimeout,
		LLMRetries:         v.GetInt("llm.retries"),
		LLMRetryDelay:      retryDelay,
		LLMWarmup:          v.GetBool("llm.warmup"),
		DefaultPaceAverage: v.GetFloat64("grading.default_pace_average"),
		SolverIterations:   v.GetInt("grading.solver_iterations"),
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 16
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = 12000
	}
	if cfg.LLMRetries <= 0 {
		cfg.LLMRetries = 1
	}
	if cfg.DefaultPaceAverage < 0 || cfg.DefaultPaceAverage > 100 {
		return Config{}, fmt.Errorf("grading.default_pace_average must be within 0-100, got %v", cfg.DefaultPaceAverage)
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return duration, nil
}
