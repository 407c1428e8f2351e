package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gradepred",
		Subsystem: "llm",
		Name:      "completion_duration_seconds",
		Help:      "Duration of language model completion attempts",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"model"})

	llmFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gradepred",
		Subsystem: "llm",
		Name:      "completion_failures_total",
		Help:      "Number of failed language model completion attempts",
	}, []string{"model", "reason"})
)

const (
	defaultBaseURL = "http://localhost:11434/v1"
	defaultModel   = "llama3.2"
	warmupPrompt   = "Say OK"
)

// OpenAIConfig configures a completer for any OpenAI-compatible endpoint,
// including a local Ollama server.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Retries is the number of attempts made when an attempt times out.
	Retries    int
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// OpenAICompleter implements Completer against the chat completion API.
type OpenAICompleter struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAICompleter builds a completer, applying defaults for a local Ollama.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.APIKey == "" {
		// ollama ignores the key but the client always sends one
		cfg.APIKey = "ollama"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 2
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("llm base url must be http(s): %q", cfg.BaseURL)
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	config.HTTPClient = &http.Client{}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/grade-predictor-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "llm_client").Str("model", cfg.Model).Logger(),
	}, nil
}

// Model returns the configured model name.
func (c *OpenAICompleter) Model() string {
	return c.cfg.Model
}

// Complete sends the prompt, retrying attempts that time out.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, c.cfg.Retries)
}

// Warmup sends a tiny prompt so the model is loaded before the first real
// request. It makes a single attempt.
func (c *OpenAICompleter) Warmup(ctx context.Context) error {
	_, err := c.complete(ctx, warmupPrompt, 1)
	return err
}

// Ping checks the endpoint by listing its models. It never loads a model.
func (c *OpenAICompleter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if _, err := c.client.ListModels(ctx); err != nil {
		return classify(ctx, err)
	}
	return nil
}

func (c *OpenAICompleter) complete(parent context.Context, prompt string, attempts int) (string, error) {
	ctx, span := c.tracer.Start(parent, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	for attempt := 1; attempt <= attempts; attempt++ {
		span.SetAttributes(attribute.Int("llm.attempt", attempt))

		content, err := c.attempt(ctx, prompt)
		if err == nil {
			span.SetStatus(codes.Ok, "completed")
			return content, nil
		}

		if errors.Is(err, ErrTimeout) && attempt < attempts {
			c.logger.Warn().Int("attempt", attempt).Dur("timeout", c.cfg.Timeout).Msg("llm attempt timed out, retrying")
			select {
			case <-ctx.Done():
				err = ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
				continue
			}
		}

		if errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: no response after %s (%d attempts)", ErrTimeout, c.cfg.Timeout, attempts)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return "", fmt.Errorf("%w: no attempts made", ErrUnavailable)
}

func (c *OpenAICompleter) attempt(parent context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.Timeout)
	defer cancel()

	temperature := c.cfg.Temperature
	if temperature == 0 {
		// a zero temperature is dropped by omitempty and the server default applies
		temperature = math.SmallestNonzeroFloat32
	}

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	llmDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		if parent.Err() != nil {
			return "", parent.Err()
		}
		classified := classify(ctx, err)
		llmFailures.WithLabelValues(c.cfg.Model, failureReason(classified)).Inc()
		return "", classified
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		llmFailures.WithLabelValues(c.cfg.Model, "empty").Inc()
		return "", ErrEmptyResponse
	}

	c.logger.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm completion received")

	return resp.Choices[0].Message.Content, nil
}

// classify maps transport and API errors onto the package sentinels.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %v", ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}

	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "upstream"
	}
}
