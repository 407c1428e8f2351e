package service

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/grade-predictor-api/internal/extraction"
	"github.com/noah-isme/grade-predictor-api/internal/observability"
	"github.com/noah-isme/grade-predictor-api/pkg/ai"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// ParseFailure reports model output that could not be turned into the
// expected structure. Raw carries the model response for the caller.
type ParseFailure struct {
	Document string
	Reason   string
	Raw      string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("could not parse %s from model output: %s", e.Document, e.Reason)
}

// ExtractionConfig tunes the document extraction services.
type ExtractionConfig struct {
	MaxTextChars int
	CacheTTL     time.Duration
}

// documentPipeline holds what the syllabus and grades services share:
// text extraction, the model call, schema checks and the result cache.
type documentPipeline struct {
	kind      string
	completer ai.Completer
	extractor extraction.Extractor
	schema    *jsonschema.Schema
	cache     *redis.Client
	ttl       time.Duration
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

func newDocumentPipeline(kind string, completer ai.Completer, cache *redis.Client, cfg ExtractionConfig, logger zerolog.Logger, tracer trace.Tracer) documentPipeline {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return documentPipeline{
		kind:      kind,
		completer: completer,
		extractor: extraction.NewExtractor(cfg.MaxTextChars),
		schema:    mustCompileSchema(kind + ".schema.json"),
		cache:     cache,
		ttl:       cfg.CacheTTL,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", kind+"_service").Logger(),
		tracer:    tracer,
	}
}

func mustCompileSchema(name string) *jsonschema.Schema {
	source, err := schemaFiles.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("schema %s missing: %v", name, err))
	}
	return jsonschema.MustCompileString("mem://schemas/"+name, string(source))
}

// extractText resolves the document type and returns its text.
func (p documentPipeline) extractText(span trace.Span, filename string, payload []byte, allowed ...extraction.DocumentType) (string, error) {
	docType, err := extraction.DetectType(filename, payload, allowed...)
	if err != nil {
		p.fail(span, "unsupported", err)
		return "", err
	}
	span.SetAttributes(attribute.String("document.type", string(docType)))

	text, err := p.extractor.Extract(docType, payload)
	if err != nil {
		p.fail(span, "unreadable", err)
		return "", err
	}
	span.SetAttributes(attribute.Int("document.text_chars", len(text)))
	return text, nil
}

// complete calls the model and recovers a JSON value from its answer.
func (p documentPipeline) complete(ctx context.Context, span trace.Span, prompt string) (json.RawMessage, string, error) {
	raw, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, ai.ErrEmptyResponse) {
			failure := &ParseFailure{Document: p.kind, Reason: "empty model response"}
			p.fail(span, "parse_failure", failure)
			return nil, "", failure
		}
		p.fail(span, "llm_error", err)
		return nil, "", fmt.Errorf("%s extraction: %w", p.kind, err)
	}

	value, err := ai.ExtractJSON(raw)
	if err != nil {
		failure := &ParseFailure{Document: p.kind, Reason: err.Error(), Raw: raw}
		p.fail(span, "parse_failure", failure)
		return nil, raw, failure
	}
	return value, raw, nil
}

// validate checks a decoded JSON value against the pipeline schema.
func (p documentPipeline) validate(span trace.Span, value interface{}, raw string) error {
	if err := p.schema.Validate(value); err != nil {
		failure := &ParseFailure{Document: p.kind, Reason: "unexpected structure: " + err.Error(), Raw: raw}
		p.fail(span, "parse_failure", failure)
		return failure
	}
	return nil
}

// clean strips markup from a model-provided string.
func (p documentPipeline) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(p.sanitizer.Sanitize(value)))
}

func (p documentPipeline) readCache(ctx context.Context, key string, target interface{}) bool {
	if p.cache == nil {
		return false
	}
	cached, err := p.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn().Err(err).Msg("extraction cache read failed")
		}
		observability.ExtractionCache().WithLabelValues(p.kind, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(cached, target); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		observability.ExtractionCache().WithLabelValues(p.kind, "miss").Inc()
		return false
	}
	observability.ExtractionCache().WithLabelValues(p.kind, "hit").Inc()
	return true
}

func (p documentPipeline) writeCache(ctx context.Context, key string, value interface{}) {
	if p.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, payload, p.ttl).Err(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to cache extraction result")
	}
}

func (p documentPipeline) succeed(span trace.Span) {
	observability.Extractions().WithLabelValues(p.kind, "ok").Inc()
	span.SetStatus(codes.Ok, "extracted")
}

func (p documentPipeline) fail(span trace.Span, outcome string, err error) {
	observability.Extractions().WithLabelValues(p.kind, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
}

func documentHash(parts ...[]byte) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write(part)
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
