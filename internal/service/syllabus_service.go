package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/grade-predictor-api/internal/extraction"
	"github.com/noah-isme/grade-predictor-api/internal/models"
	"github.com/noah-isme/grade-predictor-api/pkg/ai"
)

// weightTolerance is how far the category weights may drift from 100 before
// the policy carries a warning.
const weightTolerance = 2.0

// SyllabusService turns a syllabus document into a grading policy.
type SyllabusService interface {
	Parse(ctx context.Context, filename string, payload []byte) (models.GradingPolicy, error)
}

type syllabusService struct {
	pipeline documentPipeline
}

// NewSyllabusService constructs the syllabus parser. cache may be nil.
func NewSyllabusService(completer ai.Completer, cache *redis.Client, cfg ExtractionConfig, logger zerolog.Logger) SyllabusService {
	tracer := otel.Tracer("github.com/noah-isme/grade-predictor-api/internal/service/syllabus")
	return &syllabusService{
		pipeline: newDocumentPipeline("syllabus", completer, cache, cfg, logger, tracer),
	}
}

func (s *syllabusService) Parse(ctx context.Context, filename string, payload []byte) (models.GradingPolicy, error) {
	p := s.pipeline
	ctx, span := p.tracer.Start(ctx, "syllabus.parse")
	defer span.End()
	span.SetAttributes(attribute.String("document.name", filename), attribute.Int("document.bytes", len(payload)))

	cacheKey := "syllabus:v1:" + documentHash(payload)
	var cached models.GradingPolicy
	if p.readCache(ctx, cacheKey, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		p.succeed(span)
		return cached, nil
	}

	text, err := p.extractText(span, filename, payload, extraction.TypePDF, extraction.TypeTXT)
	if err != nil {
		return models.GradingPolicy{}, err
	}

	value, raw, err := p.complete(ctx, span, renderPrompt(syllabusPrompt, map[string]string{"document": text}))
	if err != nil {
		return models.GradingPolicy{}, err
	}

	var generic interface{}
	if err := json.Unmarshal(value, &generic); err != nil {
		return models.GradingPolicy{}, &ParseFailure{Document: p.kind, Reason: err.Error(), Raw: raw}
	}
	if err := p.validate(span, generic, raw); err != nil {
		return models.GradingPolicy{}, err
	}

	var policy models.GradingPolicy
	if err := json.Unmarshal(value, &policy); err != nil {
		failure := &ParseFailure{Document: p.kind, Reason: err.Error(), Raw: raw}
		p.fail(span, "parse_failure", failure)
		return models.GradingPolicy{}, failure
	}

	policy = s.normalize(policy)
	span.SetAttributes(
		attribute.Int("policy.categories", len(policy.Categories)),
		attribute.Float64("policy.total_weight", *policy.TotalWeight),
	)
	if policy.WeightWarning != "" {
		p.logger.Info().Float64("total_weight", *policy.TotalWeight).Msg("extracted weights do not sum to 100")
	}

	p.writeCache(ctx, cacheKey, policy)
	p.succeed(span)
	return policy, nil
}

// normalize cleans model strings and fills the defaults a usable policy needs.
func (s *syllabusService) normalize(policy models.GradingPolicy) models.GradingPolicy {
	p := s.pipeline
	policy.CourseName = p.clean(policy.CourseName)

	categories := make([]models.Category, 0, len(policy.Categories))
	for _, category := range policy.Categories {
		category.Name = p.clean(category.Name)
		if category.Name == "" {
			p.logger.Debug().Msg("skipping unnamed category")
			continue
		}
		dropPolicy := normalizeDropPolicy(category.DropPolicy)
		category.DropPolicy = &dropPolicy
		categories = append(categories, category)
	}
	policy.Categories = categories

	total := 0.0
	for _, category := range categories {
		total += category.Weight
	}
	rounded := math.Round(total*10) / 10
	policy.TotalWeight = &rounded
	policy.WeightWarning = ""
	if math.Abs(total-100) > weightTolerance {
		policy.WeightWarning = fmt.Sprintf("Category weights sum to %.1f%%, not 100%%. Please review and adjust the policy.", total)
	}

	if len(policy.GradeScale) == 0 {
		policy.GradeScale = models.DefaultGradeScale.Clone()
	}
	return policy
}

// normalizeDropPolicy maps loose drop descriptions onto the known types.
func normalizeDropPolicy(policy *models.DropPolicy) models.DropPolicy {
	if policy == nil || policy.Count <= 0 {
		return models.NoDrop()
	}
	kind := strings.ToLower(policy.Type)
	switch {
	case strings.Contains(kind, "lowest"):
		return models.DropPolicy{Type: models.DropLowest, Count: policy.Count}
	case strings.Contains(kind, "highest"):
		return models.DropPolicy{Type: models.DropHighest, Count: policy.Count}
	default:
		return models.NoDrop()
	}
}
