package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/grade-predictor-api/internal/dto"
	"github.com/noah-isme/grade-predictor-api/internal/extraction"
	"github.com/noah-isme/grade-predictor-api/internal/models"
	"github.com/noah-isme/grade-predictor-api/pkg/ai"
)

// wrapperKeys are checked first when the model wraps the list in an object.
var wrapperKeys = []string{"grades", "assignments"}

// GradesService turns a gradebook export into categorized assignments.
type GradesService interface {
	Parse(ctx context.Context, filename string, payload []byte, policy models.GradingPolicy) (dto.GradesImportResponse, error)
}

type gradesService struct {
	pipeline documentPipeline
}

// NewGradesService constructs the grades parser. cache may be nil.
func NewGradesService(completer ai.Completer, cache *redis.Client, cfg ExtractionConfig, logger zerolog.Logger) GradesService {
	tracer := otel.Tracer("github.com/noah-isme/grade-predictor-api/internal/service/grades")
	return &gradesService{
		pipeline: newDocumentPipeline("grades", completer, cache, cfg, logger, tracer),
	}
}

func (s *gradesService) Parse(ctx context.Context, filename string, payload []byte, policy models.GradingPolicy) (dto.GradesImportResponse, error) {
	p := s.pipeline
	ctx, span := p.tracer.Start(ctx, "grades.parse")
	defer span.End()
	span.SetAttributes(attribute.String("document.name", filename), attribute.Int("document.bytes", len(payload)))

	names := policy.CategoryNames()
	matcher := NewCategoryMatcher(policy.Categories)

	// the category list shapes the prompt, so it is part of the key
	cacheKey := "grades:v1:" + documentHash(payload, []byte(strings.Join(names, "\x1f")))
	var cached []models.Assignment
	if p.readCache(ctx, cacheKey, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		p.succeed(span)
		return buildImport(matcher, cached), nil
	}

	text, err := p.extractText(span, filename, payload, extraction.TypePDF, extraction.TypeXLSX, extraction.TypeCSV)
	if err != nil {
		return dto.GradesImportResponse{}, err
	}

	known := "unknown"
	if len(names) > 0 {
		known = strings.Join(names, ", ")
	}
	prompt := renderPrompt(gradesPrompt, map[string]string{"document": text, "categories": known})

	value, raw, err := p.complete(ctx, span, prompt)
	if err != nil {
		return dto.GradesImportResponse{}, err
	}

	entries, ok := unwrapGradeList(value)
	if !ok {
		failure := &ParseFailure{Document: p.kind, Reason: "expected a list of grades", Raw: raw}
		p.fail(span, "parse_failure", failure)
		return dto.GradesImportResponse{}, failure
	}
	if err := p.validate(span, entries, raw); err != nil {
		return dto.GradesImportResponse{}, err
	}

	encoded, err := json.Marshal(entries)
	if err != nil {
		return dto.GradesImportResponse{}, err
	}
	var grades []models.Assignment
	if err := json.Unmarshal(encoded, &grades); err != nil {
		failure := &ParseFailure{Document: p.kind, Reason: err.Error(), Raw: raw}
		p.fail(span, "parse_failure", failure)
		return dto.GradesImportResponse{}, failure
	}

	grades = s.normalize(grades)
	span.SetAttributes(attribute.Int("grades.count", len(grades)))

	p.writeCache(ctx, cacheKey, grades)
	p.succeed(span)
	return buildImport(matcher, grades), nil
}

// normalize cleans model strings and repairs statuses the engine cannot use.
func (s *gradesService) normalize(grades []models.Assignment) []models.Assignment {
	p := s.pipeline
	normalized := make([]models.Assignment, 0, len(grades))
	for _, grade := range grades {
		grade.Name = p.clean(grade.Name)
		grade.Category = p.clean(grade.Category)
		if grade.SubmissionDate != nil {
			date := p.clean(*grade.SubmissionDate)
			grade.SubmissionDate = &date
			if date == "" {
				grade.SubmissionDate = nil
			}
		}

		switch grade.Status {
		case models.StatusGraded, models.StatusMissing, models.StatusExcused, models.StatusUngraded:
		default:
			grade.Status = models.StatusUngraded
			if grade.ScoreEarned != nil {
				grade.Status = models.StatusGraded
			}
		}
		normalized = append(normalized, grade)
	}
	return normalized
}

func buildImport(matcher *CategoryMatcher, grades []models.Assignment) dto.GradesImportResponse {
	grouped, rules := matcher.Group(grades)
	if grades == nil {
		grades = []models.Assignment{}
	}
	return dto.GradesImportResponse{
		Grades:           grades,
		GradesByCategory: grouped,
		CategoryMatches:  rules,
	}
}

// unwrapGradeList accepts a list, or an object holding the list under a
// well-known key or, failing that, as the first list-valued entry by key order.
func unwrapGradeList(value json.RawMessage) ([]interface{}, bool) {
	var decoded interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return nil, false
	}

	switch typed := decoded.(type) {
	case []interface{}:
		return typed, true
	case map[string]interface{}:
		for _, key := range wrapperKeys {
			if list, ok := typed[key].([]interface{}); ok {
				return list, true
			}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if list, ok := typed[key].([]interface{}); ok {
				return list, true
			}
		}
	}
	return nil, false
}
