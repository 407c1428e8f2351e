package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/grade-predictor-api/internal/dto"
	"github.com/noah-isme/grade-predictor-api/internal/grading"
	"github.com/noah-isme/grade-predictor-api/internal/models"
	"github.com/noah-isme/grade-predictor-api/internal/observability"
)

const defaultTargetGrade = "A"

var (
	// ErrMissingData indicates the policy or the grades were not supplied.
	ErrMissingData = errors.New("grading_policy and grades_by_category are required")
	// ErrCalculation indicates the engine could not produce a result.
	ErrCalculation = errors.New("grade calculation failed")
)

// GradeService exposes the grade engine to the request layer.
type GradeService interface {
	Calculate(ctx context.Context, req dto.CalculateRequest) (dto.CalculateResponse, error)
	WhatIf(ctx context.Context, req dto.WhatIfRequest) (dto.WhatIfResponse, error)
	NeededScores(ctx context.Context, req dto.NeededScoresRequest) (dto.NeededScoresResponse, error)
	Scenarios(ctx context.Context, req dto.ScenariosRequest) (dto.ScenariosResponse, error)
}

type gradeService struct {
	engine    grading.Engine
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewGradeService constructs the grade service around an engine.
func NewGradeService(engine grading.Engine, validate *validator.Validate, logger zerolog.Logger) GradeService {
	if validate == nil {
		validate = validator.New()
	}
	return &gradeService{
		engine:    engine,
		validator: validate,
		logger:    logger.With().Str("component", "grade_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/grade-predictor-api/internal/service/grade"),
	}
}

func (s *gradeService) Calculate(ctx context.Context, req dto.CalculateRequest) (dto.CalculateResponse, error) {
	var response dto.CalculateResponse
	err := s.run(ctx, "calculate", req, func(span trace.Span) {
		policy := *req.GradingPolicy
		response = dto.CalculateResponse{
			OverallResult: s.engine.Calculate(policy, req.GradesByCategory),
			Scenarios:     s.engine.Scenarios(policy, req.GradesByCategory, nil),
			Warnings:      unknownCategoryWarnings(policy, req.GradesByCategory),
		}
		span.SetAttributes(attribute.String("grade.letter", response.LetterGrade))
	})
	return response, err
}

func (s *gradeService) WhatIf(ctx context.Context, req dto.WhatIfRequest) (dto.WhatIfResponse, error) {
	var response dto.WhatIfResponse
	err := s.run(ctx, "what_if", req.CalculateRequest, func(span trace.Span) {
		policy := *req.GradingPolicy
		warnings := unknownCategoryWarnings(policy, req.GradesByCategory)
		warnings = append(warnings, hypotheticalWarnings(policy, req.HypotheticalScores)...)
		response = dto.WhatIfResponse{
			OverallResult: s.engine.WhatIf(policy, req.GradesByCategory, req.HypotheticalScores),
			Warnings:      warnings,
		}
		span.SetAttributes(
			attribute.Int("grade.hypotheticals", len(req.HypotheticalScores)),
			attribute.String("grade.letter", response.LetterGrade),
		)
	})
	return response, err
}

func (s *gradeService) NeededScores(ctx context.Context, req dto.NeededScoresRequest) (dto.NeededScoresResponse, error) {
	var response dto.NeededScoresResponse
	err := s.run(ctx, "needed_scores", req.CalculateRequest, func(span trace.Span) {
		policy := *req.GradingPolicy
		target := strings.TrimSpace(req.TargetGrade)
		if target == "" {
			target = defaultTargetGrade
		}

		warnings := unknownCategoryWarnings(policy, req.GradesByCategory)
		remaining, remainingWarnings := resolveRemaining(policy, req.RemainingAssignments)
		warnings = append(warnings, remainingWarnings...)
		if !scaleHasLetter(policy.Scale(), target) {
			warnings = append(warnings, fmt.Sprintf("target grade %q is not in the grade scale; a %.0f%% target was used", target, grading.TargetPercentage(target, policy.Scale())))
		}

		response = dto.NeededScoresResponse{
			NeededScoresResult: s.engine.NeededScores(policy, req.GradesByCategory, target, remaining),
			Warnings:           warnings,
		}
		span.SetAttributes(
			attribute.String("grade.target", target),
			attribute.Bool("grade.achievable", response.IsAchievable),
		)
	})
	return response, err
}

func (s *gradeService) Scenarios(ctx context.Context, req dto.ScenariosRequest) (dto.ScenariosResponse, error) {
	var response dto.ScenariosResponse
	err := s.run(ctx, "scenarios", req, func(span trace.Span) {
		policy := *req.GradingPolicy
		response = dto.ScenariosResponse{
			ScenariosResult: s.engine.Scenarios(policy, req.GradesByCategory, nil),
			Warnings:        unknownCategoryWarnings(policy, req.GradesByCategory),
		}
		span.SetAttributes(attribute.Int("grade.remaining", response.RemainingCount))
	})
	return response, err
}

// run validates the request, then executes fn inside a span with metrics.
// A panic inside the engine is reported as ErrCalculation.
func (s *gradeService) run(ctx context.Context, operation string, req dto.CalculateRequest, fn func(span trace.Span)) (err error) {
	_, span := s.tracer.Start(ctx, "grade."+operation)
	defer span.End()

	start := time.Now()
	defer func() {
		observability.GradeOperationLatency().WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	if err := s.validate(req); err != nil {
		observability.GradeOperations().WithLabelValues(operation, "invalid").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return err
	}
	span.SetAttributes(
		attribute.Int("grade.categories", len(req.GradingPolicy.Categories)),
		attribute.Int("grade.graded_categories", len(req.GradesByCategory)),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrCalculation, recovered)
			observability.GradeOperations().WithLabelValues(operation, "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "calculation failed")
			s.logger.Error().Str("operation", operation).Interface("panic", recovered).Msg("grade calculation failed")
		}
	}()

	fn(span)

	observability.GradeOperations().WithLabelValues(operation, "ok").Inc()
	span.SetStatus(codes.Ok, "calculated")
	s.logger.Debug().Str("operation", operation).Dur("elapsed", time.Since(start)).Msg("grade operation completed")
	return nil
}

func (s *gradeService) validate(req dto.CalculateRequest) error {
	if req.GradingPolicy == nil || req.GradesByCategory == nil {
		return ErrMissingData
	}
	return s.validator.Struct(req)
}

// unknownCategoryWarnings lists grade categories the policy does not define.
// The engine ignores them, which usually means a naming mismatch.
func unknownCategoryWarnings(policy models.GradingPolicy, grades models.GradesByCategory) []string {
	known := make(map[string]struct{}, len(policy.Categories))
	for _, category := range policy.Categories {
		known[category.Name] = struct{}{}
	}

	var unknown []string
	for name, assignments := range grades {
		if _, ok := known[name]; ok || len(assignments) == 0 {
			continue
		}
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)

	warnings := make([]string, 0, len(unknown))
	for _, name := range unknown {
		warnings = append(warnings, fmt.Sprintf("category %q is not in the grading policy and was not counted", name))
	}
	return warnings
}

func hypotheticalWarnings(policy models.GradingPolicy, hypothetical models.HypotheticalScores) []string {
	known := make(map[string]struct{}, len(policy.Categories))
	for _, category := range policy.Categories {
		known[category.Name] = struct{}{}
	}

	names := make([]string, 0, len(hypothetical))
	for name := range hypothetical {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []string
	for _, name := range names {
		entry := hypothetical[name]
		switch {
		case entry.Category == "" || entry.ScoreEarned == nil:
			warnings = append(warnings, fmt.Sprintf("hypothetical %q needs a category and a score and was skipped", name))
		default:
			if _, ok := known[entry.Category]; !ok {
				warnings = append(warnings, fmt.Sprintf("hypothetical %q targets category %q which is not in the grading policy", name, entry.Category))
			}
		}
	}
	return warnings
}

// resolveRemaining maps caller supplied remaining assignments onto policy
// categories with the category matcher. Entries that match no category could
// never move the simulated grade, so they are left out with a warning. A nil
// list stays nil so the engine derives the remaining work itself.
func resolveRemaining(policy models.GradingPolicy, remaining []models.Assignment) ([]models.Assignment, []string) {
	if remaining == nil {
		return nil, nil
	}

	matcher := NewCategoryMatcher(policy.Categories)
	resolved := make([]models.Assignment, 0, len(remaining))
	var warnings []string
	for _, assignment := range remaining {
		category, rule := matcher.Match(assignment.Category)
		if rule == MatchNone {
			if strings.TrimSpace(assignment.Category) == "" {
				warnings = append(warnings, fmt.Sprintf("remaining assignment %q has no category and was skipped", assignment.Name))
			} else {
				warnings = append(warnings, fmt.Sprintf("remaining assignment %q targets category %q which is not in the grading policy and was skipped", assignment.Name, assignment.Category))
			}
			continue
		}
		assignment.Category = category
		resolved = append(resolved, assignment)
	}
	return resolved, warnings
}

func scaleHasLetter(scale models.GradeScale, letter string) bool {
	for candidate := range scale {
		if strings.EqualFold(candidate, letter) {
			return true
		}
	}
	return false
}
