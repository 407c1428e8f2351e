// Package grading turns a grading policy and recorded scores into overall
// grades, what-if projections, needed-score answers and scenarios.
//
// Every function in this package is pure: inputs are never mutated and no
// state survives between calls, so an Engine can be shared freely between
// goroutines.
package grading

import "github.com/noah-isme/grade-predictor-api/internal/models"

const (
	defaultPaceAverage     = 75.0
	defaultSolverIteration = 50
	defaultTargetPercent   = 90.0
)

// Config holds the policy knobs of the engine.
type Config struct {
	// DefaultPaceAverage is applied to remaining work by the current-pace
	// scenario when nothing has been graded yet.
	DefaultPaceAverage float64
	// SolverIterations is the number of bisection steps of the needed-score
	// solver. 50 steps on [0,100] resolve far below 0.1 points.
	SolverIterations int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPaceAverage: defaultPaceAverage,
		SolverIterations:   defaultSolverIteration,
	}
}

// Engine exposes the four grade calculations.
type Engine struct {
	cfg Config
}

// NewEngine builds an engine. A pace default outside [0,100] and a
// non-positive iteration count fall back to the defaults; a pace of 0 is
// kept. Start from DefaultConfig to change a single knob.
func NewEngine(cfg Config) Engine {
	if cfg.DefaultPaceAverage < 0 || cfg.DefaultPaceAverage > 100 {
		cfg.DefaultPaceAverage = defaultPaceAverage
	}
	if cfg.SolverIterations <= 0 {
		cfg.SolverIterations = defaultSolverIteration
	}
	return Engine{cfg: cfg}
}

// Config returns the effective engine configuration.
func (e Engine) Config() Config {
	return e.cfg
}

// Calculate computes the current overall grade for the policy.
func (e Engine) Calculate(policy models.GradingPolicy, grades models.GradesByCategory) OverallResult {
	return CalculateWeightedGrade(policy.Categories, grades, policy.Scale())
}

// WhatIf computes the overall grade with hypothetical scores merged in.
func (e Engine) WhatIf(policy models.GradingPolicy, grades models.GradesByCategory, hypothetical models.HypotheticalScores) OverallResult {
	return CalculateWhatIf(policy, grades, hypothetical)
}

// simulate scores every remaining assignment at score percent of its max.
func (e Engine) simulate(policy models.GradingPolicy, grades models.GradesByCategory, remaining []models.Assignment, score float64) OverallResult {
	hypothetical := make(models.HypotheticalScores, len(remaining))
	for _, assignment := range remaining {
		maxScore := 100.0
		if assignment.MaxScore != nil {
			maxScore = *assignment.MaxScore
		}
		hypothetical[assignment.Name] = models.Hypothetical{
			ScoreEarned: models.Float(score / 100 * maxScore),
			MaxScore:    models.Float(maxScore),
			Category:    assignment.Category,
		}
	}
	return CalculateWhatIf(policy, grades, hypothetical)
}
