package dto

import (
	"github.com/noah-isme/grade-predictor-api/internal/grading"
	"github.com/noah-isme/grade-predictor-api/internal/models"
)

// CalculateRequest carries a policy and the recorded grades.
type CalculateRequest struct {
	GradingPolicy    *models.GradingPolicy   `json:"grading_policy" validate:"required"`
	GradesByCategory models.GradesByCategory `json:"grades_by_category" validate:"required"`
}

// ScenariosRequest uses the same payload as CalculateRequest.
type ScenariosRequest = CalculateRequest

// WhatIfRequest adds hypothetical scores keyed by assignment name.
type WhatIfRequest struct {
	CalculateRequest
	HypotheticalScores models.HypotheticalScores `json:"hypothetical_scores"`
}

// NeededScoresRequest asks what is required on the remaining work. When
// RemainingAssignments is omitted it is derived from the policy item counts;
// an explicit empty list means nothing remains.
type NeededScoresRequest struct {
	CalculateRequest
	TargetGrade          string              `json:"target_grade"`
	RemainingAssignments []models.Assignment `json:"remaining_assignments"`
}

// CalculateResponse is the current grade plus the three scenarios.
type CalculateResponse struct {
	grading.OverallResult
	Scenarios grading.ScenariosResult `json:"scenarios"`
	Warnings  []string                `json:"warnings,omitempty"`
}

// WhatIfResponse is the projected grade with hypotheticals applied.
type WhatIfResponse struct {
	grading.OverallResult
	Warnings []string `json:"warnings,omitempty"`
}

// NeededScoresResponse wraps the solver answer.
type NeededScoresResponse struct {
	grading.NeededScoresResult
	Warnings []string `json:"warnings,omitempty"`
}

// ScenariosResponse wraps the scenario projections.
type ScenariosResponse struct {
	grading.ScenariosResult
	Warnings []string `json:"warnings,omitempty"`
}

// GradesImportResponse is the result of parsing a grade export.
type GradesImportResponse struct {
	Grades           []models.Assignment     `json:"grades"`
	GradesByCategory models.GradesByCategory `json:"grades_by_category"`
	// CategoryMatches records which matching rule placed each grade category.
	CategoryMatches map[string]string `json:"category_matches,omitempty"`
}
