package grading

import "github.com/noah-isme/grade-predictor-api/internal/models"

// NotAvailable is reported instead of a letter when no percentage exists yet.
const NotAvailable = "N/A"

// CategoryResult is the aggregate of one category after drops.
type CategoryResult struct {
	Earned               float64  `json:"earned"`
	Possible             float64  `json:"possible"`
	Percentage           *float64 `json:"percentage"`
	GradedCount          int      `json:"graded_count"`
	DroppedCount         int      `json:"dropped_count"`
	MissingCount         int      `json:"missing_count"`
	UngradedCount        int      `json:"ungraded_count"`
	ExcusedCount         int      `json:"excused_count"`
	Weight               float64  `json:"weight"`
	WeightedContribution *float64 `json:"weighted_contribution"`
}

// OverallResult is the weighted combination of every category.
type OverallResult struct {
	OverallPercentage      *float64                  `json:"overall_percentage"`
	LetterGrade            string                    `json:"letter_grade"`
	PerCategory            map[string]CategoryResult `json:"per_category"`
	PointsBufferBeforeDrop *float64                  `json:"points_buffer_before_drop"`
	GradeScale             models.GradeScale         `json:"grade_scale"`
	TotalWeightCounted     float64                   `json:"total_weight_counted"`

	// unrounded overall, used by the solver
	raw *float64
}

// rawPercentage returns the unrounded overall percentage, or 0 when absent.
func (r OverallResult) rawPercentage() float64 {
	if r.raw == nil {
		return 0
	}
	return *r.raw
}

// CategoryNeed is the per-category breakdown of a needed-score answer.
type CategoryNeed struct {
	RemainingCount    int     `json:"remaining_count"`
	RequiredScoreEach float64 `json:"required_score_each"`
}

// NeededScoresResult answers "what do I need on the rest to reach a letter".
type NeededScoresResult struct {
	TargetLetter         string                  `json:"target_letter"`
	TargetPercentage     float64                 `json:"target_percentage"`
	RequiredAverage      *float64                `json:"required_average"`
	IsAchievable         bool                    `json:"is_achievable"`
	CurrentPercentage    *float64                `json:"current_percentage"`
	BestPossible         *float64                `json:"best_possible,omitempty"`
	WorstPossible        *float64                `json:"worst_possible,omitempty"`
	PerCategoryNeeded    map[string]CategoryNeed `json:"per_category_needed"`
	RemainingAssignments []models.Assignment     `json:"remaining_assignments"`
}

// Scenario is one projected outcome.
type Scenario struct {
	Percentage       *float64 `json:"percentage"`
	Letter           string   `json:"letter"`
	ScoreOnRemaining float64  `json:"score_on_remaining"`
}

// ScenariosResult groups the best, worst and current-pace projections.
type ScenariosResult struct {
	BestCase       Scenario `json:"best_case"`
	WorstCase      Scenario `json:"worst_case"`
	CurrentPace    Scenario `json:"current_pace"`
	RemainingCount int      `json:"remaining_count"`
}
