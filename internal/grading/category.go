package grading

import (
	"sort"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

// ApplyDropPolicy removes the lowest or highest scoring graded assignments.
// At least one assignment always survives, so a drop policy can never erase
// a category. The input slice is left untouched.
func ApplyDropPolicy(graded []models.Assignment, policy models.DropPolicy) []models.Assignment {
	if policy.Count <= 0 {
		return graded
	}

	var descending bool
	switch policy.Type {
	case models.DropLowest:
	case models.DropHighest:
		descending = true
	default:
		return graded
	}

	count := policy.Count
	if count >= len(graded) {
		count = len(graded) - 1
		if count <= 0 {
			return graded
		}
	}

	sorted := make([]models.Assignment, len(graded))
	copy(sorted, graded)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Ratio() > sorted[j].Ratio()
		}
		return sorted[i].Ratio() < sorted[j].Ratio()
	})

	return sorted[count:]
}

// CalculateCategoryGrade aggregates one category. Drops apply to graded work
// only; missing work always counts its max score as possible points, while
// excused and ungraded work counts toward neither side.
func CalculateCategoryGrade(assignments []models.Assignment, policy models.DropPolicy) CategoryResult {
	var (
		graded []models.Assignment
		result CategoryResult
	)

	for _, assignment := range assignments {
		switch assignment.Status {
		case models.StatusGraded:
			if assignment.ScoreEarned != nil {
				graded = append(graded, assignment)
			}
		case models.StatusMissing:
			result.MissingCount++
			if assignment.MaxScore != nil {
				result.Possible += *assignment.MaxScore
			}
		case models.StatusExcused:
			result.ExcusedCount++
		case models.StatusUngraded:
			result.UngradedCount++
		}
	}

	kept := ApplyDropPolicy(graded, policy)
	result.GradedCount = len(graded)
	result.DroppedCount = len(graded) - len(kept)

	for _, assignment := range kept {
		result.Earned += *assignment.ScoreEarned
		if assignment.MaxScore != nil {
			result.Possible += *assignment.MaxScore
		}
	}

	if result.Possible > 0 {
		percentage := result.Earned / result.Possible * 100
		result.Percentage = &percentage
	}

	return result
}
