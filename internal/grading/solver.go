package grading

import (
	"fmt"
	"strings"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

// RemainingAssignments synthesizes placeholders for work that the policy
// declares but that has not been graded or marked missing yet. Categories
// without a declared item count have an unknown future workload and yield no
// placeholders.
func RemainingAssignments(policy models.GradingPolicy, grades models.GradesByCategory) []models.Assignment {
	remaining := make([]models.Assignment, 0)
	for _, category := range policy.Categories {
		if category.NumItems == nil {
			continue
		}

		accounted := 0
		for _, assignment := range grades[category.Name] {
			if assignment.Status == models.StatusGraded || assignment.Status == models.StatusMissing {
				accounted++
			}
		}

		for i := 0; i < *category.NumItems-accounted; i++ {
			remaining = append(remaining, models.Assignment{
				Name:     fmt.Sprintf("%s (remaining %d)", category.Name, i+1),
				Category: category.Name,
				MaxScore: models.Float(100),
				Status:   models.StatusUngraded,
			})
		}
	}
	return remaining
}

// TargetPercentage resolves a letter on the scale, case-insensitively. An
// unknown letter resolves to 90.
func TargetPercentage(letter string, scale models.GradeScale) float64 {
	letter = strings.TrimSpace(letter)
	if min, ok := scale[strings.ToUpper(letter)]; ok {
		return min
	}
	for candidate, min := range scale {
		if strings.EqualFold(candidate, letter) {
			return min
		}
	}
	return defaultTargetPercent
}

// NeededScores finds the uniform score on every remaining assignment that
// reaches the target letter. A nil remaining slice is derived from the
// policy; an empty one means nothing is left to score.
//
// The search bisects simulate(p), the overall percentage with all remaining
// work scored at p percent, and assumes simulate is non-decreasing in p.
// That holds because drop policies rank by the recorded ratios and the one
// uniform hypothetical ratio, so raising p never lowers a category
// percentage, and the set of categories in the weighted sum does not change
// with p since placeholders are gradable at every p.
func (e Engine) NeededScores(policy models.GradingPolicy, grades models.GradesByCategory, targetLetter string, remaining []models.Assignment) NeededScoresResult {
	scale := policy.Scale()
	target := TargetPercentage(targetLetter, scale)
	if remaining == nil {
		remaining = RemainingAssignments(policy, grades)
	}

	current := e.Calculate(policy, grades)
	result := NeededScoresResult{
		TargetLetter:         strings.ToUpper(strings.TrimSpace(targetLetter)),
		TargetPercentage:     target,
		CurrentPercentage:    current.OverallPercentage,
		PerCategoryNeeded:    map[string]CategoryNeed{},
		RemainingAssignments: remaining,
	}

	if len(remaining) == 0 {
		result.IsAchievable = current.rawPercentage() >= target
		return result
	}

	best := e.simulate(policy, grades, remaining, 100).rawPercentage()
	worst := e.simulate(policy, grades, remaining, 0).rawPercentage()
	result.BestPossible = round(best, 2)
	result.WorstPossible = round(worst, 2)

	if best < target {
		return result
	}

	lo, hi := 0.0, 100.0
	for i := 0; i < e.cfg.SolverIterations; i++ {
		mid := (lo + hi) / 2
		if e.simulate(policy, grades, remaining, mid).rawPercentage() >= target {
			hi = mid
		} else {
			lo = mid
		}
	}

	required := round(hi, 1)
	result.RequiredAverage = required
	result.IsAchievable = true

	for _, category := range policy.Categories {
		count := 0
		for _, assignment := range remaining {
			if assignment.Category == category.Name {
				count++
			}
		}
		if count > 0 {
			result.PerCategoryNeeded[category.Name] = CategoryNeed{
				RemainingCount:    count,
				RequiredScoreEach: *required,
			}
		}
	}

	return result
}
