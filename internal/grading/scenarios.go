package grading

import (
	"sort"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

// HistoricalAverage is the plain average percentage of every graded
// assignment across all categories, ignoring category weights. ok is false
// when nothing has been graded.
func HistoricalAverage(grades models.GradesByCategory) (average float64, ok bool) {
	names := make([]string, 0, len(grades))
	for name := range grades {
		names = append(names, name)
	}
	sort.Strings(names)

	var total float64
	var count int
	for _, name := range names {
		for _, assignment := range grades[name] {
			if assignment.Status != models.StatusGraded || assignment.ScoreEarned == nil {
				continue
			}
			if assignment.MaxScore == nil || *assignment.MaxScore == 0 {
				continue
			}
			total += *assignment.ScoreEarned / *assignment.MaxScore * 100
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

// Scenarios projects the grade with 100%, 0% and the student's current pace
// on every remaining assignment.
func (e Engine) Scenarios(policy models.GradingPolicy, grades models.GradesByCategory, remaining []models.Assignment) ScenariosResult {
	if remaining == nil {
		remaining = RemainingAssignments(policy, grades)
	}

	pace, ok := HistoricalAverage(grades)
	if !ok {
		pace = e.cfg.DefaultPaceAverage
	}
	// extra credit can push the average past 100; the pace stays between the
	// worst and best case
	pace = clamp(pace, 0, 100)

	scenario := func(score, reported float64) Scenario {
		outcome := e.simulate(policy, grades, remaining, score)
		return Scenario{
			Percentage:       outcome.OverallPercentage,
			Letter:           outcome.LetterGrade,
			ScoreOnRemaining: reported,
		}
	}

	return ScenariosResult{
		BestCase:       scenario(100, 100),
		WorstCase:      scenario(0, 0),
		CurrentPace:    scenario(pace, *round(pace, 1)),
		RemainingCount: len(remaining),
	}
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
