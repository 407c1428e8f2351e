package grading

import (
	"sort"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

// MergeHypothetical overlays hypothetical scores onto a deep copy of grades.
// A hypothetical whose name matches an existing assignment in its category
// completes that assignment; any other hypothetical is appended as graded
// work. Entries without a category or a score are ignored.
func MergeHypothetical(grades models.GradesByCategory, hypothetical models.HypotheticalScores) models.GradesByCategory {
	merged := grades.Clone()

	names := make([]string, 0, len(hypothetical))
	for name := range hypothetical {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := hypothetical[name]
		if entry.Category == "" || entry.ScoreEarned == nil {
			continue
		}

		assignments := merged[entry.Category]
		found := false
		for i := range assignments {
			if assignments[i].Name != name {
				continue
			}
			existing := &assignments[i]
			existing.ScoreEarned = models.Float(*entry.ScoreEarned)
			switch {
			case entry.MaxScore != nil:
				existing.MaxScore = models.Float(*entry.MaxScore)
			case existing.MaxScore == nil:
				existing.MaxScore = models.Float(100)
			}
			existing.Status = models.StatusGraded
			found = true
			break
		}

		if !found {
			maxScore := 100.0
			if entry.MaxScore != nil {
				maxScore = *entry.MaxScore
			}
			assignments = append(assignments, models.Assignment{
				Name:        name,
				Category:    entry.Category,
				ScoreEarned: models.Float(*entry.ScoreEarned),
				MaxScore:    models.Float(maxScore),
				Status:      models.StatusGraded,
			})
		}
		merged[entry.Category] = assignments
	}

	return merged
}

// CalculateWhatIf recalculates the overall grade with hypothetical scores
// merged in. The caller's grades are never modified.
func CalculateWhatIf(policy models.GradingPolicy, grades models.GradesByCategory, hypothetical models.HypotheticalScores) OverallResult {
	merged := MergeHypothetical(grades, hypothetical)
	return CalculateWeightedGrade(policy.Categories, merged, policy.Scale())
}
