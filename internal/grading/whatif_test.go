package grading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

func samplePolicy() models.GradingPolicy {
	return models.GradingPolicy{
		CourseName: "CS 101",
		Categories: []models.Category{
			{Name: "Homework", Weight: 40, DropPolicy: &models.DropPolicy{Type: models.DropLowest, Count: 1}},
			{Name: "Exams", Weight: 60},
		},
		GradeScale: models.GradeScale{"A": 93, "B": 83, "C": 73, "D": 63, "F": 0},
	}
}

func sampleGrades() models.GradesByCategory {
	return models.GradesByCategory{
		"Homework": {
			graded("HW1", 9, 10),
			graded("HW2", 6, 10),
			withStatus("HW3", models.StatusUngraded, 10),
		},
		"Exams": {
			graded("Midterm", 80, 100),
			withStatus("Final", models.StatusUngraded, 100),
		},
	}
}

func TestCalculateWhatIfEmptyMatchesCombiner(t *testing.T) {
	policy := samplePolicy()
	grades := sampleGrades()

	direct := CalculateWeightedGrade(policy.Categories, grades, policy.GradeScale)
	whatIf := CalculateWhatIf(policy, grades, models.HypotheticalScores{})

	require.Equal(t, direct, whatIf)
	require.Equal(t, direct, CalculateWhatIf(policy, grades, nil))
}

func TestCalculateWhatIfCompletesExistingAssignment(t *testing.T) {
	policy := samplePolicy()
	grades := sampleGrades()
	snapshot := grades.Clone()

	result := CalculateWhatIf(policy, grades, models.HypotheticalScores{
		"Final": {ScoreEarned: models.Float(100), Category: "Exams"},
	})

	// Exams: (80 + 100) / 200; Homework keeps 9/10 after dropping 6/10.
	require.InDelta(t, 90*0.4+90*0.6, *result.OverallPercentage, 1e-9)
	require.Equal(t, 0, result.PerCategory["Exams"].UngradedCount)
	require.Equal(t, 2, result.PerCategory["Exams"].GradedCount)

	require.Equal(t, snapshot, grades, "caller grades must not change")
	require.Equal(t, models.StatusUngraded, grades["Exams"][1].Status)
}

func TestCalculateWhatIfAppendsNewAssignment(t *testing.T) {
	policy := samplePolicy()
	grades := sampleGrades()

	result := CalculateWhatIf(policy, grades, models.HypotheticalScores{
		"Quiz 1": {ScoreEarned: models.Float(45), MaxScore: models.Float(50), Category: "Exams"},
		"HW4":    {ScoreEarned: models.Float(70), Category: "Homework"},
	})

	// Exams: 125/150. Homework: 9/10, 6/10, 70/100 with the 6/10 dropped -> 79/110.
	exams := 125.0 / 150 * 100
	homework := 79.0 / 110 * 100
	require.InDelta(t, homework*0.4+exams*0.6, *result.OverallPercentage, 0.005)
	require.Equal(t, 3, result.PerCategory["Exams"].GradedCount)
	require.Len(t, grades["Exams"], 2)
}

func TestCalculateWhatIfNewCategoryAndSkippedEntries(t *testing.T) {
	policy := samplePolicy()
	policy.Categories = append(policy.Categories, models.Category{Name: "Labs", Weight: 0})
	grades := sampleGrades()

	merged := MergeHypothetical(grades, models.HypotheticalScores{
		"Lab 1":     {ScoreEarned: models.Float(10), MaxScore: models.Float(10), Category: "Labs"},
		"No cat":    {ScoreEarned: models.Float(10)},
		"No score":  {Category: "Exams"},
		"Extra lab": {ScoreEarned: models.Float(5), Category: "Labs"},
	})

	require.Len(t, merged["Labs"], 2)
	require.Equal(t, "Extra lab", merged["Labs"][0].Name)
	require.InDelta(t, 100, *merged["Labs"][0].MaxScore, 1e-9)
	require.Len(t, merged["Exams"], 2)
	require.NotContains(t, grades, "Labs")
}

func TestMergeHypotheticalKeepsExistingMaxScore(t *testing.T) {
	grades := models.GradesByCategory{
		"Homework": {withStatus("HW3", models.StatusMissing, 20)},
	}

	merged := MergeHypothetical(grades, models.HypotheticalScores{
		"HW3": {ScoreEarned: models.Float(15), Category: "Homework"},
	})

	require.Equal(t, models.StatusGraded, merged["Homework"][0].Status)
	require.InDelta(t, 20, *merged["Homework"][0].MaxScore, 1e-9)
	require.Equal(t, models.StatusMissing, grades["Homework"][0].Status)
}

func TestCalculateWhatIfDefaultsScale(t *testing.T) {
	policy := samplePolicy()
	policy.GradeScale = nil

	result := CalculateWhatIf(policy, sampleGrades(), nil)

	require.Equal(t, models.DefaultGradeScale, result.GradeScale)
}

func TestCombinerUnchangedAfterWhatIf(t *testing.T) {
	policy := samplePolicy()
	grades := sampleGrades()

	before := CalculateWeightedGrade(policy.Categories, grades, policy.GradeScale)
	_ = CalculateWhatIf(policy, grades, models.HypotheticalScores{
		"HW3":   {ScoreEarned: models.Float(0), Category: "Homework"},
		"Final": {ScoreEarned: models.Float(0), Category: "Exams"},
	})
	after := CalculateWeightedGrade(policy.Categories, grades, policy.GradeScale)

	require.Equal(t, before, after)
}
