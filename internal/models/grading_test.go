package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssignmentUnmarshalIsLenient(t *testing.T) {
	payload := `[
		{"assignment_name": "HW1", "score_earned": "8.5", "max_score": 10, "status": "Graded"},
		{"assignment_name": "HW2", "score_earned": "n/a", "max_score": "ten"},
		{"assignment_name": "HW3", "score_earned": 7, "max_score": null},
		{"assignment_name": "HW4", "score_earned": null, "max_score": 10, "status": "missing"}
	]`

	var assignments []Assignment
	require.NoError(t, json.Unmarshal([]byte(payload), &assignments))
	require.Len(t, assignments, 4)

	require.InDelta(t, 8.5, *assignments[0].ScoreEarned, 1e-9)
	require.Equal(t, StatusGraded, assignments[0].Status)

	require.Nil(t, assignments[1].ScoreEarned)
	require.Nil(t, assignments[1].MaxScore)
	require.Equal(t, StatusUngraded, assignments[1].Status)

	require.Equal(t, StatusGraded, assignments[2].Status)
	require.Nil(t, assignments[2].MaxScore)

	require.Equal(t, StatusMissing, assignments[3].Status)
}

func TestCategoryUnmarshalAcceptsPercentStrings(t *testing.T) {
	payload := `{"name": " Homework ", "weight": "20%", "num_items": "10", "drop_policy": {"type": "DROP_LOWEST", "count": "2"}}`

	var category Category
	require.NoError(t, json.Unmarshal([]byte(payload), &category))

	require.Equal(t, "Homework", category.Name)
	require.InDelta(t, 20, category.Weight, 1e-9)
	require.Equal(t, 10, *category.NumItems)
	require.Equal(t, DropPolicy{Type: DropLowest, Count: 2}, category.EffectiveDropPolicy())
}

func TestCategoryWithoutDropPolicy(t *testing.T) {
	var category Category
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Exams", "weight": 60, "num_items": null}`), &category))

	require.Nil(t, category.NumItems)
	require.Equal(t, NoDrop(), category.EffectiveDropPolicy())
}

func TestGradesCloneSharesNothing(t *testing.T) {
	grades := GradesByCategory{"Homework": {{Name: "HW1", ScoreEarned: Float(5), MaxScore: Float(10), Status: StatusGraded}}}

	clone := grades.Clone()
	*clone["Homework"][0].ScoreEarned = 9
	clone["Homework"][0].Status = StatusExcused
	clone["Homework"] = append(clone["Homework"], Assignment{Name: "HW2"})

	require.InDelta(t, 5, *grades["Homework"][0].ScoreEarned, 1e-9)
	require.Equal(t, StatusGraded, grades["Homework"][0].Status)
	require.Len(t, grades["Homework"], 1)
}

func TestPolicyScaleDefault(t *testing.T) {
	require.Equal(t, DefaultGradeScale, GradingPolicy{}.Scale())

	custom := GradeScale{"P": 50, "F": 0}
	require.Equal(t, custom, GradingPolicy{GradeScale: custom}.Scale())
}

func TestLenientFloatRejectsNonFinite(t *testing.T) {
	require.Nil(t, LenientFloat(json.RawMessage(`"NaN"`)))
	require.Nil(t, LenientFloat(json.RawMessage(`"Inf"`)))
	require.Nil(t, LenientFloat(json.RawMessage(`true`)))
	require.Nil(t, LenientFloat(nil))
	require.InDelta(t, 12.5, *LenientFloat(json.RawMessage(`" 12.5 "`)), 1e-9)
}

func TestGradeScaleUnmarshalIsLenient(t *testing.T) {
	var policy GradingPolicy
	payload := `{"categories": [], "grade_scale": {"A": "93", " B ": 83.5, "C": "70%", "D": "n/a"}}`
	require.NoError(t, json.Unmarshal([]byte(payload), &policy))

	require.Equal(t, GradeScale{"A": 93, "B": 83.5, "C": 70}, policy.GradeScale)

	var empty GradingPolicy
	require.NoError(t, json.Unmarshal([]byte(`{"grade_scale": null}`), &empty))
	require.Nil(t, empty.GradeScale)
	require.Equal(t, DefaultGradeScale, empty.Scale())
}
