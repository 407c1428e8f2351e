package grading

import (
	"math"
	"sort"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

type threshold struct {
	letter string
	min    float64
}

// sortedThresholds orders a scale from the highest minimum to the lowest.
// Equal minimums are ordered by letter so the result is deterministic.
func sortedThresholds(scale models.GradeScale) []threshold {
	if len(scale) == 0 {
		scale = models.DefaultGradeScale
	}
	thresholds := make([]threshold, 0, len(scale))
	for letter, min := range scale {
		thresholds = append(thresholds, threshold{letter: letter, min: min})
	}
	sort.Slice(thresholds, func(i, j int) bool {
		if thresholds[i].min != thresholds[j].min {
			return thresholds[i].min > thresholds[j].min
		}
		return thresholds[i].letter < thresholds[j].letter
	})
	return thresholds
}

// LetterGrade maps a percentage onto the scale. Percentages below every
// threshold get the lowest-ranked letter; a nil percentage gets NotAvailable.
func LetterGrade(percentage *float64, scale models.GradeScale) string {
	if percentage == nil {
		return NotAvailable
	}
	thresholds := sortedThresholds(scale)
	for _, t := range thresholds {
		if *percentage >= t.min {
			return t.letter
		}
	}
	return thresholds[len(thresholds)-1].letter
}

// pointsBuffer is the distance to the highest threshold strictly below the
// percentage, i.e. how much can be lost before dropping a letter.
func pointsBuffer(percentage *float64, scale models.GradeScale) *float64 {
	if percentage == nil {
		return nil
	}
	for _, t := range sortedThresholds(scale) {
		if t.min < *percentage {
			buffer := *percentage - t.min
			return &buffer
		}
	}
	return nil
}

// CalculateWeightedGrade combines every category of the policy into one
// percentage. Categories without gradable work are left out of both the
// weighted sum and the weight total, so a partially graded course is scored
// as if the graded categories made up the whole course.
func CalculateWeightedGrade(categories []models.Category, grades models.GradesByCategory, scale models.GradeScale) OverallResult {
	if len(scale) == 0 {
		scale = models.DefaultGradeScale
	}

	perCategory := make(map[string]CategoryResult, len(categories))
	var weightedSum, totalWeight float64

	for _, category := range categories {
		fraction := category.Weight / 100
		result := CalculateCategoryGrade(grades[category.Name], category.EffectiveDropPolicy())
		result.Weight = category.Weight

		if result.Percentage != nil {
			contribution := *result.Percentage * fraction
			weightedSum += contribution
			totalWeight += fraction
			result.Percentage = round(*result.Percentage, 2)
			result.WeightedContribution = round(contribution, 2)
		}
		perCategory[category.Name] = result
	}

	var overall *float64
	switch {
	case totalWeight <= 0:
	case totalWeight < 1:
		normalized := weightedSum / totalWeight
		overall = &normalized
	default:
		overall = &weightedSum
	}

	var rounded, buffer *float64
	if overall != nil {
		rounded = round(*overall, 2)
	}
	if b := pointsBuffer(overall, scale); b != nil {
		buffer = round(*b, 2)
	}

	return OverallResult{
		OverallPercentage:      rounded,
		LetterGrade:            LetterGrade(overall, scale),
		PerCategory:            perCategory,
		PointsBufferBeforeDrop: buffer,
		GradeScale:             scale.Clone(),
		TotalWeightCounted:     *round(totalWeight*100, 1),
		raw:                    overall,
	}
}

func round(value float64, places int) *float64 {
	factor := math.Pow(10, float64(places))
	rounded := math.Round(value*factor) / factor
	return &rounded
}
