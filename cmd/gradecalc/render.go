package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/noah-isme/grade-predictor-api/internal/grading"
)

func render(w io.Writer, format string, result interface{}, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func percent(value *float64) string {
	if value == nil {
		return grading.NotAvailable
	}
	return fmt.Sprintf("%.2f%%", *value)
}

func writeOverall(w io.Writer, result grading.OverallResult) {
	fmt.Fprintf(w, "Overall:\t%s\t%s\n", percent(result.OverallPercentage), result.LetterGrade)
	fmt.Fprintf(w, "Weight counted:\t%.1f%%\n", result.TotalWeightCounted)
	if result.PointsBufferBeforeDrop != nil {
		fmt.Fprintf(w, "Buffer before next letter drop:\t%.2f points\n", *result.PointsBufferBeforeDrop)
	}

	names := make([]string, 0, len(result.PerCategory))
	for name := range result.PerCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Category\tWeight\tScore\tGraded\tDropped\tMissing\tUngraded")
	for _, name := range names {
		category := result.PerCategory[name]
		fmt.Fprintf(w, "%s\t%.1f%%\t%s\t%d\t%d\t%d\t%d\n",
			name, category.Weight, percent(category.Percentage),
			category.GradedCount, category.DroppedCount, category.MissingCount, category.UngradedCount)
	}
}

func writeScenarios(w io.Writer, result grading.ScenariosResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scenarios (%d remaining)\tOverall\tLetter\tScore on remaining\n", result.RemainingCount)
	for _, row := range []struct {
		label    string
		scenario grading.Scenario
	}{
		{"Best case", result.BestCase},
		{"Current pace", result.CurrentPace},
		{"Worst case", result.WorstCase},
	} {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f%%\n", row.label, percent(row.scenario.Percentage), row.scenario.Letter, row.scenario.ScoreOnRemaining)
	}
}

func writeNeeded(w io.Writer, result grading.NeededScoresResult) {
	fmt.Fprintf(w, "Target:\t%s (%.1f%%)\n", result.TargetLetter, result.TargetPercentage)
	fmt.Fprintf(w, "Current:\t%s\n", percent(result.CurrentPercentage))
	fmt.Fprintf(w, "Required average:\t%s\n", percent(result.RequiredAverage))
	if result.IsAchievable {
		fmt.Fprintln(w, "Achievable:\tyes")
	} else {
		fmt.Fprintln(w, "Achievable:\tno")
	}
	if result.BestPossible != nil || result.WorstPossible != nil {
		fmt.Fprintf(w, "Possible range:\t%s to %s\n", percent(result.WorstPossible), percent(result.BestPossible))
	}

	if len(result.RemainingAssignments) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Remaining\tCategory\tMax")
	for _, assignment := range result.RemainingAssignments {
		maxScore := "-"
		if assignment.MaxScore != nil {
			maxScore = fmt.Sprintf("%g", *assignment.MaxScore)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", assignment.Name, assignment.Category, maxScore)
	}
}

func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
