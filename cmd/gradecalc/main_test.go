package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const policyYAML = `course_name: BIO 101
categories:
  - name: Homework
    weight: 40%
    num_items: 3
  - name: Final
    weight: 60
    num_items: 1
grade_scale:
  A: 93
  B: 83
  C: 73
  D: 63
  F: 0
`

const gradesJSON = `{
	"Homework": [
		{"assignment_name": "HW1", "score_earned": 9, "max_score": 10, "status": "graded"},
		{"assignment_name": "HW2", "score_earned": "8", "max_score": 10, "status": "graded"}
	]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fixtureFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return writeFile(t, dir, "policy.yaml", policyYAML), writeFile(t, dir, "grades.json", gradesJSON)
}

func TestCommandFlags(t *testing.T) {
	root := newRootCmd()
	for _, flag := range []string{"policy", "grades", "output", "verbose"} {
		require.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}

	output, _ := root.PersistentFlags().GetString("output")
	require.Equal(t, "text", output)

	needed, _, err := root.Find([]string{"needed"})
	require.NoError(t, err)
	target, _ := needed.Flags().GetString("target")
	require.Equal(t, "A", target)
	require.NotNil(t, needed.Flags().Lookup("remaining"))

	whatIf, _, err := root.Find([]string{"what-if"})
	require.NoError(t, err)
	require.NotNil(t, whatIf.Flags().Lookup("hypothetical"))
}

func TestCalculateText(t *testing.T) {
	policy, grades := fixtureFiles(t)

	out, err := run(t, "calculate", "--policy", policy, "--grades", grades)
	require.NoError(t, err)
	require.Contains(t, out, "85.00%")
	require.Contains(t, out, "Homework")
	require.Contains(t, out, "Best case")
	require.Contains(t, out, "Scenarios (2 remaining)")
}

func TestCalculateJSON(t *testing.T) {
	policy, grades := fixtureFiles(t)

	out, err := run(t, "calculate", "--policy", policy, "--grades", grades, "--output", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 85.0, result["overall_percentage"])
	require.Equal(t, "B", result["letter_grade"])
}

func TestCalculateGroupsFlatGradeList(t *testing.T) {
	dir := t.TempDir()
	policy := writeFile(t, dir, "policy.yaml", policyYAML)
	grades := writeFile(t, dir, "grades.yml", `- assignment_name: HW1
  category: homework assignments
  score_earned: 9
  max_score: 10
- assignment_name: HW2
  category: HOMEWORK
  score_earned: 8
  max_score: 10
`)

	out, err := run(t, "calculate", "--policy", policy, "--grades", grades, "--output", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 85.0, result["overall_percentage"])
}

func TestWhatIf(t *testing.T) {
	policy, grades := fixtureFiles(t)
	hypothetical := writeFile(t, t.TempDir(), "what-if.yaml", `Final Exam:
  score_earned: 100
  max_score: 100
  category: Final
`)

	out, err := run(t, "what-if", "--policy", policy, "--grades", grades, "--hypothetical", hypothetical, "--output", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 94.0, result["overall_percentage"])
	require.Equal(t, "A", result["letter_grade"])
}

func TestNeeded(t *testing.T) {
	policy, grades := fixtureFiles(t)

	out, err := run(t, "needed", "--policy", policy, "--grades", grades, "--output", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, "A", result["target_letter"])
	require.Equal(t, true, result["is_achievable"])
	require.InDelta(t, 93.6, result["required_average"], 0.05)

	text, err := run(t, "needed", "--policy", policy, "--grades", grades, "--target", "B")
	require.NoError(t, err)
	require.Contains(t, text, "Target:")
	require.Contains(t, text, "Achievable:")
}

func TestScenarios(t *testing.T) {
	policy, grades := fixtureFiles(t)

	out, err := run(t, "scenarios", "--policy", policy, "--grades", grades, "--output", "json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 2.0, result["remaining_count"])
	require.Contains(t, result, "current_pace")
}

func TestCommandErrors(t *testing.T) {
	policy, grades := fixtureFiles(t)

	_, err := run(t, "calculate")
	require.ErrorContains(t, err, "policy")

	_, err = run(t, "calculate", "--policy", policy, "--output", "xml")
	require.ErrorContains(t, err, "unknown output format")

	_, err = run(t, "calculate", "--policy", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "reading")

	broken := writeFile(t, t.TempDir(), "broken.json", `{"categories": [`)
	_, err = run(t, "calculate", "--policy", broken, "--grades", grades)
	require.ErrorContains(t, err, "not valid JSON")

	_, err = run(t, "what-if", "--policy", policy, "--grades", grades)
	require.ErrorContains(t, err, "hypothetical")
}
