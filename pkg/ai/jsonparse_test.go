package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain object", input: ` {"a": 1} `, want: `{"a": 1}`},
		{name: "fenced", input: "Here you go:\n```json\n{\"a\": 2}\n```\nthanks", want: `{"a": 2}`},
		{name: "fence without tag", input: "```\n[1, 2]\n```", want: `[1, 2]`},
		{name: "embedded object", input: `The policy is {"course_name": "Bio"} as requested.`, want: `{"course_name": "Bio"}`},
		{name: "embedded array", input: `Result: [{"assignment_name": "HW1"}] done`, want: `[{"assignment_name": "HW1"}]`},
		{name: "array of several objects", input: `Grades: [{"a": 1}, {"a": 2}] end`, want: `[{"a": 1}, {"a": 2}]`},
		{name: "object holding a list", input: `Here: {"grades": [{"a": 1}]} ok`, want: `{"grades": [{"a": 1}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ExtractJSON(tc.input)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestExtractJSONFailure(t *testing.T) {
	_, err := ExtractJSON("I could not read the document.")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON(`{"broken": [1, 2}`)
	require.ErrorIs(t, err, ErrNoJSON)
}
