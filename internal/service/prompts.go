package service

import "strings"

const syllabusPrompt = `You extract grading policies from course syllabi.

Reply with a single JSON object and nothing else. Do not wrap it in markdown and do not explain it.

The object must look like this:
{
  "course_name": "string",
  "categories": [
    {
      "name": "string",
      "weight": <number from 0 to 100>,
      "num_items": <integer or null>,
      "drop_policy": {"type": "<drop_lowest|drop_highest|none>", "count": <integer>}
    }
  ],
  "grade_scale": {"A": <minimum percent>, "B": <minimum percent>, "C": <minimum percent>, "D": <minimum percent>, "F": 0},
  "extra_credit_possible": <true or false>
}

Rules:
1. Weights are plain numbers, for example 20 rather than "20%".
2. Weights should add up to about 100.
3. When no drop rule is stated use {"type": "none", "count": 0}.
4. When no grade scale is stated use A=93, B=83, C=73, D=63, F=0.
5. Typical category names are Homework, Quizzes, Midterm, Final, Labs, Participation and Projects.
6. "Lowest N dropped" means type "drop_lowest" with count N.
7. num_items is how many items the category contains, or null when the syllabus does not say.

Syllabus text:
===
{{document}}
===`

const gradesPrompt = `You extract grade data from gradebook exports (Canvas or another LMS).

Reply with a single JSON array and nothing else. Do not wrap it in markdown and do not explain it.

Every element must look like this:
{
  "assignment_name": "string",
  "category": "string",
  "score_earned": <number or null>,
  "max_score": <number or null>,
  "status": "<graded|missing|excused|ungraded>",
  "submission_date": "string or null"
}

Rules:
1. score_earned is null for missing, excused and ungraded work.
2. "excused" means the student was excused and the item does not count.
3. "missing" means nothing was submitted; it usually counts as zero.
4. "ungraded" means submitted but not graded yet.
5. "graded" means a numeric score is present.
6. max_score is the points possible, or null when unclear.
7. Use one of these syllabus categories for the category field: {{categories}}
   When unsure, pick the closest one from the assignment name.
8. Only list assignments that appear in the text.
9. Skip header rows, summary rows and totals.

Gradebook text:
===
{{document}}
===`

func renderPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
