package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Assignment statuses as reported by gradebook exports.
const (
	StatusGraded   = "graded"
	StatusMissing  = "missing"
	StatusExcused  = "excused"
	StatusUngraded = "ungraded"
)

// Drop policy types.
const (
	DropNone    = "none"
	DropLowest  = "drop_lowest"
	DropHighest = "drop_highest"
)

// DefaultGradeScale is used whenever a policy does not carry its own scale.
var DefaultGradeScale = GradeScale{"A": 93, "B": 83, "C": 73, "D": 63, "F": 0}

// GradeScale maps a letter to the minimum percentage required to earn it.
type GradeScale map[string]float64

// Clone returns an independent copy of the scale.
func (s GradeScale) Clone() GradeScale {
	if s == nil {
		return nil
	}
	clone := make(GradeScale, len(s))
	for letter, min := range s {
		clone[letter] = min
	}
	return clone
}

// UnmarshalJSON accepts thresholds written as numbers or numeric strings and
// skips entries that are neither.
func (s *GradeScale) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	scale := make(GradeScale, len(raw))
	for letter, value := range raw {
		letter = strings.TrimSpace(letter)
		if min := LenientFloat(value); min != nil && letter != "" {
			scale[letter] = *min
		}
	}
	*s = scale
	return nil
}

// Assignment is one graded or pending unit of work inside a category.
type Assignment struct {
	Name           string   `json:"assignment_name"`
	Category       string   `json:"category,omitempty"`
	ScoreEarned    *float64 `json:"score_earned"`
	MaxScore       *float64 `json:"max_score"`
	Status         string   `json:"status"`
	SubmissionDate *string  `json:"submission_date,omitempty"`
}

// UnmarshalJSON decodes an assignment leniently: numeric strings are coerced,
// unparsable numbers become absent and a missing status is inferred.
func (a *Assignment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name           string          `json:"assignment_name"`
		Category       string          `json:"category"`
		ScoreEarned    json.RawMessage `json:"score_earned"`
		MaxScore       json.RawMessage `json:"max_score"`
		Status         string          `json:"status"`
		SubmissionDate *string         `json:"submission_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Assignment{
		Name:           raw.Name,
		Category:       raw.Category,
		ScoreEarned:    LenientFloat(raw.ScoreEarned),
		MaxScore:       LenientFloat(raw.MaxScore),
		Status:         strings.ToLower(strings.TrimSpace(raw.Status)),
		SubmissionDate: raw.SubmissionDate,
	}
	if a.Status == "" {
		if a.ScoreEarned != nil {
			a.Status = StatusGraded
		} else {
			a.Status = StatusUngraded
		}
	}
	return nil
}

// Ratio returns score/max, treating a zero or absent max as a ratio of 0.
func (a Assignment) Ratio() float64 {
	if a.ScoreEarned == nil || a.MaxScore == nil || *a.MaxScore == 0 {
		return 0
	}
	return *a.ScoreEarned / *a.MaxScore
}

// Clone returns a copy that shares no pointers with the receiver.
func (a Assignment) Clone() Assignment {
	clone := a
	clone.ScoreEarned = cloneFloat(a.ScoreEarned)
	clone.MaxScore = cloneFloat(a.MaxScore)
	if a.SubmissionDate != nil {
		date := *a.SubmissionDate
		clone.SubmissionDate = &date
	}
	return clone
}

// DropPolicy discards a fixed number of graded items before aggregation.
type DropPolicy struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// UnmarshalJSON accepts counts written as numbers or numeric strings.
func (p *DropPolicy) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string          `json:"type"`
		Count json.RawMessage `json:"count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Type = strings.ToLower(strings.TrimSpace(raw.Type))
	p.Count = 0
	if count := LenientFloat(raw.Count); count != nil && *count > 0 {
		p.Count = int(*count)
	}
	return nil
}

// NoDrop is the policy applied when a category does not declare one.
func NoDrop() DropPolicy {
	return DropPolicy{Type: DropNone, Count: 0}
}

// Category is a weighted grading bucket.
type Category struct {
	Name       string      `json:"name" validate:"required"`
	Weight     float64     `json:"weight" validate:"gte=0,lte=100"`
	NumItems   *int        `json:"num_items"`
	DropPolicy *DropPolicy `json:"drop_policy,omitempty"`
}

// UnmarshalJSON accepts weights such as 20, "20" or "20%".
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string          `json:"name"`
		Weight     json.RawMessage `json:"weight"`
		NumItems   json.RawMessage `json:"num_items"`
		DropPolicy *DropPolicy     `json:"drop_policy"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Category{
		Name:       strings.TrimSpace(raw.Name),
		DropPolicy: raw.DropPolicy,
	}
	if weight := LenientFloat(raw.Weight); weight != nil {
		c.Weight = *weight
	}
	if items := LenientFloat(raw.NumItems); items != nil && *items >= 0 {
		n := int(*items)
		c.NumItems = &n
	}
	return nil
}

// EffectiveDropPolicy returns the declared policy or NoDrop.
func (c Category) EffectiveDropPolicy() DropPolicy {
	if c.DropPolicy == nil {
		return NoDrop()
	}
	return *c.DropPolicy
}

// GradingPolicy is the structured form of a course syllabus.
type GradingPolicy struct {
	CourseName          string     `json:"course_name,omitempty"`
	Categories          []Category `json:"categories" validate:"dive"`
	GradeScale          GradeScale `json:"grade_scale,omitempty"`
	ExtraCreditPossible bool       `json:"extra_credit_possible"`
	TotalWeight         *float64   `json:"total_weight,omitempty"`
	WeightWarning       string     `json:"weight_warning,omitempty"`
}

// Scale returns the policy's grade scale, falling back to DefaultGradeScale.
func (p GradingPolicy) Scale() GradeScale {
	if len(p.GradeScale) == 0 {
		return DefaultGradeScale
	}
	return p.GradeScale
}

// CategoryNames lists the policy categories in declaration order.
func (p GradingPolicy) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, category := range p.Categories {
		names = append(names, category.Name)
	}
	return names
}

// GradesByCategory maps a category name to its ordered assignments.
type GradesByCategory map[string][]Assignment

// Clone deep-copies the map so callers never observe a projection's edits.
func (g GradesByCategory) Clone() GradesByCategory {
	clone := make(GradesByCategory, len(g))
	for name, assignments := range g {
		copied := make([]Assignment, len(assignments))
		for i, assignment := range assignments {
			copied[i] = assignment.Clone()
		}
		clone[name] = copied
	}
	return clone
}

// Hypothetical is a score overlay for one assignment.
type Hypothetical struct {
	ScoreEarned *float64 `json:"score_earned"`
	MaxScore    *float64 `json:"max_score,omitempty"`
	Category    string   `json:"category"`
}

// UnmarshalJSON coerces numeric strings like the assignment decoder does.
func (h *Hypothetical) UnmarshalJSON(data []byte) error {
	var raw struct {
		ScoreEarned json.RawMessage `json:"score_earned"`
		MaxScore    json.RawMessage `json:"max_score"`
		Category    string          `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = Hypothetical{
		ScoreEarned: LenientFloat(raw.ScoreEarned),
		MaxScore:    LenientFloat(raw.MaxScore),
		Category:    raw.Category,
	}
	return nil
}

// HypotheticalScores maps an assignment name to its overlay.
type HypotheticalScores map[string]Hypothetical

// LenientFloat decodes a JSON number or numeric string. Anything else,
// including null, NaN and Inf, yields nil.
func LenientFloat(raw json.RawMessage) *float64 {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return finite(number)
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil
	}
	str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
	if str == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil
	}
	return finite(parsed)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
