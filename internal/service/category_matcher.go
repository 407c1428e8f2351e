package service

import (
	"strings"

	"github.com/noah-isme/grade-predictor-api/internal/models"
)

// UncategorizedBucket collects grades that match no policy category.
const UncategorizedBucket = "Uncategorized"

// Names of the matching rules, in priority order.
const (
	MatchExact      = "exact"
	MatchNormalized = "normalized"
	MatchSubstring  = "substring"
	MatchNone       = "none"
)

type matchRule struct {
	name  string
	match func(m *CategoryMatcher, raw, normalized string) (string, bool)
}

var matchRules = []matchRule{
	{name: MatchExact, match: (*CategoryMatcher).matchExact},
	{name: MatchNormalized, match: (*CategoryMatcher).matchNormalized},
	{name: MatchSubstring, match: (*CategoryMatcher).matchSubstring},
}

// CategoryMatcher maps free-form category labels onto policy category names.
type CategoryMatcher struct {
	names      []string
	exact      map[string]struct{}
	normalized map[string]string
	// normalized names in policy order for the substring rule
	ordered []string
}

// NewCategoryMatcher indexes the categories of a policy.
func NewCategoryMatcher(categories []models.Category) *CategoryMatcher {
	m := &CategoryMatcher{
		exact:      make(map[string]struct{}, len(categories)),
		normalized: make(map[string]string, len(categories)),
	}
	for _, category := range categories {
		if _, seen := m.exact[category.Name]; seen {
			continue
		}
		m.names = append(m.names, category.Name)
		m.exact[category.Name] = struct{}{}

		key := normalizeCategory(category.Name)
		// later duplicates of a normalized key do not override the first
		if _, seen := m.normalized[key]; !seen {
			m.normalized[key] = category.Name
			m.ordered = append(m.ordered, key)
		}
	}
	return m
}

// Match returns the policy category for raw and the rule that fired. When no
// rule fires it returns UncategorizedBucket and MatchNone.
func (m *CategoryMatcher) Match(raw string) (category string, rule string) {
	normalized := normalizeCategory(raw)
	for _, r := range matchRules {
		if name, ok := r.match(m, raw, normalized); ok {
			return name, r.name
		}
	}
	return UncategorizedBucket, MatchNone
}

// Group buckets grades by matched category. Every policy category is present,
// possibly empty; the Uncategorized bucket appears only when it has entries.
// The second return value maps each distinct raw label to the rule used.
func (m *CategoryMatcher) Group(grades []models.Assignment) (models.GradesByCategory, map[string]string) {
	grouped := make(models.GradesByCategory, len(m.names)+1)
	for _, name := range m.names {
		grouped[name] = []models.Assignment{}
	}
	rules := make(map[string]string)

	for _, grade := range grades {
		category, rule := m.Match(grade.Category)
		rules[grade.Category] = rule
		grouped[category] = append(grouped[category], grade.Clone())
	}

	if len(grouped[UncategorizedBucket]) == 0 {
		if _, isPolicyCategory := m.exact[UncategorizedBucket]; !isPolicyCategory {
			delete(grouped, UncategorizedBucket)
		}
	}
	return grouped, rules
}

func (m *CategoryMatcher) matchExact(raw, _ string) (string, bool) {
	_, ok := m.exact[raw]
	return raw, ok
}

func (m *CategoryMatcher) matchNormalized(_, normalized string) (string, bool) {
	name, ok := m.normalized[normalized]
	return name, ok
}

func (m *CategoryMatcher) matchSubstring(_, normalized string) (string, bool) {
	if normalized == "" {
		return "", false
	}
	for _, key := range m.ordered {
		if key == "" {
			continue
		}
		if strings.Contains(key, normalized) || strings.Contains(normalized, key) {
			return m.normalized[key], true
		}
	}
	return "", false
}

// normalizeCategory lowercases and keeps ASCII letters and digits only.
func normalizeCategory(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	for _, r := range strings.ToLower(value) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
