package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/grade-predictor-api/internal/dto"
	"github.com/noah-isme/grade-predictor-api/internal/models"
	"github.com/noah-isme/grade-predictor-api/internal/service"
)

// readDocument loads a JSON or YAML file and returns it as JSON, so the
// lenient model decoders apply to both formats.
func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		out, err := json.Marshal(jsonCompatible(doc))
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", path, err)
		}
		return out, nil
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("parsing %s: not valid JSON", path)
		}
		return data, nil
	}
}

// jsonCompatible turns YAML maps with non-string keys into string-keyed maps.
func jsonCompatible(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		for key, item := range typed {
			typed[key] = jsonCompatible(item)
		}
		return typed
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = jsonCompatible(item)
		}
		return out
	case []interface{}:
		for i, item := range typed {
			typed[i] = jsonCompatible(item)
		}
		return typed
	default:
		return value
	}
}

// loadPolicy accepts either a bare policy or an object wrapping it under
// "grading_policy", which is what the upload endpoint returns.
func loadPolicy(path string) (*models.GradingPolicy, error) {
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		GradingPolicy *models.GradingPolicy `json:"grading_policy"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.GradingPolicy != nil {
		return wrapped.GradingPolicy, nil
	}

	var policy models.GradingPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("decoding policy %s: %w", path, err)
	}
	return &policy, nil
}

// loadGrades accepts grades keyed by category or a flat list whose
// category labels are matched against the policy.
func loadGrades(path string, policy *models.GradingPolicy) (models.GradesByCategory, error) {
	if path == "" {
		return models.GradesByCategory{}, nil
	}

	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var grades []models.Assignment
		if err := json.Unmarshal(trimmed, &grades); err != nil {
			return nil, fmt.Errorf("decoding grades %s: %w", path, err)
		}
		grouped, _ := service.NewCategoryMatcher(policy.Categories).Group(grades)
		return grouped, nil
	}

	var wrapped struct {
		GradesByCategory models.GradesByCategory `json:"grades_by_category"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.GradesByCategory != nil {
		return wrapped.GradesByCategory, nil
	}

	var grades models.GradesByCategory
	if err := json.Unmarshal(trimmed, &grades); err != nil {
		return nil, fmt.Errorf("decoding grades %s: %w", path, err)
	}
	if grades == nil {
		grades = models.GradesByCategory{}
	}
	return grades, nil
}

func loadHypothetical(path string) (models.HypotheticalScores, error) {
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		HypotheticalScores models.HypotheticalScores `json:"hypothetical_scores"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.HypotheticalScores != nil {
		return wrapped.HypotheticalScores, nil
	}

	var scores models.HypotheticalScores
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("decoding hypothetical scores %s: %w", path, err)
	}
	return scores, nil
}

func loadRemaining(path string) ([]models.Assignment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	remaining := []models.Assignment{}
	if err := json.Unmarshal(data, &remaining); err != nil {
		return nil, fmt.Errorf("decoding remaining assignments %s: %w", path, err)
	}
	return remaining, nil
}

func (o *rootOpts) calculateRequest() (dto.CalculateRequest, error) {
	policy, err := loadPolicy(o.policyPath)
	if err != nil {
		return dto.CalculateRequest{}, err
	}
	grades, err := loadGrades(o.gradesPath, policy)
	if err != nil {
		return dto.CalculateRequest{}, err
	}
	return dto.CalculateRequest{GradingPolicy: policy, GradesByCategory: grades}, nil
}
