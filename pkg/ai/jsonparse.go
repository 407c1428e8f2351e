package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates no JSON value could be recovered from a response.
var ErrNoJSON = errors.New("no json found in model response")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON recovers a JSON value from free-form model output. It tries,
// in order: the whole text, the body of a fenced code block, then the
// object span ('{' to the last '}') and the array span ('[' to the last
// ']'), the one that opens earlier in the text first. The first candidate
// that parses wins.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	candidates := []string{trimmed}
	if match := fencePattern.FindStringSubmatch(trimmed); match != nil {
		candidates = append(candidates, strings.TrimSpace(match[1]))
	}
	object, array := span(trimmed, '{', '}'), span(trimmed, '[', ']')
	if opensBefore(trimmed, '[', '{') {
		candidates = append(candidates, array, object)
	} else {
		candidates = append(candidates, object, array)
	}

	for _, candidate := range candidates {
		if candidate == "" || !json.Valid([]byte(candidate)) {
			continue
		}
		return json.RawMessage(candidate), nil
	}
	return nil, ErrNoJSON
}

func span(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// opensBefore reports whether a occurs in text and earlier than b.
func opensBefore(text string, a, b byte) bool {
	ia := strings.IndexByte(text, a)
	if ia < 0 {
		return false
	}
	ib := strings.IndexByte(text, b)
	return ib < 0 || ia < ib
}
