package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// fencePattern matches the first fenced code block, with or without a json tag.
var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// extractJSON returns the body of the first fenced block in content, or the
// whole content when there is none. The result is trimmed.
func extractJSON(content string) string {
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// parseModelJSON decodes the JSON payload of a model answer. A payload that
// is valid JSON but not an object yields an empty map.
func parseModelJSON(content string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(extractJSON(content)), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return obj, nil
}

// stringField returns obj[key] when it is a non-empty string.
func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// stringsField returns obj[key] as a list of non-empty strings. A single
// string is treated as a one-element list.
func stringsField(obj map[string]any, key string) ([]string, bool) {
	switch v := obj[key].(type) {
	case string:
		if v != "" {
			return []string{v}, true
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
