// internal/agent/parse.go
package agent

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeModelJSON unmarshals a model response into v. Models wrap JSON in
// markdown fences or surrounding prose often enough that we cut the payload
// down to the outermost object first.
func decodeModelJSON(raw string, v any) error {
	payload := extractJSONObject(raw)
	if payload == "" {
		return fmt.Errorf("no JSON object found in model response: %.120q", raw)
	}
	if err := json.UnmarshalFromString(payload, v); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}
	return nil
}

// extractJSONObject strips markdown fences and returns the substring from
// the first '{' to the last '}'.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
