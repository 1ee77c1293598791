package intent

import (
	"encoding/json"
	"errors"
	"strings"
)

// classifierOutput is the structured decision the generation model is
// asked to produce. The model's output is untrusted text, so parsing is
// strict and every failure degrades to the unclear decision.
type classifierOutput struct {
	Intent           string   `json:"intent"`
	Collections      []string `json:"collections"`
	NeedsAppointment bool     `json:"needs_appointment"`
	RequiresVision   bool     `json:"requires_vision"`
}

var errNoJSONObject = errors.New("no balanced JSON object in classifier output")

// parseClassifierOutput extracts the first balanced JSON object from
// prose and strictly unmarshals it.
func parseClassifierOutput(raw string) (classifierOutput, error) {
	block, err := firstBalancedObject(raw)
	if err != nil {
		return classifierOutput{}, err
	}

	var out classifierOutput
	dec := json.NewDecoder(strings.NewReader(block))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return classifierOutput{}, err
	}
	return out, nil
}

// firstBalancedObject scans for the first '{' and returns the substring
// up to its matching '}'. Braces inside JSON strings are ignored.
func firstBalancedObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}
