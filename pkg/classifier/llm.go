package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smartquery/qrouter/pkg/models"
)

// ErrNoJSONObject is returned when the LLM response contains no JSON object.
var ErrNoJSONObject = errors.New("no JSON object in LLM response")

// LLMClassification is the structured payload expected inside an LLM
// classifier response.
type LLMClassification struct {
	Backend        models.Backend `json:"backend"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	SuggestedTools []string       `json:"suggested_tools"`
}

// ClassificationSchema is the JSON schema sent alongside the query so the
// LLM produces a parseable payload.
const ClassificationSchema = `{
  "type": "object",
  "properties": {
    "backend": {"type": "string", "enum": ["adaptive_iterative", "multi_agent_sequential", "direct_retrieval"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reasoning": {"type": "string"},
    "suggested_tools": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["backend", "confidence", "reasoning", "suggested_tools"]
}`

// ParseLLMClassification extracts and validates the classification payload
// from a free-form LLM response. The response is untrusted: the JSON object
// may be wrapped in prose or markdown fences, keys may be missing, and
// values may be out of range. Any structural failure returns an error so the
// caller can fall back to the rule-based path.
func ParseLLMClassification(raw string) (*LLMClassification, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var out LLMClassification
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("malformed classification JSON: %w", err)
	}

	if !out.Backend.IsValid() {
		return nil, fmt.Errorf("unknown backend %q in LLM response", out.Backend)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range [0, 1]", out.Confidence)
	}
	if out.Reasoning == "" {
		return nil, errors.New("missing reasoning in LLM response")
	}

	return &out, nil
}

// extractJSONObject returns the first balanced top-level JSON object in the
// text, respecting string literals and escapes.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", ErrNoJSONObject
}
