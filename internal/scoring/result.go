package scoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const maxReasons = 6

// Result is the structured verdict the model must produce for one job.
type Result struct {
	IsMatch    bool     `json:"is_match"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons"`
	Flags      []string `json:"flags"`
	Confidence string   `json:"confidence"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseResult extracts and validates a Result from raw model output.
// Models wrap JSON in prose or code fences often enough that we extract
// the leading object by brace matching first, then fall back to a
// fenced block.
func ParseResult(raw string) (*Result, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var r Result
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if r.Score < 1 || r.Score > 10 {
		return nil, fmt.Errorf("score %d out of range", r.Score)
	}
	switch r.Confidence {
	case "low", "medium", "high":
	default:
		return nil, fmt.Errorf("invalid confidence %q", r.Confidence)
	}
	if len(r.Reasons) > maxReasons {
		r.Reasons = r.Reasons[:maxReasons]
	}
	return &r, nil
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		depth := 0
		for i, ch := range text {
			switch ch {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[:i+1]
				}
			}
		}
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
