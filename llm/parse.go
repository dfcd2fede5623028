package llm

import (
	"encoding/json"
	"strings"
)

// Summary is the structured output of a summarization run.
type Summary struct {
	Summary      string   `json:"summary"`
	Technologies []string `json:"technologies"`
	Structure    string   `json:"structure"`
	Raw          string   `json:"-"`
}

// ParseSummary decodes the model output as a summary object. Markdown fences
// are stripped first because models wrap the JSON despite instructions not
// to. Output that still fails to decode becomes the summary as-is.
func ParseSummary(raw string) *Summary {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var s Summary
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil || s.Summary == "" {
		return &Summary{Summary: raw, Raw: raw}
	}
	s.Raw = raw
	return &s
}
