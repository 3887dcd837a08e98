package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError marks a model reply that could not be decoded into a Report.
// The raw text is retained for logging.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis: parse report: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractJSON pulls the JSON object out of a model reply that may be wrapped
// in prose or markdown fences. It takes the span from the first '{' to the
// last '}' and strips any remaining code-fence markers.
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	candidate := text
	if start >= 0 && end > start {
		candidate = text[start : end+1]
	}
	candidate = strings.ReplaceAll(candidate, "```json", "")
	candidate = strings.ReplaceAll(candidate, "```", "")
	return strings.TrimSpace(candidate)
}

// ParseReport decodes the model reply into a Report, tolerating markdown
// fences and surrounding prose. An empty reply or undecodable JSON returns
// a [*ParseError].
func ParseReport(text string) (Report, error) {
	if strings.TrimSpace(text) == "" {
		return Report{}, &ParseError{Raw: text, Err: fmt.Errorf("empty response")}
	}
	cleaned := ExtractJSON(text)
	var report Report
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return Report{}, &ParseError{Raw: text, Err: err}
	}
	return report, nil
}
