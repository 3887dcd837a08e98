package gemini

import "strings"

// ── Request types ──────────────────────────────────────────────────────────────

// GenerateRequest is the generateContent request body.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is an ordered list of parts attributed to a role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part carries either text or inline binary data, never both.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is a base64-encoded binary attachment with its MIME type.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Tool enables a built-in capability. Only search grounding is used.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"googleSearch,omitempty"`
}

// GoogleSearch enables search grounding. It carries no configuration.
type GoogleSearch struct{}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// Temp returns a pointer to t for use in [GenerationConfig].
func Temp(t float64) *float64 { return &t }

// TextContent builds a single-part user content from text.
func TextContent(text string) Content {
	return Content{Parts: []Part{{Text: text}}}
}

// SystemInstruction builds the system-instruction content block.
func SystemInstruction(text string) *Content {
	return &Content{Parts: []Part{{Text: text}}}
}

// ── Response types ─────────────────────────────────────────────────────────────

// GenerateResponse is the generateContent response body.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated reply.
type Candidate struct {
	Content           *Content           `json:"content,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata lists the web sources a grounded reply drew on.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// GroundingChunk points at a single grounding source.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource identifies a web page used for grounding.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Text concatenates the text parts of the first candidate. Returns the
// empty string when the response carries no text.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// WebSources extracts the grounding sources of the first candidate,
// preserving response order. Chunks without a web reference are skipped.
func (r *GenerateResponse) WebSources() []WebSource {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []WebSource
	for _, chunk := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web != nil && chunk.Web.URI != "" {
			out = append(out, *chunk.Web)
		}
	}
	return out
}
