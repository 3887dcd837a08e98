package analysis

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openpheno/phenograph/internal/gemini"
)

// payload is the structured half of the request: the input value object plus
// the optional prior-session context.
type payload struct {
	Input
	HistoryContext []HistoryContext `json:"historyContext,omitempty"`
}

// NeedsSpeechInference reports whether the request must ask the model to
// infer vocal biomarkers from attached media. Without media there is nothing
// to infer from. With media, inference is requested when the user left the
// features at their healthy defaults ("auto") or at the zero value.
func NeedsSpeechInference(in Input) bool {
	if !in.HasMedia() {
		return false
	}
	f := in.SpeechFeatures
	if f == (SpeechFeatures{}) {
		return true
	}
	return f.SpeechRate == "normal"
}

// BuildRequest assembles the multipart user content for one analysis call:
// a single text part carrying the structured payload and per-situation
// directive blocks, followed by one inline-data part per attachment.
func BuildRequest(in Input, history []HistoryContext) (gemini.Content, error) {
	data, err := json.Marshal(payload{Input: in, HistoryContext: history})
	if err != nil {
		return gemini.Content{}, fmt.Errorf("analysis: marshal payload: %w", err)
	}

	lang := in.ReportLanguage
	if lang == "" {
		lang = "English"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a rigorous clinical report in language: %s.", lang)
	fmt.Fprintf(&b, "\n\nClinical Data JSON: %s", data)

	b.WriteString("\n\n*** AUTOMATIC UNIVERSAL DOCUMENT & MEDIA ANALYSIS ***")
	b.WriteString("\nYou have received media attachments. For EACH attachment, you MUST AUTOMATICALLY IDENTIFY its type and process it accordingly:")
	b.WriteString("\n1. IF HANDWRITING/NOTES: Perform expert OCR. Transcribe messy text verbatim. Analyze intent.")
	b.WriteString("\n2. IF EXCEL/CSV/SPREADSHEET: Analyze the tabular data, trends, and values.")
	b.WriteString("\n3. IF WORD/PDF/DOC: Summarize clinical findings, history, and referral letters.")
	b.WriteString("\n4. IF POWERPOINT/SLIDES: Extract key points from the presentation.")
	b.WriteString("\n5. IF PATIENT VIDEO/IMAGE: Analyze phenotype. IGNORE background noise (TV, chatter). Check for AI/Deepfake artifacts.")
	b.WriteString("\nSynthesize all findings into the final JSON report.")

	b.WriteString("\n\n*** CONTEXTUAL ANALYSIS ***")
	b.WriteString("\nExplain symptoms in the context of lifestyle and environment.")

	if len(in.TraitCandidates) == 0 {
		b.WriteString("\n\n*** INFERENCE REQUIRED: SYMPTOMS ***")
		b.WriteString("\nThe user provided NO manual HPO terms (\"I don't know\"). You MUST infer symptoms/phenotypes strictly from the 'note' text and any media attachments. Do NOT hallucinate if no evidence exists.")
	}

	if NeedsSpeechInference(in) {
		b.WriteString("\n\n*** INFERENCE REQUIRED: SPEECH ***")
		b.WriteString("\nThe user provided NO manual speech metrics (\"I don't know\"). You MUST analyze any attached audio/video for vocal biomarkers (pitch, rate, prosody, articulation) and infer them yourself.")
	}

	b.WriteString("\n\n*** CONFIDENCE SCORING ***")
	b.WriteString("\n1. Provide 'overall_confidence' (0.0-1.0).")
	b.WriteString("\n2. Provide 'confidence_explanation' justifying the score.")

	b.WriteString("\n\n*** SAFETY & REASONING CHECKLIST ***")
	b.WriteString("\nComplete the 'reasoning_metadata' object in the JSON response:")
	b.WriteString("\n- chain_of_thought: Step-by-step logic.")
	b.WriteString("\n- alternate_possibilities: Top 3 ruled-out conditions.")
	b.WriteString("\n- error_triggers: Quality issues (lighting, noise).")
	b.WriteString("\n- false_positive_analysis: History of false alarms for this pattern.")
	b.WriteString("\n- counterarguments: \"Why might this be wrong?\".")
	b.WriteString("\n- bias_check: Check for demographic biases.")
	b.WriteString("\n- trust_level: \"Safe\", \"Caution\", or \"Expert Review\".")

	if len(in.SourceURLs) > 0 {
		urls, err := json.Marshal(in.SourceURLs)
		if err != nil {
			return gemini.Content{}, fmt.Errorf("analysis: marshal source urls: %w", err)
		}
		b.WriteString("\n\n*** EXTERNAL MEDIA ***")
		fmt.Fprintf(&b, "\nUser provided URLs: %s. Use 'googleSearch' to analyze them.", urls)
	}

	if len(history) > 0 {
		fmt.Fprintf(&b, "\n\n*** PROGRESSION ANALYSIS ***: Compare current data to %d previous sessions.", len(history))
	}

	if !in.HasMedia() {
		b.WriteString("\n\n*** IMPORTANT: NO MEDIA FILES ATTACHED ***")
		b.WriteString("\n1. Set 'quality_check.media_relevance' to 'None'.")
		b.WriteString("\n2. Add 'No media given, only text analysis has been done.' to 'evidence_summaries'.")
		b.WriteString("\n3. Do NOT comment on recording quality, background noise, or lighting. Base your analysis SOLELY on the provided text history and parameters.")
	}

	parts := []gemini.Part{{Text: b.String()}}
	for _, att := range in.Attachments {
		parts = append(parts, inlinePart(att))
	}
	if in.VoiceNote != nil && len(in.VoiceNote.Data) > 0 {
		parts = append(parts, inlinePart(*in.VoiceNote))
	}

	return gemini.Content{Parts: parts}, nil
}

func inlinePart(att Attachment) gemini.Part {
	return gemini.Part{InlineData: &gemini.InlineData{
		MIMEType: att.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(att.Data),
	}}
}
