// Package analysis implements the one-shot screening path: it assembles
// multipart requests (structured patient data plus inline attachments),
// invokes the inference service, repairs and parses the JSON reply, and
// merges model-extracted fields back into the input baseline.
package analysis

import (
	"encoding/json"
	"strconv"
)

// FlexString accepts either a JSON string or a JSON number, normalising to
// a string. The model is inconsistent about quoting rates.
type FlexString string

// UnmarshalJSON implements the string-or-number tolerance.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// Patient holds the demographic fields and free-text clinical note.
type Patient struct {
	Age     int    `json:"age"`
	AgeUnit string `json:"age_unit"`
	Sex     string `json:"sex"`
	Note    string `json:"note"`
}

// EvidencePointer ties a trait to a location in the submitted media.
type EvidencePointer struct {
	Type       string  `json:"type"`
	File       string  `json:"file"`
	StartS     float64 `json:"start_s,omitempty"`
	EndS       float64 `json:"end_s,omitempty"`
	Confidence float64 `json:"confidence"`
}

// TraitCandidate is one phenotype term (HPO-coded) with its probability.
type TraitCandidate struct {
	Term        string            `json:"term"`
	Code        string            `json:"code"`
	Probability float64           `json:"probability"`
	Evidence    []EvidencePointer `json:"evidence"`
}

// SpeechFeatures are the vocal biomarkers, either user-entered or inferred
// by the model from attached audio.
type SpeechFeatures struct {
	SpeechRate        FlexString `json:"speech_rate"`
	F0Mean            float64    `json:"f0_mean"`
	PauseRate         FlexString `json:"pause_rate"`
	ArticulationScore float64    `json:"articulation_score"`
}

// CleanSpeechFeatures are the healthy-baseline defaults. Submitting them
// signals "auto": the model is asked to infer features from media instead.
var CleanSpeechFeatures = SpeechFeatures{
	SpeechRate:        "normal",
	F0Mean:            200,
	PauseRate:         "normal",
	ArticulationScore: 0.95,
}

// Attachment is one inline binary part of an analysis request. Data is the
// raw bytes; the assembler base64-encodes it for the wire.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Input is the value object for one analysis invocation. It is immutable
// after creation: refinement and merge operations return copies.
type Input struct {
	Patient         Patient          `json:"patient"`
	TraitCandidates []TraitCandidate `json:"hpo_candidates"`
	SpeechFeatures  SpeechFeatures   `json:"audio_features"`
	MorphFlags      map[string]any   `json:"morphological_flags,omitempty"`
	SourceURLs      []string         `json:"source_urls,omitempty"`
	ReportLanguage  string           `json:"reportLanguage,omitempty"`

	// Attachments and VoiceNote travel as inline binary parts, not in the
	// serialized structured payload.
	Attachments []Attachment `json:"-"`
	VoiceNote   *Attachment  `json:"-"`
}

// HasMedia reports whether the input carries any binary attachment.
func (in Input) HasMedia() bool {
	return len(in.Attachments) > 0 || (in.VoiceNote != nil && len(in.VoiceNote.Data) > 0)
}

// HistoryContext is a prior report passed along for progression analysis.
type HistoryContext struct {
	Date   string `json:"date"`
	Output Report `json:"output"`
}

// SupportingTerm links a ranked condition to one of the patient's traits.
type SupportingTerm struct {
	Term             string            `json:"term"`
	Code             string            `json:"code"`
	TermConfidence   float64           `json:"term_confidence"`
	EvidencePointers []EvidencePointer `json:"evidence_pointers,omitempty"`
}

// RankedCondition is one differential-diagnosis entry.
type RankedCondition struct {
	Name                 string           `json:"name"`
	EstimatedProbability float64          `json:"estimated_probability"`
	SupportingTerms      []SupportingTerm `json:"supporting_terms,omitempty"`
	BriefRationale       string           `json:"brief_rationale,omitempty"`
	MatchAnalysis        string           `json:"match_analysis,omitempty"`
	SuggestedNextSteps   []string         `json:"suggested_next_steps,omitempty"`
	Citations            []string         `json:"citations,omitempty"`
	Confidence           float64          `json:"confidence"`
}

// WebSource identifies one grounding citation.
type WebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// QualityCheck reports whether the submitted media was usable.
type QualityCheck struct {
	Usable                bool     `json:"usable"`
	Issues                []string `json:"issues,omitempty"`
	Suggestions           []string `json:"suggestions,omitempty"`
	MediaAuthenticity     string   `json:"media_authenticity,omitempty"`
	MediaRelevance        string   `json:"media_relevance,omitempty"`
	AuthenticityReasoning string   `json:"authenticity_reasoning,omitempty"`
}

// ProgressionPoint is one longitudinal observation.
type ProgressionPoint struct {
	Date               string  `json:"date"`
	GaitScore          float64 `json:"gait_score"`
	SpeechClarity      float64 `json:"speech_clarity"`
	FacialExpressivity float64 `json:"facial_expressivity"`
	Summary            string  `json:"summary,omitempty"`
}

// ProgressionAnalysis compares the current session to prior ones.
type ProgressionAnalysis struct {
	TrendSummary string             `json:"trend_summary"`
	AlertLevel   string             `json:"alert_level"`
	DataPoints   []ProgressionPoint `json:"data_points,omitempty"`
}

// Prognosis is the model's trajectory estimate.
type Prognosis struct {
	Trajectory        string `json:"trajectory"`
	Prediction6Month  string `json:"prediction_6_month,omitempty"`
	Prediction12Month string `json:"prediction_12_month,omitempty"`
}

// AlternateDiagnosis is a ruled-out condition with its exclusion reason.
type AlternateDiagnosis struct {
	Name          string `json:"name"`
	RuleOutReason string `json:"rule_out_reason"`
}

// ReasoningMetadata is the safety and reasoning checklist the model fills in.
type ReasoningMetadata struct {
	ChainOfThought         []string             `json:"chain_of_thought,omitempty"`
	AlternatePossibilities []AlternateDiagnosis `json:"alternate_possibilities,omitempty"`
	ErrorTriggers          []string             `json:"error_triggers,omitempty"`
	FalsePositiveAnalysis  string               `json:"false_positive_analysis,omitempty"`
	Counterarguments       string               `json:"counterarguments,omitempty"`
	BiasCheck              string               `json:"bias_check,omitempty"`
	TrustLevel             string               `json:"trust_level,omitempty"`
}

// Report is the normalised structured reply of one analysis invocation.
// Sections the model may omit are wrapped in [Section].
type Report struct {
	Patient               Patient                      `json:"patient"`
	Missing               []string                     `json:"missing,omitempty"`
	EvidenceSummaries     []string                     `json:"evidence_summaries,omitempty"`
	RankedConditions      Section[[]RankedCondition]   `json:"ranked_conditions"`
	OverallConfidence     float64                      `json:"overall_confidence,omitempty"`
	ConfidenceExplanation string                       `json:"confidence_explanation,omitempty"`
	LowConfidence         bool                         `json:"low_confidence,omitempty"`
	Disclaimer            string                       `json:"disclaimer,omitempty"`
	WebSources            []WebSource                  `json:"web_sources,omitempty"`
	PatientSummary        string                       `json:"patient_friendly_summary,omitempty"`
	Progression           Section[ProgressionAnalysis] `json:"progression"`
	QualityCheck          Section[QualityCheck]        `json:"quality_check"`
	Prognosis             Section[Prognosis]           `json:"prognosis"`
	ReasoningMetadata     Section[ReasoningMetadata]   `json:"reasoning_metadata"`
	FollowUpQuestions     []string                     `json:"follow_up_questions,omitempty"`

	// Fields the model extracted to backfill the input form.
	ExtractedTraits Section[[]TraitCandidate] `json:"extracted_hpo"`
	ExtractedSpeech Section[SpeechFeatures]   `json:"extracted_audio_features"`

	// Recovered marks a report produced by the fallback retry after a
	// caller-supplied instruction failed.
	Recovered bool `json:"-"`
}
