package analysis

import (
	"errors"
	"testing"
)

const sampleReply = `{
  "patient": {"age": 42, "age_unit": "years", "sex": "male", "note": "tremor"},
  "ranked_conditions": [
    {"name": "Parkinson's disease", "estimated_probability": 0.8, "confidence": 0.85}
  ],
  "overall_confidence": 0.8,
  "extracted_hpo": [{"term": "Tremor", "code": "HP:0002322", "probability": 0.9, "evidence": []}],
  "extracted_audio_features": {"speech_rate": "low", "f0_mean": 120, "pause_rate": "high", "articulation_score": 0.6},
  "progression": null
}`

func TestParseReport_FencedAndBareEquivalent(t *testing.T) {
	t.Parallel()

	bare, err := ParseReport(sampleReply)
	if err != nil {
		t.Fatalf("parse bare: %v", err)
	}
	fenced, err := ParseReport("Here is the report:\n```json\n" + sampleReply + "\n```\nLet me know.")
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}

	if bare.Patient != fenced.Patient {
		t.Errorf("patient differs: %+v vs %+v", bare.Patient, fenced.Patient)
	}
	bareRanked, _ := bare.RankedConditions.Get()
	fencedRanked, _ := fenced.RankedConditions.Get()
	if len(bareRanked) != 1 || len(fencedRanked) != 1 || bareRanked[0].Name != fencedRanked[0].Name {
		t.Errorf("ranked conditions differ: %+v vs %+v", bareRanked, fencedRanked)
	}
}

func TestParseReport_Sections(t *testing.T) {
	t.Parallel()

	report, err := ParseReport(sampleReply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if report.Progression.Present() {
		t.Error("explicit null progression must be absent")
	}
	if report.Prognosis.Present() {
		t.Error("missing prognosis key must be absent")
	}
	traits, ok := report.ExtractedTraits.Get()
	if !ok || len(traits) != 1 || traits[0].Code != "HP:0002322" {
		t.Errorf("extracted traits: %+v (present=%v)", traits, ok)
	}
	speech, ok := report.ExtractedSpeech.Get()
	if !ok || speech.SpeechRate != "low" || speech.F0Mean != 120 {
		t.Errorf("extracted speech: %+v (present=%v)", speech, ok)
	}
}

func TestParseReport_NumericFlexFields(t *testing.T) {
	t.Parallel()

	report, err := ParseReport(`{"patient":{},"extracted_audio_features":{"speech_rate":140,"f0_mean":120,"pause_rate":"high","articulation_score":0.6}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	speech, ok := report.ExtractedSpeech.Get()
	if !ok || speech.SpeechRate != "140" {
		t.Errorf("numeric speech_rate: got %q (present=%v)", speech.SpeechRate, ok)
	}
}

func TestParseReport_Malformed(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "  ", "The patient appears healthy.", `{"patient": `} {
		_, err := ParseReport(text)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParseReport(%q): expected ParseError, got %v", text, err)
		}
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	t.Parallel()

	got := ExtractJSON("sure thing { \"a\": 1 } hope that helps")
	if got != `{ "a": 1 }` {
		t.Errorf("extract: got %q", got)
	}
}
