package analysis

import "testing"

func TestMergeExtracted(t *testing.T) {
	t.Parallel()

	in := Input{
		Patient:        Patient{Note: "original"},
		SpeechFeatures: CleanSpeechFeatures,
	}
	report := Report{
		ExtractedTraits: Of([]TraitCandidate{{Term: "Ataxia", Code: "HP:0001251", Probability: 0.7}}),
		ExtractedSpeech: Of(SpeechFeatures{SpeechRate: "low", F0Mean: 115, PauseRate: "high", ArticulationScore: 0.5}),
	}

	merged := MergeExtracted(in, report)
	if len(merged.TraitCandidates) != 1 || merged.TraitCandidates[0].Code != "HP:0001251" {
		t.Errorf("traits not merged: %+v", merged.TraitCandidates)
	}
	if merged.SpeechFeatures.SpeechRate != "low" {
		t.Errorf("speech features not merged: %+v", merged.SpeechFeatures)
	}

	// Original must stay untouched.
	if len(in.TraitCandidates) != 0 || in.SpeechFeatures != CleanSpeechFeatures {
		t.Errorf("input mutated: %+v", in)
	}
}

func TestMergeExtracted_AbsentSectionsKeepInput(t *testing.T) {
	t.Parallel()

	in := Input{
		TraitCandidates: []TraitCandidate{{Term: "Tremor", Code: "HP:0002322"}},
		SpeechFeatures:  SpeechFeatures{SpeechRate: "low"},
	}
	merged := MergeExtracted(in, Report{ExtractedTraits: Of([]TraitCandidate{})})

	if len(merged.TraitCandidates) != 1 || merged.TraitCandidates[0].Code != "HP:0002322" {
		t.Errorf("empty extraction must not clobber manual candidates: %+v", merged.TraitCandidates)
	}
	if merged.SpeechFeatures.SpeechRate != "low" {
		t.Errorf("absent speech section must keep manual features: %+v", merged.SpeechFeatures)
	}
}

func TestRefineInput(t *testing.T) {
	t.Parallel()

	in := Input{Patient: Patient{Note: "base note"}}
	refined := RefineInput(in, "Symptoms started 3 months ago.")

	want := "base note\n\n*** USER FOLLOW-UP RESPONSES ***\nSymptoms started 3 months ago."
	if refined.Patient.Note != want {
		t.Errorf("refined note: got %q", refined.Patient.Note)
	}
	if in.Patient.Note != "base note" {
		t.Errorf("input mutated: %q", in.Patient.Note)
	}
}
