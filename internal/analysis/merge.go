package analysis

// MergeExtracted folds model-extracted traits and speech features back into
// the input, so a follow-up refinement starts from what the model already
// found. The original input is never mutated; a copy is returned.
func MergeExtracted(in Input, report Report) Input {
	out := in
	if traits, ok := report.ExtractedTraits.Get(); ok && len(traits) > 0 {
		out.TraitCandidates = append([]TraitCandidate(nil), traits...)
	}
	if features, ok := report.ExtractedSpeech.Get(); ok {
		out.SpeechFeatures = features
	}
	return out
}

// RefineInput returns a copy of the input with the user's answers to the
// follow-up questions appended to the clinical note.
func RefineInput(in Input, answers string) Input {
	out := in
	out.Patient.Note = in.Patient.Note + "\n\n*** USER FOLLOW-UP RESPONSES ***\n" + answers
	return out
}
