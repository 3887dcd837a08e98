package live

import "testing"

func TestScanRisk(t *testing.T) {
	t.Parallel()

	positive := []string{
		"I see signs of a seizure starting.",
		"The patient appears UNCONSCIOUS.",
		"Lips are turning blue lips observed",
		"Possible heart attack in progress.",
	}
	for _, text := range positive {
		if !ScanRisk(text) {
			t.Errorf("ScanRisk(%q) = false, want true", text)
		}
	}

	negative := []string{
		"",
		"Gait is wide-based. Checking for Ataxia.",
		"Face looks masked. Good capture.",
		"The patient is breathing normally.",
	}
	for _, text := range negative {
		if ScanRisk(text) {
			t.Errorf("ScanRisk(%q) = true, want false", text)
		}
	}
}

// A term split across transcript fragments matches once the buffer has
// accumulated both halves.
func TestScanRisk_AcrossFragments(t *testing.T) {
	t.Parallel()

	b := NewUtteranceBuffer(5, 0)
	if ScanRisk(b.Append("The patient is not brea")) {
		t.Error("partial term must not match")
	}
	if !ScanRisk(b.Append("thing at all.")) {
		t.Error("completed term must match")
	}
}
