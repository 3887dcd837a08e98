package live

import "strings"

// riskTerms are the emergency phrases scanned for in the model's running
// commentary. Matching is case-insensitive substring search over the
// accumulated utterance, so a term split across fragments still matches
// once fully received.
var riskTerms = []string{
	"seizure",
	"choking",
	"stroke",
	"unconscious",
	"heart attack",
	"suicide",
	"blue lips",
	"not breathing",
}

// ScanRisk reports whether text mentions an acute emergency.
func ScanRisk(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range riskTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
