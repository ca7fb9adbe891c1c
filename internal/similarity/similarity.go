package similarity

import "strings"

// NormalizeText lowercases, trims and collapses whitespace. Both the
// deduplicator and the search cache compare strings in this form.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Jaccard returns the word-level Jaccard similarity of two strings:
// |intersection| / |union| over their whitespace-separated token sets.
// Two empty strings score 0, not 1, so blank inputs never count as a match.
func Jaccard(a, b string) float64 {
	setA := tokenSet(NormalizeText(a))
	setB := tokenSet(NormalizeText(b))

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
