package session

import "strings"

var meditationKeywords = []string{"relax", "stress"}

// ShouldSuggestMeditation reports whether a reply mentions relaxing or stress,
// case-insensitively.
func ShouldSuggestMeditation(reply string) bool {
	return containsAny(strings.ToLower(reply), meditationKeywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
