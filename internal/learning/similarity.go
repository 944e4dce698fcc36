package learning

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityThreshold is the minimum score for two store names to be treated
// as the same merchant.
const SimilarityThreshold = 0.7

// containmentScore is assigned when one name contains the other, e.g. a POS
// descriptor with a branch suffix ("pick n pay menlyn" vs "pick n pay").
const containmentScore = 0.8

// NormalizeKey lower-cases and trims a store name.
func NormalizeKey(store string) string {
	return strings.ToLower(strings.TrimSpace(store))
}

// Similarity scores two store names in [0, 1]: 1 for equal keys, 0.8 when one
// contains the other, else 1 - editDistance/len(longer).
func Similarity(a, b string) float64 {
	s1, s2 := NormalizeKey(a), NormalizeKey(b)
	if s1 == s2 {
		return 1
	}
	if s1 == "" || s2 == "" {
		return 0
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return containmentScore
	}

	longer := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > longer {
		longer = n
	}
	dist := levenshtein.ComputeDistance(s1, s2)
	return 1 - float64(dist)/float64(longer)
}
