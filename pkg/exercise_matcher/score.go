package exercise_matcher

import (
	"math"
	"strings"
)

// Per-word-pair weights used by Score.
const (
	weightExact          = 1.0
	weightSubstring      = 0.8
	weightSynonym        = 0.95
	weightSynonymPartial = 0.7
)

// Score returns a similarity between 0 and 100 for two free-text strings.
//
// Both are normalized first. Equal strings score 100, containment in either
// direction 90. Otherwise every word of a is compared with every word of b
// and the accumulated weight is divided by the longer word count. Empty
// input always scores 0.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	return scoreNormalized(na, nb)
}

func scoreNormalized(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 90
	}

	wordsA, wordsB := tokens(a), tokens(b)
	var total float64
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			total += pairWeight(wa, wb)
		}
	}
	if total == 0 {
		return 0
	}

	longest := max(len(wordsA), len(wordsB))
	return math.Min(100, total/float64(longest)*100)
}

func pairWeight(a, b string) float64 {
	switch {
	case a == b:
		return weightExact
	case strings.Contains(a, b) || strings.Contains(b, a):
		return weightSubstring
	case AreSynonyms(a, b):
		return weightSynonym
	case synonymOverlap(a, b):
		return weightSynonymPartial
	default:
		return 0
	}
}
