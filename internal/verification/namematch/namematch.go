// Package namematch normalizes and fuzzily compares person names, producing a
// similarity score in [0,100].
//
// The comparison counts a word match when two tokens are equal or one contains
// the other. Containment keeps compound surnames and omitted middle names from
// failing the match, at the cost of overstating similarity on short common
// words. The heuristic is load-bearing: changing it changes approval and
// rejection outcomes downstream.
package namematch

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, collapses internal whitespace and trims.
func Normalize(name string) string {
	lowered := strings.ToLower(name)
	stripped, _, err := transform.String(stripDiacritics, lowered)
	if err != nil {
		stripped = lowered
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// Compare scores the similarity of two names in [0,100]. An exact normalized
// match scores 100; otherwise the score is the matched-token count over the
// larger token count, scaled to 100 and rounded.
func Compare(a, b string) int {
	na := Normalize(a)
	nb := Normalize(b)

	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	wordsA := strings.Fields(na)
	wordsB := strings.Fields(nb)

	// Counting from one side only would make the score depend on argument
	// order when tokens are concatenated or duplicated on one side. Taking
	// the better direction keeps compare(a,b) == compare(b,a).
	matches := countMatches(wordsA, wordsB)
	if reverse := countMatches(wordsB, wordsA); reverse > matches {
		matches = reverse
	}

	maxLen := len(wordsA)
	if len(wordsB) > maxLen {
		maxLen = len(wordsB)
	}

	score := int(math.Round(float64(matches) / float64(maxLen) * 100))
	if score > 100 {
		score = 100
	}
	return score
}

// countMatches counts tokens of a that equal or contain-in-either-direction
// some token of b.
func countMatches(a, b []string) int {
	matches := 0
	for _, wa := range a {
		for _, wb := range b {
			if wa == wb || strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				matches++
				break
			}
		}
	}
	return matches
}
