package compare

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Similarity scores two strings in [0, 1] with the Sørensen–Dice coefficient
// over character bigrams. Both strings are NFKC-normalized and case-folded
// first. The score is symmetric, 1 for equal non-empty strings and 0 when
// either string is empty.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	na, nb := fold(a), fold(b)
	if na == nb {
		return 1
	}

	ra, rb := []rune(na), []rune(nb)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	grams := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		grams[[2]rune{ra[i], ra[i+1]}]++
	}

	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		g := [2]rune{rb[i], rb[i+1]}
		if grams[g] > 0 {
			grams[g]--
			shared++
		}
	}

	return float64(2*shared) / float64(len(ra)-1+len(rb)-1)
}

// fold normalizes s for case-insensitive comparison. A Caser keeps state, so
// one is built per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

func equalStrings(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return fold(a) == fold(b)
}
