// Package similarity provides approximate string similarity scores used by
// the search rankers.
//
// All ratio functions return a score in the [0, 100] range except
// SequenceRatio, which returns [0, 1] to match the classic Ratcliff/Obershelp
// definition.
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/pmezard/go-difflib/difflib"
)

// PartialScorer scores how well the shorter of two strings fits anywhere
// inside the longer one. Implementations return values in [0, 100].
type PartialScorer interface {
	PartialRatio(a, b string) float64
}

// PartialScorerFunc adapts a plain function to PartialScorer.
type PartialScorerFunc func(a, b string) float64

// PartialRatio calls f(a, b).
func (f PartialScorerFunc) PartialRatio(a, b string) float64 {
	return f(a, b)
}

// Default is the Levenshtein-family partial scorer used when none is configured.
var Default PartialScorer = PartialScorerFunc(PartialRatio)

// Ratio returns the Indel-normalized similarity of a and b:
// 100 * 2*LCS(a, b) / (len(a) + len(b)), measured in runes.
// Two empty strings are identical (100).
func Ratio(a, b string) float64 {
	la, lb := runeLen(a), runeLen(b)
	if la+lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := edlib.LCS(a, b)
	return 100 * float64(2*lcs) / float64(la+lb)
}

// PartialRatio returns the best Ratio between the shorter string and every
// substring of the longer string with the same length, including the
// partially overlapping windows at both edges.
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	best := partialWindows(ra, rb)
	if best < 100 && len(ra) == len(rb) {
		if alt := partialWindows(rb, ra); alt > best {
			best = alt
		}
	}
	return best
}

// partialWindows slides short over long and keeps the best Ratio.
func partialWindows(short, long []rune) float64 {
	n, m := len(short), len(long)
	s := string(short)
	best := 0.0

	consider := func(window []rune) bool {
		if r := Ratio(s, string(window)); r > best {
			best = r
		}
		return best >= 100
	}

	for i := 1; i < n; i++ {
		if consider(long[:i]) {
			return best
		}
	}
	for i := 0; i <= m-n; i++ {
		if consider(long[i : i+n]) {
			return best
		}
	}
	for i := m - n + 1; i < m; i++ {
		if consider(long[i:]) {
			return best
		}
	}
	return best
}

// TokenSetRatio compares the sets of words in a and b, ignoring case,
// punctuation, word order and repeated words. If one token set is contained
// in the other the score is 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var intersect, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersect = append(intersect, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	if len(intersect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	sort.Strings(intersect)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(intersect, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if sect != "" {
		if r := Ratio(sect, combinedA); r > best {
			best = r
		}
		if r := Ratio(sect, combinedB); r > best {
			best = r
		}
	}
	return best
}

// SequenceRatio returns the Ratcliff/Obershelp similarity of a and b in
// [0, 1]: twice the number of characters in matching blocks divided by the
// total number of characters. Comparison is rune based and case sensitive.
func SequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(process(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// process lowercases s and turns every non letter/digit rune into a space.
func process(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
}

func runeLen(s string) int {
	return len([]rune(s))
}
