// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity computes normalized string similarity for title
// matching, plus the substring-containment rescue rule that compensates
// for extractors merging title and venue into one field.
package similarity

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// rescueMinLength is the minimum flattened length for the substring rescue;
// tiny titles contained in longer strings are too often coincidence.
const rescueMinLength = 20

// RescuedScore is the fixed score assigned when SubstringRescue fires.
const RescuedScore = 90

// Score returns a similarity score in [0,100] between a and b, defined as
// round(100 * (1 - editDistance/maxLen)) over the case-folded inputs.
// It returns 0 when either input is empty. Score is symmetric and
// Score(x, x) == 100 for any non-empty x.
func Score(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	dist := editDistance(ra, rb)
	maxLen := max(len(ra), len(rb))
	return int(math.Round(100 * (1 - float64(dist)/float64(maxLen))))
}

// editDistance computes the Levenshtein distance between two rune slices
// using the two-row dynamic programming formulation.
func editDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, ca := range a {
		curr[0] = i + 1
		for j, cb := range b {
			cost := 0
			if ca != cb {
				cost = 1
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// SubstringRescue reports whether the shorter of a and b, flattened to
// lowercase alphanumerics, is a contiguous substring of the flattened
// longer string and long enough to be meaningful. Callers raise a
// sub-threshold score to RescuedScore when it fires.
func SubstringRescue(a, b string) bool {
	fa := Flatten(a)
	fb := Flatten(b)
	if len(fa) > len(fb) {
		fa, fb = fb, fa
	}
	return len(fa) > rescueMinLength && strings.Contains(fb, fa)
}

// Flatten lowercases s and strips everything but letters and digits.
func Flatten(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// foldTransformer decomposes characters (NFKD) and drops combining marks,
// mapping text like "ùëò" to its plain ASCII skeleton.
var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Fold normalizes fancy Unicode to plain ASCII: compatibility-decompose,
// drop combining marks, then drop any rune still outside the ASCII range.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	var sb strings.Builder
	for _, r := range folded {
		if r < 128 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
