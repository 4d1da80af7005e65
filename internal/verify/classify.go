// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"fmt"

	"github.com/AeroFlaire/reference-checker/internal/similarity"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// unknownYearGap is the gap assigned when either year is missing. It
// exceeds any preprint-lag window, so a missing year can never verify a
// high-scoring candidate on its own.
const unknownYearGap = 999

// classify folds over the candidate list and produces a verdict plus the
// chosen candidate. Candidates are scored against the query title; scores
// below the rescue threshold get one substring-containment retry, scores
// below the discard threshold are skipped.
//
// A verified-threshold score with a zero year gap wins immediately. A gap
// within the preprint-lag window also wins, with an annotation. A larger
// gap marks the scan YEAR_MISMATCH but keeps looking for a clean match.
// Mid-range scores mark it FLAWED_REFERENCE, first candidate only, and
// never override YEAR_MISMATCH. Annotated candidates are fresh copies;
// the input list is never written to.
func classify(title string, year int, cands []types.Candidate, th types.Thresholds) (types.Verdict, *types.Candidate) {
	verdict := types.NotFound
	var match *types.Candidate

	for _, cand := range cands {
		score := similarity.Score(title, cand.Title)
		rescued := false
		if score < th.Rescue && similarity.SubstringRescue(title, cand.Title) {
			score = similarity.RescuedScore
			rescued = true
		}
		if score < th.Discard {
			continue
		}

		gap := unknownYearGap
		if year != 0 && cand.Year != 0 {
			gap = year - cand.Year
			if gap < 0 {
				gap = -gap
			}
		}

		switch {
		case score >= th.Verified:
			if gap == 0 {
				c := cand
				if rescued {
					c = cand.WithNote("Substring match (title merged with authors)")
				}
				return types.Verified, &c
			}
			if gap <= th.PreprintLagYears {
				c := cand.WithNote(fmt.Sprintf("Preprint lag (%d years)", gap))
				return types.Verified, &c
			}
			c := cand.WithNote(mismatchNote(year, cand.Year))
			verdict = types.YearMismatch
			match = &c

		case score >= th.Flawed:
			if verdict == types.NotFound {
				c := cand
				if rescued {
					c = cand.WithNote("Substring match (title merged with authors)")
				}
				verdict = types.Flawed
				match = &c
			}
		}
	}

	return verdict, match
}

// mismatchNote describes the year disagreement; either side of the
// comparison may be missing from the record.
func mismatchNote(cited, found int) string {
	switch {
	case cited == 0:
		return fmt.Sprintf("Edition mismatch (cited year unknown, found %d)", found)
	case found == 0:
		return fmt.Sprintf("Edition mismatch (cited %d, found year unknown)", cited)
	default:
		return fmt.Sprintf("Edition mismatch (cited %d, found %d)", cited, found)
	}
}
