// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/AeroFlaire/reference-checker/internal/parse"
	"github.com/AeroFlaire/reference-checker/internal/similarity"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// IdentifierSniper resolves embedded canonical identifiers directly; the
// concrete implementation is sniper.Sniper.
type IdentifierSniper interface {
	Check(ctx context.Context, text string) (*types.Candidate, *types.Query, bool)
}

// ErrParserUnavailable wraps generative-parser failures. The citation
// still gets a NOT_FOUND result; the batch coordinator uses the error to
// detect a parser outage.
var ErrParserUnavailable = errors.New("generative parser unavailable")

// state enumerates the per-citation pipeline stages. Keeping the machine
// explicit makes the short-circuit paths assertable in tests.
type state int

const (
	stateSniper state = iota
	stateFastExtract
	stateSlowExtract
	stateSearch
	stateClassify
	stateBackstop
	stateDone
)

// Checker runs the verification state machine for one citation at a time.
// It holds no per-citation state; a single Checker is shared by all batch
// workers.
type Checker struct {
	Sniper  IdentifierSniper
	Index   Searcher
	Parser  parse.Backend
	Biblio  Bibliographic
	GreyLit GreyLit
	Config  types.VerifyConfig
}

// Drops reports whether the citation is rejected before the pipeline:
// out-of-bounds length after header-noise cleanup. Dropped citations
// produce no result. Prose detection is not a drop; a prose-flavored
// line may still carry a resolvable identifier, so it runs the sniper
// and fast pass and only skips the slow parse.
func (c *Checker) Drops(text string) bool {
	cleaned := parse.Clean(text)
	return len(cleaned) < c.Config.MinLength || len(cleaned) > c.Config.MaxLength
}

// Check runs the state machine: sniper, fast extraction from hints, slow
// generative extraction, search, classification, backstops. The returned
// error is non-nil only when the generative parser failed; the result is
// valid either way.
func (c *Checker) Check(ctx context.Context, citation types.Citation) (types.Result, error) {
	text := parse.Clean(citation.Text)

	var (
		query   *types.Query
		cands   []types.Candidate
		verdict types.Verdict
		match   *types.Candidate
		result  types.Result
		retErr  error
	)

	for st := stateSniper; st != stateDone; {
		switch st {
		case stateSniper:
			if cand, q, ok := c.Sniper.Check(ctx, text); ok {
				result = types.Result{Citation: citation, Verdict: types.Verified, Match: cand, Query: q}
				st = stateDone
				break
			}
			st = stateFastExtract

		case stateFastExtract:
			// Only a clean VERIFIED outcome ends the fast pass; anything
			// else gets a second chance from the generative parser.
			if q, ok := parse.FromHints(citation); ok {
				fastCands := waterfall(ctx, c.Index, q, c.Config.MaxCandidates)
				if v, m := classify(similarity.Fold(q.Title), q.Year, fastCands, c.Config.Thresholds); v == types.Verified {
					result = types.Result{Citation: citation, Verdict: v, Match: m, Query: q}
					st = stateDone
					break
				}
			}
			st = stateSlowExtract

		case stateSlowExtract:
			if parse.IsProse(text) {
				// Body prose is not worth a generative parse. Only the
				// suspicion check remains for it.
				result = c.unmatched(citation, nil)
				st = stateDone
				break
			}
			q, err := parse.Generative(ctx, c.Parser, text)
			if err != nil {
				result = types.Result{
					Citation: citation,
					Verdict:  types.NotFound,
					Note:     fmt.Sprintf("generative parse failed: %v", err),
				}
				retErr = fmt.Errorf("%w: %v", ErrParserUnavailable, err)
				st = stateDone
				break
			}
			query = q
			st = stateSearch

		case stateSearch:
			if query.Title == "" && query.Author == "" {
				// Nothing to feed the waterfall, but the grey-literature
				// backstop can still try the raw text.
				st = stateBackstop
				break
			}
			cands = waterfall(ctx, c.Index, query, c.Config.MaxCandidates)
			st = stateClassify

		case stateClassify:
			verdict, match = classify(similarity.Fold(query.Title), query.Year, cands, c.Config.Thresholds)
			if verdict != types.NotFound {
				result = types.Result{Citation: citation, Verdict: verdict, Match: match, Query: query}
				st = stateDone
				break
			}
			st = stateBackstop

		case stateBackstop:
			if cand, ok := backstop(ctx, c.Biblio, c.GreyLit, query, text, c.Config.Thresholds); ok {
				result = types.Result{Citation: citation, Verdict: types.Verified, Match: cand, Query: query}
				st = stateDone
				break
			}
			result = c.unmatched(citation, query)
			st = stateDone
		}
	}

	return result, retErr
}

// unmatched is the terminal verdict for a citation nothing could match:
// NOT_A_REFERENCE when the upstream hint flagged it as suspicious,
// NOT_FOUND otherwise.
func (c *Checker) unmatched(citation types.Citation, query *types.Query) types.Result {
	if citation.Hints != nil && citation.Hints.Suspicious {
		return types.Result{
			Citation: citation,
			Verdict:  types.NotAReference,
			Query:    query,
			Note:     "unstructured text with no database matches",
		}
	}
	return types.Result{Citation: citation, Verdict: types.NotFound, Query: query}
}
