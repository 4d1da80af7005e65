// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify implements the reference verification pipeline: the
// search waterfall, the candidate classifier, the per-citation state
// machine, and the batch coordinator that runs it with bounded
// parallelism.
package verify

import (
	"context"

	"github.com/AeroFlaire/reference-checker/internal/parse"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// Searcher is the primary-index surface the waterfall needs. The concrete
// client is catalog.OpenAlex; tests supply deterministic stubs. An error
// from either call reads as an empty result.
type Searcher interface {
	SearchFiltered(ctx context.Context, title, author string) ([]types.Candidate, error)
	SearchGeneral(ctx context.Context, text string) ([]types.Candidate, error)
}

// waterfall tries the search strategies in fixed order and stops at the
// first non-empty candidate set: strict title+author, general free-text,
// author only, strict title only. The strict steps use keys stripped to
// alphanumerics; the general step wants the raw title for relevance
// ranking. At most max candidates are returned.
func waterfall(ctx context.Context, index Searcher, q *types.Query, max int) []types.Candidate {
	title := parse.TitleKey(q.Title)
	author := parse.SearchKey(q.Author)

	var cands []types.Candidate
	if title != "" && author != "" {
		cands, _ = index.SearchFiltered(ctx, title, author)
	}
	if len(cands) == 0 && q.Title != "" {
		cands, _ = index.SearchGeneral(ctx, q.Title)
	}
	if len(cands) == 0 && author != "" {
		cands, _ = index.SearchFiltered(ctx, "", author)
	}
	if len(cands) == 0 && title != "" {
		cands, _ = index.SearchFiltered(ctx, title, "")
	}

	if max > 0 && len(cands) > max {
		cands = cands[:max]
	}
	return cands
}
