// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"strings"

	"github.com/AeroFlaire/reference-checker/internal/similarity"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// Bibliographic is the free-form backstop surface; the concrete client is
// catalog.Crossref.
type Bibliographic interface {
	QueryBibliographic(ctx context.Context, query string) (*types.Candidate, error)
}

// GreyLit is the grey-literature backstop surface; the concrete client is
// catalog.SemanticScholar.
type GreyLit interface {
	SearchOne(ctx context.Context, query string) (*types.Candidate, error)
}

// backstopQueryMin is the shortest query worth sending to Crossref.
const backstopQueryMin = 10

// greyLitQueryMin is the shortest title+author query worth sending to the
// grey-literature index; below it the raw citation text is used instead.
const greyLitQueryMin = 15

// greyLitTextCap bounds how much raw citation text goes into the
// grey-literature query.
const greyLitTextCap = 200

// backstop is the last resort after the waterfall found nothing usable.
// Crossref goes first with the parsed title and author; its match must
// beat the backstop threshold. The grey-literature index goes second and
// additionally accepts a candidate whose title appears verbatim in the
// raw citation, which is how datasets and tech reports usually match.
// Both lookups fail open.
func backstop(ctx context.Context, biblio Bibliographic, grey GreyLit, q *types.Query, rawText string, th types.Thresholds) (*types.Candidate, bool) {
	queryText := strings.TrimSpace(q.Title + " " + q.Author)

	if biblio != nil && len(queryText) > backstopQueryMin {
		if cand, err := biblio.QueryBibliographic(ctx, queryText); err == nil {
			if similarity.Score(q.Title, cand.Title) > th.Backstop {
				c := cand.WithNote("Found via Crossref (backstop)")
				return &c, true
			}
		}
	}

	if grey != nil {
		greyQuery := queryText
		if len(greyQuery) < greyLitQueryMin {
			greyQuery = rawText
			if len(greyQuery) > greyLitTextCap {
				greyQuery = greyQuery[:greyLitTextCap]
			}
		}
		if cand, err := grey.SearchOne(ctx, greyQuery); err == nil {
			titleInText := cand.Title != "" &&
				strings.Contains(strings.ToLower(rawText), strings.ToLower(similarity.Fold(cand.Title)))
			if similarity.Score(q.Title, cand.Title) > th.Backstop || titleInText {
				return cand, true
			}
		}
	}

	return nil, false
}
