// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/AeroFlaire/reference-checker/internal/httputil"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// semanticBase is the Semantic Scholar Graph API base. Declared as a var
// so tests can substitute an httptest server.
var semanticBase = "https://api.semanticscholar.org/graph/v1/paper"

const semanticFields = "title,year,url,externalIds"

// SemanticScholar queries the Semantic Scholar Graph API. It serves two
// roles: secondary index for identifier lookups the primary index missed,
// and grey-literature backstop for queries nothing else matched.
//
// The free tier is tightly rate limited, so every request first waits on
// the shared Limiter when one is configured.
type SemanticScholar struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	// Limiter spaces out requests across all workers; nil disables pacing.
	Limiter *rate.Limiter
}

// PaperByID fetches one paper by a prefixed identifier such as
// "ARXIV:1406.2661" or "DOI:10.1145/3292500". A response without a title
// counts as a miss.
func (s *SemanticScholar) PaperByID(ctx context.Context, paperID string) (*types.Candidate, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{"fields": {semanticFields}}
	reqURL := semanticBase + "/" + url.PathEscape(paperID) + "?" + params.Encode()

	var paper semanticPaper
	if err := s.get(ctx, reqURL, &paper); err != nil {
		return nil, err
	}
	if paper.Title == "" {
		return nil, fmt.Errorf("paper %s has no title", paperID)
	}

	c := toCandidate(paper)
	return &c, nil
}

// SearchOne runs a relevance search and returns only the top match, the
// shape the grey-literature backstop needs.
func (s *SemanticScholar) SearchOne(ctx context.Context, query string) (*types.Candidate, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"query":  {query},
		"limit":  {"1"},
		"fields": {semanticFields},
	}
	reqURL := semanticBase + "/search?" + params.Encode()

	var sr semanticSearchResponse
	if err := s.get(ctx, reqURL, &sr); err != nil {
		return nil, err
	}
	if len(sr.Data) == 0 || sr.Data[0].Title == "" {
		return nil, fmt.Errorf("no results")
	}

	c := toCandidate(sr.Data[0])
	return &c, nil
}

func (s *SemanticScholar) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Wait(ctx)
}

func (s *SemanticScholar) get(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return nil
}

func toCandidate(p semanticPaper) types.Candidate {
	id := p.URL
	if id == "" {
		id = p.PaperID
	}
	return types.Candidate{
		Title: p.Title,
		Year:  p.Year,
		ID:    id,
	}
}

// Semantic Scholar API JSON structures.
type semanticSearchResponse struct {
	Data []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
	URL     string `json:"url"`
}
