// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog provides clients for the external bibliographic sources
// consulted during reference verification: OpenAlex (primary index),
// Semantic Scholar (secondary index and grey literature), Crossref
// (bibliographic backstop), OpenLibrary (books), and the WG21/IETF
// standards link services.
//
// Every client follows the same fail-open contract: a transport error,
// non-OK status, or malformed body yields (nil, error), and callers treat
// the error as an empty result rather than propagating it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// openAlexBase is the OpenAlex Works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexBase = "https://api.openalex.org/works"

// openAlexSelect restricts responses to the fields verification needs.
const openAlexSelect = "id,display_name,publication_year"

// OpenAlex queries the OpenAlex Works API, the primary index for both
// identifier lookups and the search waterfall.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email     string
	UserAgent string
	// Cache, when non-nil, short-circuits repeated identical requests.
	Cache *Cache
}

// SearchFiltered queries with field filters built from the non-empty
// arguments (title.search, raw_author_name.search).
func (o *OpenAlex) SearchFiltered(ctx context.Context, title, author string) ([]types.Candidate, error) {
	var filters []string
	if title != "" {
		filters = append(filters, "title.search:"+title)
	}
	if author != "" {
		filters = append(filters, "raw_author_name.search:"+author)
	}
	if len(filters) == 0 {
		return nil, fmt.Errorf("no filters provided")
	}

	params := url.Values{"filter": {strings.Join(filters, ",")}}
	return o.works(ctx, params)
}

// SearchGeneral runs a free-text relevance query over the whole record.
func (o *OpenAlex) SearchGeneral(ctx context.Context, text string) ([]types.Candidate, error) {
	if text == "" {
		return nil, fmt.Errorf("empty search text")
	}
	params := url.Values{"search": {text}}
	return o.works(ctx, params)
}

// LookupArxiv fetches works carrying the given arXiv identifier.
func (o *OpenAlex) LookupArxiv(ctx context.Context, arxivID string) ([]types.Candidate, error) {
	params := url.Values{"filter": {"ids.arxiv:" + arxivID}}
	return o.works(ctx, params)
}

// LookupDOI fetches works carrying the given DOI (bare form, no resolver
// prefix; OpenAlex stores the prefixed form).
func (o *OpenAlex) LookupDOI(ctx context.Context, doi string) ([]types.Candidate, error) {
	params := url.Values{"filter": {"doi:https://doi.org/" + doi}}
	return o.works(ctx, params)
}

// works issues the request and converts the response into Candidates.
func (o *OpenAlex) works(ctx context.Context, params url.Values) ([]types.Candidate, error) {
	params.Set("select", openAlexSelect)
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	key := params.Encode()
	if o.Cache != nil {
		if cached, ok := o.Cache.Get("openalex", key); ok {
			return cached, nil
		}
	}

	reqURL := openAlexBase + "?" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.UserAgent)

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	candidates := make([]types.Candidate, 0, len(oar.Results))
	for _, work := range oar.Results {
		candidates = append(candidates, types.Candidate{
			Title: work.DisplayName,
			Year:  work.PublicationYear,
			ID:    work.ID,
		})
	}

	if o.Cache != nil {
		o.Cache.Put("openalex", key, candidates)
	}
	return candidates, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	PublicationYear int    `json:"publication_year"`
}
