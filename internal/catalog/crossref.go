// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// crossrefBase is the Crossref works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossrefBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API, used as the bibliographic
// backstop when the primary index finds nothing.
type Crossref struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email     string
	UserAgent string
}

// QueryBibliographic runs a free-form bibliographic query and returns the
// top match only.
func (c *Crossref) QueryBibliographic(ctx context.Context, query string) (*types.Candidate, error) {
	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {"1"},
	}
	if c.Email != "" {
		params.Set("mailto", c.Email)
	}

	reqURL := crossrefBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("parsing Crossref response: %w", err)
	}
	if len(cr.Message.Items) == 0 {
		return nil, fmt.Errorf("no results")
	}

	item := cr.Message.Items[0]
	if len(item.Title) == 0 || item.Title[0] == "" {
		return nil, fmt.Errorf("top result has no title")
	}

	return &types.Candidate{
		Title: item.Title[0],
		Year:  item.year(),
		ID:    item.URL,
	}, nil
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefItem `json:"items"`
}

type crossrefItem struct {
	Title     []string      `json:"title"`
	URL       string        `json:"URL"`
	Published crossrefDate  `json:"published"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// year digs the publication year out of the nested date-parts structure,
// returning 0 when absent.
func (i crossrefItem) year() int {
	if len(i.Published.DateParts) > 0 && len(i.Published.DateParts[0]) > 0 {
		return i.Published.DateParts[0][0]
	}
	return 0
}
