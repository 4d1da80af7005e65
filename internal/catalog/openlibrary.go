// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// openLibraryBase is the OpenLibrary book metadata endpoint prefix.
// Declared as a var so tests can substitute an httptest server.
var openLibraryBase = "https://openlibrary.org/isbn/"

// publishYearRe pulls a four-digit year out of OpenLibrary's free-form
// publish_date field ("Oct 1, 1988", "1988", "October 1988").
var publishYearRe = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// OpenLibrary resolves ISBN-13 identifiers to book metadata.
type OpenLibrary struct {
	Client    *http.Client
	UserAgent string
}

// ByISBN fetches book metadata for a bare 13-digit ISBN. A record without
// a title counts as a miss.
func (o *OpenLibrary) ByISBN(ctx context.Context, isbn string) (*types.Candidate, error) {
	reqURL := openLibraryBase + isbn + ".json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.UserAgent)

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenLibrary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenLibrary returned HTTP %d", resp.StatusCode)
	}

	var book openLibraryBook
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("parsing OpenLibrary response: %w", err)
	}
	if book.Title == "" {
		return nil, fmt.Errorf("ISBN %s has no title", isbn)
	}

	return &types.Candidate{
		Title: book.Title,
		Year:  publishYear(book.PublishDate),
		ID:    "https://openlibrary.org/isbn/" + isbn,
	}, nil
}

// publishYear extracts a year from a free-form publish date, or 0.
func publishYear(date string) int {
	m := publishYearRe.FindString(date)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

type openLibraryBook struct {
	Title       string `json:"title"`
	PublishDate string `json:"publish_date"`
}
