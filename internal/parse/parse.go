// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse turns free-text citations into structured search queries.
// The fast pass uses structured hints supplied with the citation; the slow
// pass asks a generative model to extract title, author, and year.
package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// Backend abstracts the generative parser API so tests can supply a mock.
type Backend interface {
	Parse(ctx context.Context, reference string) (Fields, error)
}

// Fields is the structured output of one parse.
type Fields struct {
	Title  string
	Author string
	Year   int
}

// garbagePhrases are prose indicators: a line containing one of these is
// running text from the paper body, not a reference, and is not worth a
// slow parse.
var garbagePhrases = []string{"we propose", "in this paper", "section 3", "section 4"}

// arxivYearRe captures the year digits of an arXiv ID ("arXiv:1312.6114"
// was submitted in 2013). Generative parsers get this wrong often enough
// that the override is applied unconditionally.
var arxivYearRe = regexp.MustCompile(`(?i)arxiv:(\d{2})\d{2}\.`)

// headerNoise lists phrases that PDF extraction leaks into reference lines.
var headerNoise = []string{"Publication date"}

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	searchKeyRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// Clean strips brace artifacts and extraction noise from a citation line
// and collapses the whitespace left behind.
func Clean(text string) string {
	text = strings.NewReplacer("{", "", "}", "").Replace(text)
	for _, phrase := range headerNoise {
		text = strings.ReplaceAll(text, phrase, "")
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// IsProse reports whether the text reads like paper body rather than a
// reference.
func IsProse(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range garbagePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ArxivYear derives the submission year from an embedded arXiv ID.
func ArxivYear(text string) (int, bool) {
	m := arxivYearRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	var yy int
	fmt.Sscanf(m[1], "%d", &yy)
	return 2000 + yy, true
}

// SearchKey reduces a field to the alphanumerics-and-spaces form the
// filtered search endpoints expect.
func SearchKey(s string) string {
	return strings.TrimSpace(searchKeyRe.ReplaceAllString(s, ""))
}

// TitleKey is SearchKey plus venue-tail trimming: parsed titles frequently
// drag in "Proceedings of ..." or "IEEE ..." suffixes that poison strict
// search.
func TitleKey(title string) string {
	if i := strings.Index(title, "Proceedings of"); i >= 0 {
		title = title[:i]
	}
	if i := strings.Index(title, "IEEE"); i >= 0 {
		title = title[:i]
	}
	return SearchKey(title)
}

// FromHints builds a query from structured hints, if they carry a usable
// title. Usable means longer than five characters; shorter titles are
// extraction fragments.
func FromHints(c types.Citation) (*types.Query, bool) {
	if c.Hints == nil || len(c.Hints.Title) <= 5 {
		return nil, false
	}
	q := &types.Query{
		Title:  c.Hints.Title,
		Author: c.Hints.Author,
		Year:   c.Hints.Year,
		Source: "structured-hint",
	}
	if year, ok := ArxivYear(c.Text); ok {
		q.Year = year
	}
	return q, true
}

// Generative runs the slow pass: one backend call, list and brace cleanup,
// and the arXiv year override. The returned query carries whatever the
// parser produced; empty title and author means the caller has nothing to
// search with.
func Generative(ctx context.Context, backend Backend, text string) (*types.Query, error) {
	fields, err := backend.Parse(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("parsing citation: %w", err)
	}

	q := &types.Query{
		Title:  Clean(fields.Title),
		Author: Clean(fields.Author),
		Year:   fields.Year,
		Source: "generative-parse",
	}
	if year, ok := ArxivYear(text); ok {
		q.Year = year
	}
	return q, nil
}
