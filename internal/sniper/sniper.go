// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sniper short-circuits verification for citations that carry a
// machine-readable identifier. A citation with a resolvable standards
// number, ISBN, arXiv ID, or DOI does not need fuzzy matching at all: the
// identifier either resolves in its registry or it does not.
package sniper

import (
	"context"
	"regexp"
	"strings"

	"github.com/AeroFlaire/reference-checker/internal/catalog"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// Family detects and resolves one class of identifier. Detect is pure
// string work; Resolve hits the family's registry. A Resolve error is a
// miss, never a failure: the citation falls through to the next family
// and eventually to the search pipeline.
type Family interface {
	Name() string
	Detect(text string) (id string, ok bool)
	Resolve(ctx context.Context, id string) (*types.Candidate, error)
}

// Sniper runs families in priority order. Standards numbers go first
// because committee drafts routinely fail DOI and index lookups; the
// broad DOI pattern goes last because it overlaps everything else.
type Sniper struct {
	families []Family
}

// Narrow views of the catalog clients, one per lookup the families need.
type standardsChecker interface {
	CheckCommitteePaper(ctx context.Context, paperID string) (*types.Candidate, error)
	CheckRFC(ctx context.Context, rfcNumber string) (*types.Candidate, error)
}

type bookLookup interface {
	ByISBN(ctx context.Context, isbn string) (*types.Candidate, error)
}

type indexLookup interface {
	LookupArxiv(ctx context.Context, arxivID string) ([]types.Candidate, error)
	LookupDOI(ctx context.Context, doi string) ([]types.Candidate, error)
}

type paperLookup interface {
	PaperByID(ctx context.Context, paperID string) (*types.Candidate, error)
}

// New assembles the default family chain over the given catalog clients.
func New(standards *catalog.Standards, books *catalog.OpenLibrary, index *catalog.OpenAlex, fallback *catalog.SemanticScholar) *Sniper {
	return &Sniper{families: []Family{
		&committeePaper{standards: standards},
		&rfcNumber{standards: standards},
		&isbn{books: books},
		&arxivID{index: index, fallback: fallback},
		&doi{index: index, fallback: fallback},
	}}
}

// Check tries each family against the citation text. The first family
// whose identifier resolves wins; the returned query records which family
// matched. ok is false when no family detected anything or every detected
// identifier failed to resolve.
func (s *Sniper) Check(ctx context.Context, text string) (match *types.Candidate, query *types.Query, ok bool) {
	for _, f := range s.families {
		id, found := f.Detect(text)
		if !found {
			continue
		}
		cand, err := f.Resolve(ctx, id)
		if err != nil {
			continue
		}
		return cand, &types.Query{Source: f.Name()}, true
	}
	return nil, nil, false
}

// --- standards paper (wg21.link) ---

// committeePaperRe matches C++ committee paper numbers: "P0380R1",
// "N4861", "p2300 r7".
var committeePaperRe = regexp.MustCompile(`(?i)\b([NP])\s*(\d{4}(?:R\d+)?)\b`)

type committeePaper struct {
	standards standardsChecker
}

func (c *committeePaper) Name() string { return "standards paper" }

func (c *committeePaper) Detect(text string) (string, bool) {
	m := committeePaperRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]) + strings.ToUpper(m[2]), true
}

func (c *committeePaper) Resolve(ctx context.Context, id string) (*types.Candidate, error) {
	return c.standards.CheckCommitteePaper(ctx, id)
}

// --- RFC (IETF datatracker) ---

// rfcRe matches "RFC 793", "RFC-1234", "rfc9110".
var rfcRe = regexp.MustCompile(`(?i)\bRFC[\s-]?(\d{1,5})\b`)

type rfcNumber struct {
	standards standardsChecker
}

func (r *rfcNumber) Name() string { return "internet standard" }

func (r *rfcNumber) Detect(text string) (string, bool) {
	m := rfcRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (r *rfcNumber) Resolve(ctx context.Context, id string) (*types.Candidate, error) {
	return r.standards.CheckRFC(ctx, id)
}

// --- ISBN (OpenLibrary) ---

// isbnRe matches ISBN-13s with or without the "ISBN" prefix and with
// arbitrary hyphenation: "ISBN: 978-0-321-56384-2", "9780321563842".
var isbnRe = regexp.MustCompile(`(?i)\b(?:ISBN[:\s]+)?((?:978|979)[0-9- ]{10,17})\b`)

type isbn struct {
	books bookLookup
}

func (i *isbn) Name() string { return "book identifier" }

func (i *isbn) Detect(text string) (string, bool) {
	m := isbnRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	digits := strings.NewReplacer("-", "", " ", "").Replace(m[1])
	if len(digits) != 13 {
		return "", false
	}
	return digits, true
}

func (i *isbn) Resolve(ctx context.Context, id string) (*types.Candidate, error) {
	return i.books.ByISBN(ctx, id)
}

// --- arXiv (OpenAlex, Semantic Scholar fallback) ---

// arxivRe matches modern arXiv IDs prefixed with the word: "arXiv:1406.2661",
// "arxiv 2301.07041". Bare IDs are too ambiguous to snipe on.
var arxivRe = regexp.MustCompile(`(?i)arxiv\s*[:\s]\s*(\d{4}\.\d{4,5})`)

type arxivID struct {
	index    indexLookup
	fallback paperLookup
}

func (a *arxivID) Name() string { return "preprint identifier" }

func (a *arxivID) Detect(text string) (string, bool) {
	m := arxivRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (a *arxivID) Resolve(ctx context.Context, id string) (*types.Candidate, error) {
	if cands, err := a.index.LookupArxiv(ctx, id); err == nil && len(cands) > 0 {
		return &cands[0], nil
	}
	return a.fallback.PaperByID(ctx, "ARXIV:"+id)
}

// --- DOI (OpenAlex, Semantic Scholar fallback) ---

// doiRe matches bare DOIs. Trailing sentence punctuation is stripped after
// matching because the character class legitimately includes "." and ")".
var doiRe = regexp.MustCompile(`\b(10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+)\b`)

// acmPlaceholderDOI is the template string ACM ships in its LaTeX sample
// bibliography. It shows up verbatim in real reference lists and resolves
// to the sample article, so sniping on it would verify garbage.
const acmPlaceholderDOI = "10.1145/nnnnnnn"

type doi struct {
	index    indexLookup
	fallback paperLookup
}

func (d *doi) Name() string { return "digital object identifier" }

func (d *doi) Detect(text string) (string, bool) {
	m := doiRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	id := strings.TrimRight(m[1], ".,)")
	if strings.HasPrefix(strings.ToLower(id), acmPlaceholderDOI) {
		return "", false
	}
	return id, true
}

func (d *doi) Resolve(ctx context.Context, id string) (*types.Candidate, error) {
	if cands, err := d.index.LookupDOI(ctx, id); err == nil && len(cands) > 0 {
		return &cands[0], nil
	}
	return d.fallback.PaperByID(ctx, "DOI:"+id)
}
