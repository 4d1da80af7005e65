// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the reference-checker
// pipeline: input citations, canonical queries, candidate records, verdicts,
// and the batch report.
package types

import "time"

// Citation is one raw reference string together with optional structured
// hints supplied by an upstream extractor (e.g. a GROBID-style service).
// A Citation is immutable once created.
type Citation struct {
	// Text is the citation exactly as it appears in the source material.
	Text string `json:"text" yaml:"text"`

	// Hints holds pre-extracted metadata, when the upstream extractor
	// produced any. Nil when the input is a bare string.
	Hints *Hints `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// Hints is metadata pre-extracted by an upstream document parser, distinct
// from metadata inferred by the generative parser.
type Hints struct {
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	Year   int    `json:"year,omitempty" yaml:"year,omitempty"`

	// Suspicious marks text the extractor considered likely body prose
	// rather than a reference entry.
	Suspicious bool `json:"suspicious,omitempty" yaml:"suspicious,omitempty"`
}

// Query is the normalized {title, author, year} triple that drives search.
// It is derived from Hints or from a generative parse, and may be computed
// twice for one citation (fast pass, then slow pass).
type Query struct {
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	Year   int    `json:"year,omitempty" yaml:"year,omitempty"`

	// Source records how the query was obtained: "structured-hint",
	// "generative-parse", or the sniper family name that resolved the
	// citation directly (e.g. "preprint identifier").
	Source string `json:"source" yaml:"source"`
}

// Candidate is a record returned by an external lookup. Candidates are
// immutable once fetched; classification annotates a fresh copy via
// WithNote rather than mutating in place.
type Candidate struct {
	// Title is the display title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// ID is the provider's canonical identifier or URL for the record.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Note carries provenance or classification commentary
	// (e.g. "Verified via OpenLibrary", "Preprint lag (2 years)").
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// WithNote returns a copy of the candidate with the note set. The receiver
// is left untouched so annotations never leak across candidates.
func (c Candidate) WithNote(note string) Candidate {
	c.Note = note
	return c
}

// Verdict classifies the outcome of verifying one citation.
type Verdict string

const (
	// Verified: the citation matches an authoritative record.
	Verified Verdict = "VERIFIED"

	// YearMismatch: the title matches with high confidence but the year
	// is off by more than the preprint-lag window (edition mismatch).
	YearMismatch Verdict = "YEAR_MISMATCH"

	// Flawed: a plausible but imperfect title match was found.
	Flawed Verdict = "FLAWED_REFERENCE"

	// NotFound: no database consulted produced an acceptable match.
	NotFound Verdict = "NOT_FOUND"

	// NotAReference: nothing matched and the upstream extractor flagged
	// the text as likely not a citation at all.
	NotAReference Verdict = "NOT_A_REFERENCE"
)

// Result is the verdict for one citation. Exactly one Result is produced
// per accepted citation; it is never mutated after creation.
type Result struct {
	Citation Citation   `json:"citation" yaml:"citation"`
	Verdict  Verdict    `json:"verdict" yaml:"verdict"`
	Match    *Candidate `json:"match,omitempty" yaml:"match,omitempty"`
	Query    *Query     `json:"query,omitempty" yaml:"query,omitempty"`
	Note     string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// Report holds the bucketed results of a batch run plus aggregate timing.
// Order within a bucket is arrival order, not input order.
type Report struct {
	Verified      []Result `json:"verified" yaml:"verified"`
	YearMismatch  []Result `json:"year_mismatch" yaml:"year_mismatch"`
	Flawed        []Result `json:"flawed_reference" yaml:"flawed_reference"`
	NotFound      []Result `json:"not_found" yaml:"not_found"`
	NotAReference []Result `json:"not_a_reference" yaml:"not_a_reference"`

	// Dropped counts citations rejected before the pipeline (too short,
	// too long, or header/footer noise). Dropped citations emit no Result.
	Dropped int `json:"dropped,omitempty" yaml:"dropped,omitempty"`

	// TotalDurationMs is the wall-clock duration of the batch.
	TotalDurationMs int64 `json:"total_duration_ms" yaml:"total_duration_ms"`

	// AverageMsPerCitation is TotalDurationMs divided by the number of
	// submitted citations, 0 for an empty batch.
	AverageMsPerCitation float64 `json:"average_ms_per_citation" yaml:"average_ms_per_citation"`
}

// Add appends r to the bucket selected by its verdict.
func (rep *Report) Add(r Result) {
	switch r.Verdict {
	case Verified:
		rep.Verified = append(rep.Verified, r)
	case YearMismatch:
		rep.YearMismatch = append(rep.YearMismatch, r)
	case Flawed:
		rep.Flawed = append(rep.Flawed, r)
	case NotAReference:
		rep.NotAReference = append(rep.NotAReference, r)
	default:
		rep.NotFound = append(rep.NotFound, r)
	}
}

// Total returns the number of Results across all buckets.
func (rep *Report) Total() int {
	return len(rep.Verified) + len(rep.YearMismatch) + len(rep.Flawed) +
		len(rep.NotFound) + len(rep.NotAReference)
}

// SetTiming fills the aggregate timing fields from a wall-clock duration
// and the number of submitted citations.
func (rep *Report) SetTiming(elapsed time.Duration, submitted int) {
	rep.TotalDurationMs = elapsed.Milliseconds()
	if submitted > 0 {
		rep.AverageMsPerCitation = float64(elapsed.Milliseconds()) / float64(submitted)
	}
}
