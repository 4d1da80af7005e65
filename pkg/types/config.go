// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "reference-checker/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CatalogConfig holds settings for the bibliographic catalog clients.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// CacheDir, when non-empty, enables an on-disk cache of provider
	// responses under this directory.
	CacheDir string `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`
}

// ParserConfig holds settings for the generative parser backend.
type ParserConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the model identifier (e.g. "llama3").
	Model string `json:"model" yaml:"model"`

	// BaseURL is the parser service base URL (default "http://localhost:11434").
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// Thresholds groups the similarity cut-offs used during classification.
// The backstop values are empirically tuned; they are configuration, not
// semantics.
type Thresholds struct {
	// Verified is the minimum score for a VERIFIED match (default 95).
	Verified int `json:"verified" yaml:"verified"`

	// Flawed is the minimum score for a FLAWED_REFERENCE match (default 75).
	Flawed int `json:"flawed" yaml:"flawed"`

	// Discard is the score below which a candidate is ignored (default 60).
	Discard int `json:"discard" yaml:"discard"`

	// Rescue is the score below which the substring-containment rescue is
	// attempted (default 85).
	Rescue int `json:"rescue" yaml:"rescue"`

	// PreprintLagYears is the accepted year gap between a preprint and its
	// formal publication (default 3).
	PreprintLagYears int `json:"preprint_lag_years" yaml:"preprint_lag_years"`

	// Backstop is the score a Crossref or Semantic Scholar backstop match
	// must exceed (default 95).
	Backstop int `json:"backstop" yaml:"backstop"`
}

// DefaultThresholds returns the tuned classification cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Verified:         95,
		Flawed:           75,
		Discard:          60,
		Rescue:           85,
		PreprintLagYears: 3,
		Backstop:         95,
	}
}

// VerifyConfig holds settings for the verification pipeline.
type VerifyConfig struct {
	// Workers is the size of the batch worker pool (default 5). Higher
	// values risk tripping provider rate limits.
	Workers int `json:"workers" yaml:"workers"`

	// MaxCandidates caps how many search results are scored per query
	// (default 20); later candidates are discarded unscored.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// MinLength and MaxLength bound the accepted citation text length
	// (defaults 10 and 600). Out-of-range citations are silently dropped.
	MinLength int `json:"min_length" yaml:"min_length"`
	MaxLength int `json:"max_length" yaml:"max_length"`

	// ParserDelay is the minimum interval between consecutive generative
	// parser calls across all workers (default 500ms).
	ParserDelay time.Duration `json:"parser_delay" yaml:"parser_delay"`

	// GreyLitDelay is the minimum interval between consecutive Semantic
	// Scholar backstop calls across all workers (default 1s).
	GreyLitDelay time.Duration `json:"grey_lit_delay" yaml:"grey_lit_delay"`

	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`
}

// DefaultVerifyConfig returns the pipeline defaults.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		Workers:       5,
		MaxCandidates: 20,
		MinLength:     10,
		MaxLength:     600,
		ParserDelay:   500 * time.Millisecond,
		GreyLitDelay:  time.Second,
		Thresholds:    DefaultThresholds(),
	}
}

// CheckerConfig groups all component configurations.
type CheckerConfig struct {
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Parser  ParserConfig  `json:"parser" yaml:"parser"`
	Verify  VerifyConfig  `json:"verify" yaml:"verify"`
}
