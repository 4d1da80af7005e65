// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// Standards link-check endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	wg21Base = "https://wg21.link/"
	rfcBase  = "https://datatracker.ietf.org/doc/"
)

// Standards verifies standards-document numbers by probing their canonical
/// link services: wg21.link for C++ committee papers and the IETF
// datatracker for RFCs. Existence of the document is the proof; no
// metadata beyond the number is recovered, so Year stays 0.
type Standards struct {
	Client    *http.Client
	UserAgent string
}

// CheckCommitteePaper probes wg21.link for a paper number like "P0380R1"
// or "N4860". The redirect service answers OK only for real papers.
func (s *Standards) CheckCommitteePaper(ctx context.Context, paperID string) (*types.Candidate, error) {
	link := wg21Base + paperID
	if err := s.head(ctx, link); err != nil {
		return nil, err
	}
	return &types.Candidate{
		Title: "C++ Standard Paper " + paperID,
		ID:    link,
		Note:  "Verified via WG21.link",
	}, nil
}

// CheckRFC probes the IETF datatracker for an RFC number.
func (s *Standards) CheckRFC(ctx context.Context, rfcNumber string) (*types.Candidate, error) {
	link := rfcBase + "rfc" + rfcNumber + "/"
	if err := s.head(ctx, link); err != nil {
		return nil, err
	}
	return &types.Candidate{
		Title: "IETF RFC " + rfcNumber,
		ID:    link,
		Note:  "Verified via IETF Datatracker",
	}, nil
}

// head issues a HEAD request (following redirects) and succeeds only on OK.
func (s *Standards) head(ctx context.Context, link string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("link check request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("link check returned HTTP %d", resp.StatusCode)
	}
	return nil
}
