// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/AeroFlaire/reference-checker/internal/catalog"
	"github.com/AeroFlaire/reference-checker/internal/parse"
	"github.com/AeroFlaire/reference-checker/internal/sniper"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

// stubSniper is an IdentifierSniper with a fixed answer.
type stubSniper struct {
	cand  *types.Candidate
	query *types.Query
	hit   bool
}

func (s *stubSniper) Check(context.Context, string) (*types.Candidate, *types.Query, bool) {
	return s.cand, s.query, s.hit
}

// stubParser is a parse.Backend with a fixed answer and a call counter.
type stubParser struct {
	fields parse.Fields
	err    error
	calls  int
}

func (s *stubParser) Parse(context.Context, string) (parse.Fields, error) {
	s.calls++
	return s.fields, s.err
}

func newChecker(sn IdentifierSniper, idx Searcher, p parse.Backend) *Checker {
	return &Checker{
		Sniper: sn,
		Index:  idx,
		Parser: p,
		Config: types.DefaultVerifyConfig(),
	}
}

func TestCheckSniperShortCircuits(t *testing.T) {
	idx := &stubSearcher{}
	p := &stubParser{}
	c := newChecker(&stubSniper{
		cand:  &types.Candidate{Title: "IETF RFC 793"},
		query: &types.Query{Source: "internet standard"},
		hit:   true,
	}, idx, p)

	res, err := c.Check(context.Background(), types.Citation{Text: "Postel, TCP, RFC 793, 1981."})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.Verified || res.Query.Source != "internet standard" {
		t.Errorf("result = %+v", res)
	}
	if len(idx.calls) != 0 || p.calls != 0 {
		t.Error("sniper success must bypass search and parsing")
	}
}

func TestCheckFastPassVerifies(t *testing.T) {
	idx := &stubSearcher{responses: map[string][]types.Candidate{
		"filtered:Attention Is All You Need|Vaswani": {{Title: "Attention Is All You Need", Year: 2017}},
	}}
	p := &stubParser{}
	c := newChecker(&stubSniper{}, idx, p)

	cit := types.Citation{
		Text:  "Vaswani et al. Attention Is All You Need. NeurIPS 2017.",
		Hints: &types.Hints{Title: "Attention Is All You Need", Author: "Vaswani", Year: 2017},
	}
	res, err := c.Check(context.Background(), cit)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.Verified || res.Query.Source != "structured-hint" {
		t.Errorf("result = %+v", res)
	}
	if p.calls != 0 {
		t.Error("a verified fast pass must not reach the generative parser")
	}
}

func TestCheckFastPassFailureFallsToSlowPass(t *testing.T) {
	// The hints find nothing; the generative parse does.
	idx := &stubSearcher{responses: map[string][]types.Candidate{
		"filtered:Deep Residual Learning|He": {{Title: "Deep Residual Learning for Image Recognition", Year: 2016}},
	}}
	p := &stubParser{fields: parse.Fields{Title: "Deep Residual Learning", Author: "He", Year: 2016}}
	c := newChecker(&stubSniper{}, idx, p)

	cit := types.Citation{
		Text:  "He et al. Deep residual learning. CVPR 2016.",
		Hints: &types.Hints{Title: "garbled extraction", Author: "nobody"},
	}
	res, err := c.Check(context.Background(), cit)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("parser calls = %d", p.calls)
	}
	if res.Query == nil || res.Query.Source != "generative-parse" {
		t.Errorf("query = %+v", res.Query)
	}
}

func TestCheckParserFailure(t *testing.T) {
	p := &stubParser{err: errors.New("connection refused")}
	c := newChecker(&stubSniper{}, &stubSearcher{}, p)

	res, err := c.Check(context.Background(), types.Citation{Text: "some reference text long enough"})
	if !errors.Is(err, ErrParserUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if res.Verdict != types.NotFound || !strings.Contains(res.Note, "generative parse failed") {
		t.Errorf("result = %+v", res)
	}
}

func TestCheckEmptyParseIsNotFound(t *testing.T) {
	p := &stubParser{} // parser answers, but with nothing usable
	idx := &stubSearcher{}
	c := newChecker(&stubSniper{}, idx, p)

	res, err := c.Check(context.Background(), types.Citation{Text: "some reference text long enough"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.NotFound {
		t.Errorf("verdict = %s", res.Verdict)
	}
	if len(idx.calls) != 0 {
		t.Error("nothing searchable, nothing searched")
	}
}

func TestCheckEmptyParseStillRunsGreyLitBackstop(t *testing.T) {
	// An unsearchable parse falls through to the grey-literature backstop,
	// which queries with the raw citation text.
	grey := &stubGrey{cand: &types.Candidate{Title: "Generative Adversarial Nets", Year: 2014}}
	c := newChecker(&stubSniper{}, &stubSearcher{}, &stubParser{})
	c.GreyLit = grey

	text := "Goodfellow et al. Generative Adversarial Nets. Tech report, 2014"
	res, err := c.Check(context.Background(), types.Citation{Text: text})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.Verified {
		t.Fatalf("verdict = %s", res.Verdict)
	}
	if grey.calls != 1 || grey.got != text {
		t.Errorf("grey calls = %d, query = %q", grey.calls, grey.got)
	}
}

func TestCheckEmptyParseSuspicionCheck(t *testing.T) {
	p := &stubParser{}
	c := newChecker(&stubSniper{}, &stubSearcher{}, p)

	cit := types.Citation{
		Text:  "some reference text long enough",
		Hints: &types.Hints{Suspicious: true},
	}
	res, err := c.Check(context.Background(), cit)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.NotAReference {
		t.Errorf("verdict = %s, want %s", res.Verdict, types.NotAReference)
	}
}

func TestCheckSuspiciousUnmatchedIsNotAReference(t *testing.T) {
	p := &stubParser{fields: parse.Fields{Title: "looks like prose fragment text", Year: 2020}}
	c := newChecker(&stubSniper{}, &stubSearcher{}, p)

	cit := types.Citation{
		Text:  "a fragment the extractor already distrusted, no venue, no year",
		Hints: &types.Hints{Suspicious: true},
	}
	res, err := c.Check(context.Background(), cit)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.NotAReference {
		t.Errorf("verdict = %s", res.Verdict)
	}
}

func TestCheckProseWithIdentifierStillVerifies(t *testing.T) {
	// A prose-flavored line carrying a resolvable identifier must reach
	// the sniper instead of being rejected up front.
	p := &stubParser{}
	c := newChecker(&stubSniper{
		cand:  &types.Candidate{Title: "Generative Adversarial Networks", Year: 2014},
		query: &types.Query{Source: "preprint identifier"},
		hit:   true,
	}, &stubSearcher{}, p)

	text := "In this paper we build on Goodfellow, Generative Adversarial Nets, arXiv:1406.2661"
	if c.Drops(text) {
		t.Fatal("prose with an identifier must not be dropped")
	}
	res, err := c.Check(context.Background(), types.Citation{Text: text})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.Verified || res.Query.Source != "preprint identifier" {
		t.Errorf("result = %+v", res)
	}
	if p.calls != 0 {
		t.Error("prose must not reach the generative parser")
	}
}

func TestCheckProseSkipsSlowParse(t *testing.T) {
	p := &stubParser{}
	idx := &stubSearcher{}
	c := newChecker(&stubSniper{}, idx, p)

	text := "In this paper we propose a novel method for citation checking"
	res, err := c.Check(context.Background(), types.Citation{Text: text})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.NotFound {
		t.Errorf("verdict = %s", res.Verdict)
	}
	if p.calls != 0 {
		t.Error("prose must not reach the generative parser")
	}
	if len(idx.calls) != 0 {
		t.Error("prose must not be searched")
	}

	sus := types.Citation{Text: text, Hints: &types.Hints{Suspicious: true}}
	res, err = c.Check(context.Background(), sus)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.NotAReference {
		t.Errorf("suspicious prose verdict = %s, want %s", res.Verdict, types.NotAReference)
	}
}

func TestCheckIdempotent(t *testing.T) {
	idx := &stubSearcher{responses: map[string][]types.Candidate{
		"general:Deep Residual Learning": {{Title: "Deep Residual Learning", Year: 2016}},
	}}
	p := &stubParser{fields: parse.Fields{Title: "Deep Residual Learning", Year: 2016}}
	c := newChecker(&stubSniper{}, idx, p)
	cit := types.Citation{Text: "He et al. Deep residual learning. 2016."}

	first, err1 := c.Check(context.Background(), cit)
	second, err2 := c.Check(context.Background(), cit)
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ:\n%+v\n%+v", first, second)
	}
}

func TestDrops(t *testing.T) {
	c := newChecker(&stubSniper{}, &stubSearcher{}, &stubParser{})
	tests := []struct {
		text string
		want bool
	}{
		{"too short", true},
		{strings.Repeat("x", 601), true},
		{"Publication date", true}, // header noise cleans away to nothing
		// Prose is not a pre-pipeline drop; it may still carry an identifier.
		{"In this paper we propose a novel method for citation checking", false},
		{"Goodfellow et al., Generative Adversarial Networks, NeurIPS 2014", false},
	}
	for _, tt := range tests {
		if got := c.Drops(tt.text); got != tt.want {
			t.Errorf("Drops(%.30q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

// rewriteTransport redirects every request to the test server so the real
// sniper and catalog clients can be exercised end to end.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestCheckPreprintIdentifierEndToEnd(t *testing.T) {
	searchCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if strings.Contains(q.Get("filter"), "ids.arxiv:1406.2661") {
			w.Write([]byte(`{"results": [{"id": "https://openalex.org/W1", "display_name": "Generative Adversarial Networks", "publication_year": 2014}]}`))
			return
		}
		searchCalls++
		w.Write([]byte(`{"results": []}`))
	}))
	defer ts.Close()

	target, _ := url.Parse(ts.URL)
	client := &http.Client{Transport: rewriteTransport{target: target}}

	index := &catalog.OpenAlex{Client: client, UserAgent: "test/0.1"}
	secondary := &catalog.SemanticScholar{Client: client, UserAgent: "test/0.1"}
	standards := &catalog.Standards{Client: client, UserAgent: "test/0.1"}
	books := &catalog.OpenLibrary{Client: client, UserAgent: "test/0.1"}

	parser := &stubParser{}
	c := &Checker{
		Sniper: sniper.New(standards, books, index, secondary),
		Index:  index,
		Parser: parser,
		Config: types.DefaultVerifyConfig(),
	}

	res, err := c.Check(context.Background(), types.Citation{
		Text: "Goodfellow, Generative Adversarial Nets, arXiv:1406.2661",
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Verdict != types.Verified {
		t.Fatalf("verdict = %s", res.Verdict)
	}
	if res.Query.Source != "preprint identifier" {
		t.Errorf("Query.Source = %q", res.Query.Source)
	}
	if res.Match.Title != "Generative Adversarial Networks" || res.Match.Year != 2014 {
		t.Errorf("match = %+v", res.Match)
	}
	if searchCalls != 0 {
		t.Errorf("search calls = %d, want none", searchCalls)
	}
	if parser.calls != 0 {
		t.Error("the generative parser must not be called")
	}
}
