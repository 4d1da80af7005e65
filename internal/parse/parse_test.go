// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{Attention} is {all} you need", "Attention is all you need"},
		{"Publication date 2014 Goodfellow et al.", "2014 Goodfellow et al."},
		{"  spaced   out\ttext ", "spaced out text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsProse(t *testing.T) {
	if !IsProse("In this paper we propose a novel architecture") {
		t.Error("body text should read as prose")
	}
	if IsProse("Goodfellow et al., Generative Adversarial Networks, NeurIPS 2014") {
		t.Error("a reference line is not prose")
	}
}

func TestArxivYear(t *testing.T) {
	tests := []struct {
		text string
		year int
		ok   bool
	}{
		{"Kingma and Welling, arXiv:1312.6114", 2013, true},
		{"Devlin et al., BERT, arxiv:1810.04805", 2018, true},
		{"no identifier here", 0, false},
	}
	for _, tt := range tests {
		year, ok := ArxivYear(tt.text)
		if year != tt.year || ok != tt.ok {
			t.Errorf("ArxivYear(%q) = %d, %v; want %d, %v", tt.text, year, ok, tt.year, tt.ok)
		}
	}
}

func TestSearchKey(t *testing.T) {
	if got := SearchKey("BERT: Pre-training of Deep Bidirectional Transformers"); got != "BERT Pretraining of Deep Bidirectional Transformers" {
		t.Errorf("SearchKey = %q", got)
	}
}

func TestTitleKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Attention Is All You Need. Proceedings of NeurIPS", "Attention Is All You Need"},
		{"Deep Residual Learning. IEEE CVPR", "Deep Residual Learning"},
		{"An Unadorned Title", "An Unadorned Title"},
	}
	for _, tt := range tests {
		if got := TitleKey(tt.in); got != tt.want {
			t.Errorf("TitleKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromHints(t *testing.T) {
	c := types.Citation{
		Text: "Vaswani et al. Attention Is All You Need. 2017.",
		Hints: &types.Hints{
			Title:  "Attention Is All You Need",
			Author: "Vaswani",
			Year:   2017,
		},
	}
	q, ok := FromHints(c)
	if !ok {
		t.Fatal("expected a query from usable hints")
	}
	if q.Title != "Attention Is All You Need" || q.Author != "Vaswani" || q.Year != 2017 {
		t.Errorf("query = %+v", q)
	}
	if q.Source != "structured-hint" {
		t.Errorf("Source = %q", q.Source)
	}
}

func TestFromHintsRejectsShortTitle(t *testing.T) {
	c := types.Citation{Text: "x", Hints: &types.Hints{Title: "BERT"}}
	if _, ok := FromHints(c); ok {
		t.Error("a five-character title is an extraction fragment, not a hint")
	}
	if _, ok := FromHints(types.Citation{Text: "x"}); ok {
		t.Error("no hints, no query")
	}
}

func TestFromHintsArxivOverride(t *testing.T) {
	c := types.Citation{
		Text:  "Kingma and Welling. Auto-Encoding Variational Bayes. arXiv:1312.6114 (2022)",
		Hints: &types.Hints{Title: "Auto-Encoding Variational Bayes", Year: 2022},
	}
	q, ok := FromHints(c)
	if !ok || q.Year != 2013 {
		t.Errorf("query = %+v; the arXiv year wins", q)
	}
}

type stubBackend struct {
	fields Fields
	err    error
	got    string
}

func (b *stubBackend) Parse(_ context.Context, reference string) (Fields, error) {
	b.got = reference
	return b.fields, b.err
}

func TestGenerative(t *testing.T) {
	backend := &stubBackend{fields: Fields{
		Title:  "{Generative Adversarial Networks}",
		Author: "Goodfellow",
		Year:   2014,
	}}

	q, err := Generative(context.Background(), backend, "Goodfellow et al. 2014.")
	if err != nil {
		t.Fatalf("Generative: %v", err)
	}
	if q.Title != "Generative Adversarial Networks" {
		t.Errorf("Title = %q, want braces stripped", q.Title)
	}
	if q.Source != "generative-parse" || q.Year != 2014 {
		t.Errorf("query = %+v", q)
	}
}

func TestGenerativeArxivOverride(t *testing.T) {
	backend := &stubBackend{fields: Fields{Title: "BERT", Year: 2019}}

	q, err := Generative(context.Background(), backend, "Devlin et al. BERT. arXiv:1810.04805.")
	if err != nil {
		t.Fatalf("Generative: %v", err)
	}
	if q.Year != 2018 {
		t.Errorf("Year = %d, want the arXiv-derived 2018", q.Year)
	}
}

func TestGenerativeBackendError(t *testing.T) {
	backend := &stubBackend{err: errors.New("daemon down")}
	if _, err := Generative(context.Background(), backend, "some ref"); err == nil {
		t.Error("expected the backend error to surface")
	}
}
