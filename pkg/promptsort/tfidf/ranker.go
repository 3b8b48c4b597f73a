package tfidf

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/promptsort/internal/workerpool"
)

// Keyword is a ranked term with its tf-idf weight.
type Keyword struct {
	Term   string
	Weight float64
}

// String renders the keyword the way reports show it: "term (0.1234)".
func (k Keyword) String() string {
	return fmt.Sprintf("%s (%.4f)", k.Term, k.Weight)
}

// Ranker selects the top weighted terms of every document.
type Ranker struct {
	TopN    int // maximum keywords per document
	Workers int // <= 0 uses runtime.NumCPU()
}

// Ranking holds the ordered keywords for each corpus document.
type Ranking struct {
	docs [][]Keyword
}

// Rank builds the matrix for corpus and extracts up to TopN keywords per
// document. Zero-weight terms are never returned, so a document may get
// fewer than TopN keywords. An empty corpus yields an empty ranking.
func (r Ranker) Rank(ctx context.Context, corpus []string) (*Ranking, error) {
	if r.TopN < 1 {
		return nil, fmt.Errorf("tfidf: top n must be >= 1, got %d", r.TopN)
	}
	if len(corpus) == 0 {
		return &Ranking{}, nil
	}

	m := NewMatrix(corpus)
	docs := make([][]Keyword, m.Docs())

	err := workerpool.Each(ctx, r.Workers, len(docs), func(ctx context.Context, i int) {
		row := m.Row(i)
		if len(row) > r.TopN {
			row = row[:r.TopN]
		}
		docs[i] = row
	})
	if err != nil {
		return nil, err
	}
	return &Ranking{docs: docs}, nil
}

// Len returns the number of ranked documents.
func (r *Ranking) Len() int {
	return len(r.docs)
}

// KeywordsFor returns the ranked keywords of a document, highest first.
func (r *Ranking) KeywordsFor(doc int) []Keyword {
	if doc < 0 || doc >= len(r.docs) {
		return nil
	}
	out := make([]Keyword, len(r.docs[doc]))
	copy(out, r.docs[doc])
	return out
}

// TopTermsFor returns just the terms of KeywordsFor.
func (r *Ranking) TopTermsFor(doc int) []string {
	if doc < 0 || doc >= len(r.docs) {
		return nil
	}
	terms := make([]string, len(r.docs[doc]))
	for i, k := range r.docs[doc] {
		terms[i] = k.Term
	}
	return terms
}

// FormatSuffix joins terms into a filename suffix with a leading
// delimiter: ["a", "b"] -> "___a___b". Blank terms are skipped.
func FormatSuffix(terms []string, delim string) string {
	var kept []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return delim + strings.Join(kept, delim)
}
