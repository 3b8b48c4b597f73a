package tfidf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestMatrixVocabularySorted(t *testing.T) {
	m := NewMatrix([]string{"zeta, alpha", "mid, alpha, alpha"})
	want := []string{"alpha", "mid", "zeta"}
	if got := m.Vocabulary(); !reflect.DeepEqual(got, want) {
		t.Errorf("Vocabulary() = %v, want %v", got, want)
	}
	if m.TF(1, "alpha") != 2 {
		t.Errorf("TF(1, alpha) = %d, want 2", m.TF(1, "alpha"))
	}
	if m.DF("alpha") != 2 {
		t.Errorf("DF(alpha) = %d, want 2", m.DF("alpha"))
	}
}

func TestIDFFormula(t *testing.T) {
	m := NewMatrix([]string{"a, b", "a", "c"})
	want := math.Log(4.0 / 3.0)
	if got := m.IDF("a"); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(a) = %f, want %f", got, want)
	}
	if got := m.IDF("missing"); got != 0 {
		t.Errorf("IDF(missing) = %f, want 0", got)
	}
}

func TestWeightMonotonic(t *testing.T) {
	m := NewMatrix([]string{"t, t, x", "t, x", "y"})
	wA := m.Weight(0, "t")
	wB := m.Weight(1, "t")
	if wA < wB {
		t.Errorf("more occurrences should not lower weight: A=%f B=%f", wA, wB)
	}
	if wA <= 0 {
		t.Errorf("expected positive weight, got %f", wA)
	}
}

func TestUbiquitousTermSuppressed(t *testing.T) {
	corpus := []string{"common, rare1", "common, rare2", "common, rare3"}
	m := NewMatrix(corpus)
	if m.Weight(0, "common") >= m.Weight(0, "rare1") {
		t.Errorf("ubiquitous term should score lower: common=%f rare=%f",
			m.Weight(0, "common"), m.Weight(0, "rare1"))
	}

	ranking, err := Ranker{TopN: 5}.Rank(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	for i := 0; i < ranking.Len(); i++ {
		for _, term := range ranking.TopTermsFor(i) {
			if term == "common" {
				t.Errorf("doc %d: zero-weight term returned", i)
			}
		}
	}
}

func TestRankTopNBound(t *testing.T) {
	corpus := []string{
		"a, b, c, d, e, b, c, c",
		"f, g",
		"a, h",
	}
	ranking, err := Ranker{TopN: 3, Workers: 2}.Rank(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if ranking.Len() != len(corpus) {
		t.Fatalf("Len() = %d, want %d", ranking.Len(), len(corpus))
	}
	for i := 0; i < ranking.Len(); i++ {
		kws := ranking.KeywordsFor(i)
		if len(kws) > 3 {
			t.Errorf("doc %d: %d keywords exceeds top n", i, len(kws))
		}
		for j, k := range kws {
			if k.Weight <= 0 {
				t.Errorf("doc %d: zero weight keyword %v", i, k)
			}
			if j > 0 && kws[j-1].Weight < k.Weight {
				t.Errorf("doc %d: keywords not sorted by weight: %v", i, kws)
			}
		}
	}

	want := []string{"c", "b", "d"}
	if got := ranking.TopTermsFor(0); !reflect.DeepEqual(got, want) {
		t.Errorf("TopTermsFor(0) = %v, want %v", got, want)
	}
}

func TestRankSameForAnyWorkerCount(t *testing.T) {
	corpus := make([]string, 50)
	for i := range corpus {
		corpus[i] = fmt.Sprintf("common, t%d, t%d, g%d", i, i, i%7)
	}
	want, err := Ranker{TopN: 3, Workers: 1}.Rank(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	for _, workers := range []int{0, 3, 8, 100} {
		got, err := Ranker{TopN: 3, Workers: workers}.Rank(context.Background(), corpus)
		if err != nil {
			t.Fatalf("Rank(workers=%d) failed: %v", workers, err)
		}
		for i := range corpus {
			if !reflect.DeepEqual(got.KeywordsFor(i), want.KeywordsFor(i)) {
				t.Fatalf("workers=%d doc %d: %v, want %v", workers, i, got.KeywordsFor(i), want.KeywordsFor(i))
			}
		}
	}
}

func TestRankCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Ranker{TopN: 2}).Rank(ctx, []string{"a, b", "b, c"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRankTieBreakLexicographic(t *testing.T) {
	corpus := []string{"zz, yy, xx", "other"}
	ranking, err := Ranker{TopN: 2}.Rank(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	want := []string{"xx", "yy"}
	if got := ranking.TopTermsFor(0); !reflect.DeepEqual(got, want) {
		t.Errorf("TopTermsFor(0) = %v, want %v", got, want)
	}
}

func TestRankEmptyDocuments(t *testing.T) {
	corpus := []string{"", "a, b", "a, c"}
	ranking, err := Ranker{TopN: 5}.Rank(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if got := ranking.TopTermsFor(0); len(got) != 0 {
		t.Errorf("empty document should have no keywords, got %v", got)
	}
	// "a" is in both non-empty documents and must be suppressed.
	if got := ranking.TopTermsFor(1); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("TopTermsFor(1) = %v, want [b]", got)
	}
}

func TestRankEmptyCorpus(t *testing.T) {
	ranking, err := Ranker{TopN: 5}.Rank(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty corpus should not fail: %v", err)
	}
	if ranking.Len() != 0 {
		t.Errorf("expected empty ranking")
	}
	if ranking.TopTermsFor(0) != nil {
		t.Errorf("out of range document should return nil")
	}
}

func TestRankSingleDocument(t *testing.T) {
	ranking, err := Ranker{TopN: 5}.Rank(context.Background(), []string{"a, b"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if got := ranking.TopTermsFor(0); len(got) != 0 {
		t.Errorf("every term of a single document is ubiquitous, got %v", got)
	}
}

func TestRankInvalidTopN(t *testing.T) {
	if _, err := (Ranker{TopN: 0}).Rank(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error for top n 0")
	}
}

func TestKeywordString(t *testing.T) {
	k := Keyword{Term: "blue_eyes", Weight: 0.69314718}
	if got := k.String(); got != "blue_eyes (0.6931)" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormatSuffix(t *testing.T) {
	tests := []struct {
		terms []string
		want  string
	}{
		{nil, ""},
		{[]string{" ", ""}, ""},
		{[]string{"a", " b "}, "___a___b"},
	}
	for _, tt := range tests {
		if got := FormatSuffix(tt.terms, "___"); got != tt.want {
			t.Errorf("FormatSuffix(%v) = %q, want %q", tt.terms, got, tt.want)
		}
	}
}
