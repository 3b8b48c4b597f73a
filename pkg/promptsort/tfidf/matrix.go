package tfidf

import (
	"math"
	"sort"

	"github.com/cognicore/promptsort/pkg/promptsort/tagclean"
)

// Matrix is a sparse term-document count table over a tag corpus.
// It is immutable after NewMatrix returns.
type Matrix struct {
	vocab []string       // sorted distinct terms
	index map[string]int // term -> column
	rows  []map[int]int  // per document: column -> count
	df    []int          // per column: documents containing the term
	n     int            // documents with at least one term
}

// Tokenize splits a cleaned tag string into its terms.
func Tokenize(doc string) []string {
	return tagclean.Split(doc)
}

// NewMatrix builds the term-document matrix for the corpus.
// Documents without terms keep their row (so indices line up with the
// corpus) but do not count towards N.
func NewMatrix(corpus []string) *Matrix {
	tokenized := make([][]string, len(corpus))
	seen := make(map[string]struct{})
	for i, doc := range corpus {
		tokenized[i] = Tokenize(doc)
		for _, tok := range tokenized[i] {
			seen[tok] = struct{}{}
		}
	}

	vocab := make([]string, 0, len(seen))
	for tok := range seen {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	for i, tok := range vocab {
		index[tok] = i
	}

	m := &Matrix{
		vocab: vocab,
		index: index,
		rows:  make([]map[int]int, len(corpus)),
		df:    make([]int, len(vocab)),
	}
	for i, toks := range tokenized {
		row := make(map[int]int, len(toks))
		for _, tok := range toks {
			row[index[tok]]++
		}
		for col := range row {
			m.df[col]++
		}
		if len(row) > 0 {
			m.n++
		}
		m.rows[i] = row
	}
	return m
}

// Vocabulary returns the sorted distinct terms.
func (m *Matrix) Vocabulary() []string {
	out := make([]string, len(m.vocab))
	copy(out, m.vocab)
	return out
}

// Docs returns the number of rows.
func (m *Matrix) Docs() int {
	return len(m.rows)
}

// TF returns the raw count of term in document doc.
func (m *Matrix) TF(doc int, term string) int {
	col, ok := m.index[term]
	if !ok || doc < 0 || doc >= len(m.rows) {
		return 0
	}
	return m.rows[doc][col]
}

// DF returns the number of documents containing term.
func (m *Matrix) DF(term string) int {
	col, ok := m.index[term]
	if !ok {
		return 0
	}
	return m.df[col]
}

// IDF returns the smoothed inverse document frequency
//
//	idf(t) = ln((1 + N) / (1 + df(t)))
//
// A term present in every document gets 0.
func (m *Matrix) IDF(term string) float64 {
	col, ok := m.index[term]
	if !ok {
		return 0
	}
	return m.idf(col)
}

func (m *Matrix) idf(col int) float64 {
	return math.Log(float64(1+m.n) / float64(1+m.df[col]))
}

// Weight returns tf(t,d) * idf(t).
func (m *Matrix) Weight(doc int, term string) float64 {
	col, ok := m.index[term]
	if !ok || doc < 0 || doc >= len(m.rows) {
		return 0
	}
	return float64(m.rows[doc][col]) * m.idf(col)
}

// Row returns every positive-weight term of a document, highest weight
// first, ties broken by term.
func (m *Matrix) Row(doc int) []Keyword {
	if doc < 0 || doc >= len(m.rows) {
		return nil
	}
	row := m.rows[doc]
	keywords := make([]Keyword, 0, len(row))
	for col, count := range row {
		w := float64(count) * m.idf(col)
		if w <= 0 {
			continue
		}
		keywords = append(keywords, Keyword{Term: m.vocab[col], Weight: w})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Weight != keywords[j].Weight {
			return keywords[i].Weight > keywords[j].Weight
		}
		return keywords[i].Term < keywords[j].Term
	})
	return keywords
}
