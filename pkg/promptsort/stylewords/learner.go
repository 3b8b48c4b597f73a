package stylewords

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cognicore/promptsort/internal/workerpool"
)

// separatorChars are trimmed from the end of a candidate prefix.
const separatorChars = ", \t\r\n"

// Thresholds control which prefixes are promoted to style phrases.
type Thresholds struct {
	Anchor          string // tag that starts the subject content, e.g. "1girl"
	MinOccurrences  int    // documents that must share the exact prefix
	MinPhraseLength int    // minimum prefix length in characters
	Workers         int    // scan parallelism; <= 0 uses runtime.NumCPU()
}

// DefaultThresholds returns the thresholds used for SD prompt folders.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Anchor:          "1girl",
		MinOccurrences:  10,
		MinPhraseLength: 30,
	}
}

// Validate rejects thresholds that cannot produce a meaningful table.
func (th Thresholds) Validate() error {
	if strings.TrimSpace(th.Anchor) == "" {
		return errors.New("stylewords: anchor token is required")
	}
	if th.MinOccurrences < 1 {
		return fmt.Errorf("stylewords: min occurrences must be >= 1, got %d", th.MinOccurrences)
	}
	if th.MinPhraseLength < 1 {
		return fmt.Errorf("stylewords: min phrase length must be >= 1, got %d", th.MinPhraseLength)
	}
	return nil
}

// Learn scans a cleaned corpus for recurring prefixes that precede the
// anchor token and returns those that cross both thresholds.
// An empty corpus yields an empty table.
func Learn(ctx context.Context, corpus []string, th Thresholds) (Table, error) {
	if err := th.Validate(); err != nil {
		return Table{}, err
	}
	if len(corpus) == 0 {
		return Table{}, nil
	}

	anchor := strings.ToLower(th.Anchor)
	counts := newCounter()

	err := workerpool.Each(ctx, th.Workers, len(corpus), func(ctx context.Context, i int) {
		prefix, ok := candidate(corpus[i], anchor)
		if !ok || utf8.RuneCountInString(prefix) < th.MinPhraseLength {
			return
		}
		counts.add(prefix, i)
	})
	if err != nil {
		return Table{}, err
	}

	return counts.table(th.MinOccurrences), nil
}

// candidate returns the lowercased text before the first anchor
// occurrence, without trailing separators.
func candidate(doc, anchor string) (string, bool) {
	lower := strings.ToLower(doc)
	idx := strings.Index(lower, anchor)
	if idx <= 0 {
		return "", false
	}
	prefix := strings.TrimRight(lower[:idx], separatorChars)
	if prefix == "" {
		return "", false
	}
	return prefix, true
}

// counter accumulates prefix counts from concurrent scanners.
type counter struct {
	mu        sync.Mutex
	counts    map[string]int
	firstSeen map[string]int
}

func newCounter() *counter {
	return &counter{
		counts:    make(map[string]int),
		firstSeen: make(map[string]int),
	}
}

func (c *counter) add(phrase string, doc int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[phrase]++
	if seen, ok := c.firstSeen[phrase]; !ok || doc < seen {
		c.firstSeen[phrase] = doc
	}
}

// table filters by minimum count. Called after all scanners finished.
func (c *counter) table(minOccurrences int) Table {
	var phrases []Phrase
	for text, n := range c.counts {
		if n < minOccurrences {
			continue
		}
		phrases = append(phrases, Phrase{Text: text, Count: n, FirstSeen: c.firstSeen[text]})
	}
	return newTable(phrases)
}

// Phrase is a learned style phrase with its corpus frequency.
type Phrase struct {
	Text      string
	Count     int
	FirstSeen int // index of the first document that contained it
}

// Table maps learned phrases to their counts. It is read-only once built.
type Table struct {
	phrases []Phrase // presentation order
	index   map[string]int
}

// NewTable builds a table from a phrase -> count mapping.
// Without document positions, ties are ordered lexicographically.
func NewTable(counts map[string]int) Table {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	phrases := make([]Phrase, 0, len(keys))
	for i, k := range keys {
		phrases = append(phrases, Phrase{Text: k, Count: counts[k], FirstSeen: i})
	}
	return newTable(phrases)
}

func newTable(phrases []Phrase) Table {
	sort.Slice(phrases, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(phrases[i].Text), utf8.RuneCountInString(phrases[j].Text)
		if li != lj {
			return li > lj
		}
		if phrases[i].Count != phrases[j].Count {
			return phrases[i].Count > phrases[j].Count
		}
		return phrases[i].FirstSeen < phrases[j].FirstSeen
	})
	index := make(map[string]int, len(phrases))
	for i, p := range phrases {
		index[p.Text] = i
	}
	return Table{phrases: phrases, index: index}
}

// Len returns the number of phrases.
func (t Table) Len() int {
	return len(t.phrases)
}

// Count returns the frequency of a phrase.
func (t Table) Count(phrase string) (int, bool) {
	i, ok := t.index[phrase]
	if !ok {
		return 0, false
	}
	return t.phrases[i].Count, true
}

// Phrases returns the phrases longest first, then by count, then by
// first appearance.
func (t Table) Phrases() []Phrase {
	out := make([]Phrase, len(t.phrases))
	copy(out, t.phrases)
	return out
}

// Counts returns the table as a phrase -> count map.
func (t Table) Counts() map[string]int {
	out := make(map[string]int, len(t.phrases))
	for _, p := range t.phrases {
		out[p.Text] = p.Count
	}
	return out
}
