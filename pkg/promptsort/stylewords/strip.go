package stylewords

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/promptsort/pkg/promptsort/tagclean"
)

// Stripper removes learned phrases from tag text, longest phrase first.
type Stripper struct {
	patterns []*regexp.Regexp
}

// NewStripper compiles the table's phrases in removal order.
// Longest phrases go first so a shorter phrase never leaves part of a
// longer one behind; equal lengths are ordered lexicographically.
func NewStripper(table Table) *Stripper {
	texts := make([]string, 0, table.Len())
	for _, p := range table.phrases {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		texts = append(texts, p.Text)
	}
	sort.Slice(texts, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(texts[i]), utf8.RuneCountInString(texts[j])
		if li != lj {
			return li > lj
		}
		return texts[i] < texts[j]
	})

	patterns := make([]*regexp.Regexp, len(texts))
	for i, text := range texts {
		patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(text))
	}
	return &Stripper{patterns: patterns}
}

// Strip is a convenience wrapper around NewStripper(table).Strip(text).
func Strip(text string, table Table) string {
	return NewStripper(table).Strip(text)
}

// Strip removes every occurrence of every phrase, case-insensitively,
// until none is left, then normalizes separators.
func (s *Stripper) Strip(text string) string {
	for _, re := range s.patterns {
		for re.MatchString(text) {
			text = re.ReplaceAllString(text, "")
		}
	}
	return tagclean.Normalize(text)
}

// Refine removes noise fragments (e.g. trailing quality tags that vary
// between otherwise identical prefixes) from each learned phrase.
// Phrases that collapse to the same text are merged with their counts
// summed; phrases left shorter than th.MinPhraseLength are dropped.
func Refine(table Table, noise []string, th Thresholds) Table {
	var patterns []*regexp.Regexp
	for _, n := range noise {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(n)))
	}

	merged := make(map[string]*Phrase)
	var order []string
	for _, p := range table.phrases {
		text := p.Text
		for _, re := range patterns {
			text = re.ReplaceAllString(text, " ")
		}
		text = tagclean.Normalize(text)
		if text == "" || utf8.RuneCountInString(text) < th.MinPhraseLength {
			continue
		}
		if m, ok := merged[text]; ok {
			m.Count += p.Count
			if p.FirstSeen < m.FirstSeen {
				m.FirstSeen = p.FirstSeen
			}
			continue
		}
		merged[text] = &Phrase{Text: text, Count: p.Count, FirstSeen: p.FirstSeen}
		order = append(order, text)
	}

	phrases := make([]Phrase, 0, len(order))
	for _, text := range order {
		phrases = append(phrases, *merged[text])
	}
	return newTable(phrases)
}
