package tagclean

import (
	"regexp"
	"strings"
)

// Separator joins tags in normalized text.
const Separator = ", "

var (
	// innerGroup matches a "(content)" group with no brackets inside.
	// Nested groups are removed from the inside out, and the enclosed
	// content is dropped together with the brackets.
	innerGroup = regexp.MustCompile(`\s*\([^()]*\)\s*`)

	// weightPattern matches ":1.2" style weights.
	weightPattern = regexp.MustCompile(`\s*:\d+(\.\d+)?\s*`)

	separatorRun = regexp.MustCompile(`[,\s]+`)
)

// TextCleaner turns raw tag text into cleaned tag text.
type TextCleaner interface {
	Clean(raw string) string
}

// Cleaner lowercases tag text, strips weight annotations and removes stop phrases
type Cleaner struct {
	phrases []string
}

// NewCleaner creates a cleaner with the given stop phrases.
// Phrases are normalized like tag text; phrases that normalize to
// nothing are ignored. Removal order follows the input order.
func NewCleaner(stopPhrases []string) *Cleaner {
	phrases := make([]string, 0, len(stopPhrases))
	seen := make(map[string]struct{}, len(stopPhrases))
	for _, p := range stopPhrases {
		norm := Normalize(strings.ToLower(p))
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		phrases = append(phrases, norm)
	}
	return &Cleaner{phrases: phrases}
}

// Clean is a convenience wrapper around NewCleaner(stopPhrases).Clean(raw).
func Clean(raw string, stopPhrases []string) string {
	return NewCleaner(stopPhrases).Clean(raw)
}

// Phrases returns the normalized stop phrases in removal order.
func (c *Cleaner) Phrases() []string {
	out := make([]string, len(c.phrases))
	copy(out, c.phrases)
	return out
}

// Clean normalizes raw tag text. It never fails: empty or
// separator-only input yields "".
//
// Stop phrases are removed by plain substring replacement, so a phrase
// can eat part of a longer unrelated word ("sun" turns "sunset" into
// "set"). Passes repeat until the text stops changing, which makes
// Clean idempotent.
func (c *Cleaner) Clean(raw string) string {
	text := strings.ToLower(raw)
	for {
		next := c.pass(text)
		if next == text {
			return next
		}
		text = next
	}
}

// pass runs one round of weight stripping and stop phrase removal.
// Every replacement drops at least one non-separator character, so
// repeated passes terminate.
func (c *Cleaner) pass(text string) string {
	text = stripGroups(text)
	text = weightPattern.ReplaceAllString(text, " ")
	text = Normalize(text)
	for _, p := range c.phrases {
		text = strings.ReplaceAll(text, p, " ")
	}
	return Normalize(text)
}

// stripGroups removes bracket groups innermost first until none are
// left, then drops unmatched brackets.
func stripGroups(text string) string {
	for {
		next := innerGroup.ReplaceAllString(text, " ")
		if next == text {
			break
		}
		text = next
	}
	return strings.NewReplacer("(", " ", ")", " ").Replace(text)
}

// Normalize collapses every run of commas and whitespace into ", "
// and trims separators from both ends.
func Normalize(text string) string {
	text = separatorRun.ReplaceAllString(text, Separator)
	return strings.Trim(text, Separator)
}

// Split breaks comma separated text into trimmed, non-empty terms.
func Split(text string) []string {
	parts := strings.Split(text, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		terms = append(terms, p)
	}
	return terms
}
