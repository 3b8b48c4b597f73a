// Package score computes a deterministic heuristic score per image and
// handles the score tags carried in filenames.
package score

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TagPrefix marks a score in a filename: "name@@@评分87.png".
const TagPrefix = "@@@评分"

// KeywordBonus is added per configured keyword found in the tags.
const KeywordBonus = 5.0

var (
	scorePattern = regexp.MustCompile(`评分(\d{2})`)
	oldTag       = regexp.MustCompile(regexp.QuoteMeta(TagPrefix) + `\d+$`)
	anyTag       = regexp.MustCompile(regexp.QuoteMeta(TagPrefix) + `\d+`)
)

// Scorer rates an image from its folder name and cleaned tags.
type Scorer struct {
	ratings []rating
	weights map[string]float64
	neutral float64
}

type rating struct {
	key   string
	value float64
}

// NewScorer builds a scorer. Rating keys are matched longest first, ties
// going to the higher value, so the result never depends on map order.
func NewScorer(ratingMap, keywordWeights map[string]float64, neutral float64) *Scorer {
	s := &Scorer{
		weights: make(map[string]float64, len(keywordWeights)),
		neutral: neutral,
	}
	for k, v := range ratingMap {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			s.ratings = append(s.ratings, rating{key: k, value: v})
		}
	}
	sort.Slice(s.ratings, func(i, j int) bool {
		a, b := s.ratings[i], s.ratings[j]
		if len(a.key) != len(b.key) {
			return len(a.key) > len(b.key)
		}
		if a.value != b.value {
			return a.value > b.value
		}
		return a.key < b.key
	})
	for k, v := range keywordWeights {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			s.weights[k] += v
		}
	}
	return s
}

// Score returns base rating + KeywordBonus per matched weight, clamped to
// [0,100] and rounded to one decimal.
func (s *Scorer) Score(folder, tags string) float64 {
	haystack := strings.ToLower(folder + "\n" + tags)
	base := s.neutral
	for _, r := range s.ratings {
		if strings.Contains(haystack, r.key) {
			base = r.value
			break
		}
	}

	lowerTags := strings.ToLower(tags)
	var bonus float64
	for k, w := range s.weights {
		if strings.Contains(lowerTags, k) {
			bonus += w
		}
	}

	v := math.Max(0, math.Min(100, base+bonus*KeywordBonus))
	return math.Round(v*10) / 10
}

// ExtractScore finds the two-digit score tag in a filename.
func ExtractScore(filename string) (int, bool) {
	m := scorePattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Tag renders a score as a filename tag. Scores are written with two
// digits, so they are capped at 99.
func Tag(score float64) string {
	n := int(math.Round(score))
	if n > 99 {
		n = 99
	}
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%s%02d", TagPrefix, n)
}

// TagFilename replaces any existing score tag at the end of the base name.
func TagFilename(filename string, score float64) string {
	ext := filepath.Ext(filename)
	base := oldTag.ReplaceAllString(strings.TrimSuffix(filename, ext), "")
	base = strings.TrimRight(strings.TrimSpace(base), "_")
	return base + Tag(score) + ext
}

// StripTag removes every score tag from the base name of filename.
func StripTag(filename string) string {
	ext := filepath.Ext(filename)
	return anyTag.ReplaceAllString(strings.TrimSuffix(filename, ext), "") + ext
}

// DirName is the folder a score is organized into.
func DirName(score int) string {
	return fmt.Sprintf("评分%02d", score)
}

// ParseRange parses "80-99" or "80" into the set of selected scores.
// Bounds must be two-digit numbers; reversed bounds are swapped.
func ParseRange(s string) (map[int]bool, error) {
	s = strings.TrimSpace(s)
	lo, hi := s, s
	if i := strings.Index(s, "-"); i >= 0 {
		lo, hi = s[:i], s[i+1:]
	}
	a, err := parseBound(lo)
	if err != nil {
		return nil, fmt.Errorf("score range %q: %w", s, err)
	}
	b, err := parseBound(hi)
	if err != nil {
		return nil, fmt.Errorf("score range %q: %w", s, err)
	}
	if a > b {
		a, b = b, a
	}
	set := make(map[int]bool, b-a+1)
	for n := a; n <= b; n++ {
		set[n] = true
	}
	return set, nil
}

func parseBound(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 10 || n > 99 {
		return 0, fmt.Errorf("%d is not a two-digit score", n)
	}
	return n, nil
}
