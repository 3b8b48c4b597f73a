// Package naming builds tagged filenames and resolves name conflicts
// without process-wide state.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/cognicore/promptsort/pkg/promptsort/tfidf"
)

// Status tells whether a proposed name was free.
type Status int

const (
	Unique Status = iota
	Conflict
)

func (s Status) String() string {
	switch s {
	case Unique:
		return "unique"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result of Propose. Suggested is set only on Conflict.
type Result struct {
	Status    Status
	Name      string
	Suggested string
}

// Propose checks filename in dir against taken and, on conflict, suggests
// the first free "name(n).ext". It performs no I/O of its own.
func Propose(dir, filename string, taken func(path string) bool) Result {
	if !taken(filepath.Join(dir, filename)) {
		return Result{Status: Unique, Name: filename}
	}
	suggested, _ := nextFree(dir, filename, 0, taken)
	return Result{
		Status:    Conflict,
		Name:      filename,
		Suggested: suggested,
	}
}

func numbered(filename string, n int) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("%s(%d)%s", strings.TrimSuffix(filename, ext), n, ext)
}

func nextFree(dir, filename string, from int, taken func(string) bool) (string, int) {
	for n := from + 1; ; n++ {
		candidate := numbered(filename, n)
		if !taken(filepath.Join(dir, candidate)) {
			return candidate, n
		}
	}
}

// Registry hands out names for one run. It remembers the names it issued
// and the last counter used per base name, so concurrent movers never
// pick the same target.
type Registry struct {
	mu       sync.Mutex
	issued   map[string]bool
	counters map[string]int
}

// NewRegistry returns an empty per-run registry.
func NewRegistry() *Registry {
	return &Registry{
		issued:   make(map[string]bool),
		counters: make(map[string]int),
	}
}

func registryKey(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

// Reserve returns a free name for filename in dir and records it. exists
// reports files already on disk. conflict is true when the name had to be
// numbered.
func (r *Registry) Reserve(dir, filename string, exists func(path string) bool) (name string, conflict bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	taken := func(p string) bool {
		return r.issued[registryKey(p)] || exists(p)
	}

	res := Propose(dir, filename, taken)
	name = res.Name
	if res.Status == Conflict {
		key := registryKey(filepath.Join(dir, strings.TrimSuffix(filename, filepath.Ext(filename))))
		name, r.counters[key] = nextFree(dir, filename, r.counters[key], taken)
		conflict = true
	}
	r.issued[registryKey(filepath.Join(dir, name))] = true
	return name, conflict
}

// Release forgets a reservation, e.g. after a failed move.
func (r *Registry) Release(dir, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.issued, registryKey(filepath.Join(dir, name)))
}

// MatchKeywords returns the configured keywords found in raw tags,
// case-insensitively, in configured order and without duplicates.
func MatchKeywords(raw string, keywords []string) []string {
	lower := strings.ToLower(raw)
	seen := make(map[string]bool)
	var out []string
	for _, k := range keywords {
		lk := strings.ToLower(strings.TrimSpace(k))
		if lk == "" || seen[lk] || !strings.Contains(lower, lk) {
			continue
		}
		seen[lk] = true
		out = append(out, k)
	}
	return out
}

// BaseName strips the extension and any existing delim-separated tag
// suffix from filename.
func BaseName(filename, delim string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if delim == "" {
		return base
	}
	if i := strings.Index(base, delim); i >= 0 {
		base = base[:i]
	}
	return base
}

// TaggedName rebuilds filename as base + matched + ranked suffix + ext.
// Terms are made filename-safe and duplicates across both lists dropped.
func TaggedName(filename string, matched, ranked []string, delim string) string {
	seen := make(map[string]bool)
	var terms []string
	for _, list := range [][]string{matched, ranked} {
		for _, t := range list {
			t = SafeComponent(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			terms = append(terms, t)
		}
	}
	return BaseName(filename, delim) + tfidf.FormatSuffix(terms, delim) + filepath.Ext(filename)
}

const unsafeChars = `/\:*?"<>|`

// SafeComponent makes s usable as a single path component: separators and
// reserved characters become '_', control characters are dropped and
// surrounding spaces and dots are trimmed.
func SafeComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(unsafeChars, r):
			b.WriteByte('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), " .")
}
