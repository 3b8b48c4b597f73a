// Package organize renames and moves images based on their keywords and
// scores. Every sink defaults to planning only; nothing is touched unless
// DryRun is false. A failure on one file never stops the others.
package organize

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the outcome of one file operation.
type Status string

const (
	StatusRenamed          Status = "renamed"
	StatusMoved            Status = "moved"
	StatusArchived         Status = "archived"
	StatusUnclassified     Status = "unclassified"
	StatusSkippedProtected Status = "skipped_protected"
	StatusSkippedSamePath  Status = "skipped_same_path"
	StatusSkippedExists    Status = "skipped_exists"
	StatusSkippedNoScore   Status = "skipped_no_score"
	StatusSkippedOutRange  Status = "skipped_out_of_range"
	StatusSkippedFailed    Status = "skipped_failed_record"
	StatusFailed           Status = "failed"
)

// Action records what happened, or would happen, to one file.
type Action struct {
	From   string
	To     string
	Status Status
	Err    error
}

// Result collects the actions of one sink invocation.
type Result struct {
	DryRun  bool
	Actions []Action
	Counts  map[Status]int
}

func newResult(dryRun bool, n int) *Result {
	return &Result{
		DryRun:  dryRun,
		Actions: make([]Action, 0, n),
		Counts:  make(map[Status]int),
	}
}

func (r *Result) add(a Action) {
	r.Actions = append(r.Actions, a)
	r.Counts[a.Status]++
}

// Failed returns the number of failed operations.
func (r *Result) Failed() int {
	return r.Counts[StatusFailed]
}

func (r *Result) String() string {
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if r.DryRun {
		parts = append(parts, "[dry-run]")
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, r.Counts[Status(k)]))
	}
	return strings.Join(parts, " ")
}
