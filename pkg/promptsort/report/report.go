// Package report writes finished batches to spreadsheets and to a SQLite
// run history.
package report

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/promptsort/pkg/promptsort/pipeline"
	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
)

// Run is everything a sink receives about one batch.
type Run struct {
	ID         string
	Command    string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []*pipeline.Record
	Styles     stylewords.Table
	Refined    stylewords.Table
	Summary    pipeline.Summary
}

// Sink consumes a finished run.
type Sink interface {
	Write(ctx context.Context, run Run) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a sortable run identifier.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewRun wraps a batch for the sinks.
func NewRun(command, root string, started time.Time, batch *pipeline.Batch) Run {
	finished := time.Now()
	return Run{
		ID:         NewID(finished),
		Command:    command,
		Root:       root,
		StartedAt:  started,
		FinishedAt: finished,
		Records:    batch.Records,
		Styles:     batch.Styles,
		Summary:    batch.Summary,
	}
}

// Multi writes to every sink and joins their errors.
type Multi []Sink

// Write implements Sink.
func (m Multi) Write(ctx context.Context, run Run) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Header is the column layout of the per-image sheet.
var Header = []string{
	"folder", "path", "status", "reason", "model",
	"raw_tags", "cleaned_tags", "core_keywords", "keywords", "score",
}

// Row renders one record in Header order.
func Row(rec *pipeline.Record) []interface{} {
	kws := make([]string, len(rec.Keywords))
	for i, k := range rec.Keywords {
		kws[i] = k.String()
	}
	var reason string
	if !rec.OK() {
		reason = rec.Reason
		if rec.Err != nil {
			reason = fmt.Sprintf("%s: %v", rec.Reason, rec.Err)
		}
	}
	return []interface{}{
		rec.Folder(),
		rec.Path,
		rec.State.String(),
		reason,
		rec.Info.Model,
		rec.RawTags,
		rec.CleanedTags,
		rec.CoreKeywords,
		strings.Join(kws, "; "),
		rec.Score,
	}
}
