package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/promptsort/pkg/promptsort/metadata"
	"github.com/cognicore/promptsort/pkg/promptsort/score"
	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
	"github.com/cognicore/promptsort/pkg/promptsort/tagclean"
)

// 40 characters after cleaning.
const stylePrefix = "style_a, style_b, style_c, style_d, abcd"

type fakeCollector struct {
	infos map[string]metadata.Info
	errs  map[string]error
}

func (f fakeCollector) Extract(ctx context.Context, path string) (metadata.Info, error) {
	if err := ctx.Err(); err != nil {
		return metadata.Info{}, err
	}
	if err, ok := f.errs[path]; ok {
		return metadata.Info{}, err
	}
	info, ok := f.infos[path]
	if !ok {
		return metadata.Info{}, metadata.ErrNoMetadata
	}
	return info, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestRunner(t *testing.T, c metadata.Collector) *Runner {
	t.Helper()
	r, err := New(Options{
		Collector:   c,
		Cleaner:     tagclean.NewCleaner([]string{"masterpiece,"}),
		Scorer:      score.NewScorer(nil, nil, 50),
		LearnStyles: true,
		Thresholds:  stylewords.Thresholds{Anchor: "1girl", MinOccurrences: 10, MinPhraseLength: 30, Workers: 3},
		TopN:        3,
		Workers:     4,
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRunEndToEnd(t *testing.T) {
	c := fakeCollector{infos: map[string]metadata.Info{}, errs: map[string]error{}}
	var paths []string
	for i := 0; i < 10; i++ {
		p := filepath.Join("img", fmt.Sprintf("styled%02d.png", i))
		c.infos[p] = metadata.Info{Positive: fmt.Sprintf("Masterpiece, %s, 1girl, blue_eyes, tag%d", stylePrefix, i)}
		paths = append(paths, p)
	}
	c.infos["img/plain1.png"] = metadata.Info{Positive: "1girl, (red hair:1.2), cat/dog, night"}
	c.infos["img/plain2.png"] = metadata.Info{Positive: "landscape, river"}
	c.infos["img/empty.png"] = metadata.Info{Raw: "Negative prompt: lowres"}
	c.errs["img/broken.png"] = fmt.Errorf("read broken.png: %w", io.ErrUnexpectedEOF)
	paths = append(paths, "img/plain1.png", "img/plain2.png", "img/empty.png", "img/broken.png", "img/nometa.png")

	batch, err := newTestRunner(t, c).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n, ok := batch.Styles.Count(stylePrefix); batch.Styles.Len() != 1 || !ok || n != 10 {
		t.Fatalf("expected one style phrase with count 10, got %v", batch.Styles.Counts())
	}

	byPath := make(map[string]*Record)
	for _, rec := range batch.Records {
		byPath[rec.Path] = rec
	}

	for i := 0; i < 10; i++ {
		rec := byPath[filepath.Join("img", fmt.Sprintf("styled%02d.png", i))]
		want := fmt.Sprintf("1girl, blue_eyes, tag%d", i)
		if rec.CoreKeywords != want {
			t.Errorf("%s: CoreKeywords = %q, want %q", rec.Path, rec.CoreKeywords, want)
		}
		if rec.State != Annotated {
			t.Errorf("%s: state %s", rec.Path, rec.State)
		}
		if terms := rec.Terms(); len(terms) == 0 || terms[0] != fmt.Sprintf("tag%d", i) {
			t.Errorf("%s: Terms() = %v", rec.Path, terms)
		}
		if rec.Score != 50 {
			t.Errorf("%s: Score = %v", rec.Path, rec.Score)
		}
	}

	plain := byPath["img/plain1.png"]
	if plain.CoreKeywords != "1girl, cat_dog, night" {
		t.Errorf("plain1 CoreKeywords = %q", plain.CoreKeywords)
	}
	for _, term := range plain.Terms() {
		if strings.ContainsAny(term, `/\:*?"<>|`) {
			t.Errorf("unsafe keyword %q", term)
		}
	}

	empty := byPath["img/empty.png"]
	if empty.State != Annotated || empty.CleanedTags != "" || empty.CoreKeywords != "" || len(empty.Keywords) != 0 {
		t.Errorf("empty record: %+v", empty)
	}

	if got := byPath["img/broken.png"]; got.State != Failed || got.Reason != ReasonUnreadable {
		t.Errorf("broken record: state %s reason %q", got.State, got.Reason)
	}
	if got := byPath["img/nometa.png"]; got.State != Failed || got.Reason != ReasonNoMetadata {
		t.Errorf("nometa record: state %s reason %q", got.State, got.Reason)
	}

	s := batch.Summary
	if s.Total != 15 || s.Succeeded != 13 || s.Failed != 2 {
		t.Errorf("Summary = %s", s)
	}
	if s.Reasons[ReasonUnreadable] != 1 || s.Reasons[ReasonNoMetadata] != 1 {
		t.Errorf("Reasons = %v", s.Reasons)
	}
}

func TestRunFailureDoesNotChangeCorpus(t *testing.T) {
	infos := map[string]metadata.Info{
		"a.png": {Positive: "shared, alpha"},
		"b.png": {Positive: "shared, beta"},
	}
	run := func(extra ...string) *Batch {
		paths := append([]string{"a.png", "b.png"}, extra...)
		batch, err := newTestRunner(t, fakeCollector{infos: infos}).Run(context.Background(), paths)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return batch
	}

	clean := run()
	withFailure := run("missing.png")
	for i := 0; i < 2; i++ {
		a, b := clean.Records[i].Keywords, withFailure.Records[i].Keywords
		if fmt.Sprint(a) != fmt.Sprint(b) {
			t.Errorf("record %d keywords changed by a failed file: %v vs %v", i, a, b)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := fakeCollector{infos: map[string]metadata.Info{"a.png": {Positive: "x"}}}
	batch, err := newTestRunner(t, c).Run(ctx, []string{"a.png", "b.png"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if batch.Summary.Failed != 2 || batch.Summary.Succeeded != 0 {
		t.Errorf("Summary = %s", batch.Summary)
	}
}

func TestRunEmpty(t *testing.T) {
	batch, err := newTestRunner(t, fakeCollector{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if batch.Summary.Total != 0 || batch.Styles.Len() != 0 {
		t.Errorf("unexpected batch: %+v", batch.Summary)
	}
}

func TestRunWithFileCollector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-image.png")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := New(Options{TopN: 2, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	batch, err := r.Run(context.Background(), []string{path, filepath.Join(dir, "gone.png")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if batch.Summary.Reasons[ReasonNoMetadata] != 1 || batch.Summary.Reasons[ReasonUnreadable] != 1 {
		t.Errorf("Reasons = %v", batch.Summary.Reasons)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	if _, err := New(Options{TopN: 0}); err == nil {
		t.Error("expected error for top n 0")
	}
	if _, err := New(Options{TopN: 1, LearnStyles: true}); err == nil {
		t.Error("expected error for empty thresholds")
	}
}

func TestRecordAdvance(t *testing.T) {
	rec := NewRecord("x.png")
	if err := rec.advance(MetadataExtracted); err != nil {
		t.Fatalf("forward transition failed: %v", err)
	}
	if err := rec.advance(Discovered); err == nil {
		t.Error("backward transition should fail")
	}
	if err := rec.advance(MetadataExtracted); err == nil {
		t.Error("repeated state should fail")
	}
	rec.fail(ReasonUnreadable, io.EOF)
	if err := rec.advance(Annotated); err == nil {
		t.Error("failed record must stay failed")
	}
	if rec.State.String() != "failed" {
		t.Errorf("State.String() = %q", rec.State.String())
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{Total: 3, Succeeded: 1, Failed: 2, Reasons: map[string]int{"unreadable": 1, "no_metadata": 1}}
	want := "total=3 succeeded=1 failed=2 no_metadata=1 unreadable=1"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSafeKeywords(t *testing.T) {
	if got := SafeKeywords("a/b, c:d, , e"); got != "a_b, c_d, e" {
		t.Errorf("SafeKeywords() = %q", got)
	}
	if got := SafeKeywords(""); got != "" {
		t.Errorf("SafeKeywords(\"\") = %q", got)
	}
}
