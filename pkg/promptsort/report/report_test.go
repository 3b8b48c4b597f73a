package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/promptsort/pkg/promptsort/pipeline"
	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
	"github.com/cognicore/promptsort/pkg/promptsort/tfidf"
)

func testRun() Run {
	ok := pipeline.NewRecord(filepath.Join("in", "cats", "a.png"))
	ok.State = pipeline.Annotated
	ok.RawTags = "masterpiece, 1girl, smile"
	ok.CleanedTags = "1girl, smile"
	ok.CoreKeywords = "1girl, smile"
	ok.Keywords = []tfidf.Keyword{{Term: "smile", Weight: 0.5}, {Term: "1girl", Weight: 0.25}}
	ok.Score = 72.5

	bad := pipeline.NewRecord(filepath.Join("in", "b.png"))
	bad.State = pipeline.Failed
	bad.Reason = pipeline.ReasonNoMetadata

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return Run{
		ID:         NewID(started),
		Command:    "tag",
		Root:       "in",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Records:    []*pipeline.Record{ok, bad},
		Styles:     stylewords.NewTable(map[string]int{"style_a, style_b": 12}),
		Refined:    stylewords.NewTable(map[string]int{"style_a": 12}),
		Summary: pipeline.Summary{
			Total:     2,
			Succeeded: 1,
			Failed:    1,
			Reasons:   map[string]int{pipeline.ReasonNoMetadata: 1},
		},
	}
}

func TestNewIDSortable(t *testing.T) {
	now := time.Now()
	a := NewID(now)
	b := NewID(now)
	c := NewID(now.Add(time.Second))
	if !(a < b && b < c) {
		t.Errorf("ids not increasing: %s %s %s", a, b, c)
	}
	if len(a) != 26 {
		t.Errorf("unexpected id length %d", len(a))
	}
}

func TestRow(t *testing.T) {
	run := testRun()
	row := Row(run.Records[0])
	if len(row) != len(Header) {
		t.Fatalf("row has %d columns, header %d", len(row), len(Header))
	}
	if row[0] != filepath.Join("in", "cats") {
		t.Errorf("folder = %v", row[0])
	}
	if row[8] != "smile (0.5000); 1girl (0.2500)" {
		t.Errorf("keywords = %v", row[8])
	}
	if row[3] != "" {
		t.Errorf("reason on success = %v", row[3])
	}
	if got := Row(run.Records[1])[3]; got != pipeline.ReasonNoMetadata {
		t.Errorf("failure reason = %v", got)
	}
}

func TestXLSXSink(t *testing.T) {
	dir := t.TempDir()
	run := testRun()
	sink := XLSXSink{Dir: filepath.Join(dir, "reports")}
	if err := sink.Write(context.Background(), run); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := excelize.OpenFile(sink.Path(run))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetImages)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "folder" || rows[1][7] != "1girl, smile" {
		t.Errorf("unexpected rows: %v", rows[:2])
	}

	summary, err := f.GetRows(sheetSummary)
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	found := false
	for _, r := range summary {
		if len(r) == 2 && r[0] == "failed:"+pipeline.ReasonNoMetadata && r[1] == "1" {
			found = true
		}
	}
	if !found {
		t.Errorf("summary missing failure reason: %v", summary)
	}

	styles, err := f.GetRows(sheetStyles)
	if err != nil {
		t.Fatalf("GetRows styles: %v", err)
	}
	if len(styles) != 3 || styles[1][3] != "learned" || styles[2][3] != "refined" {
		t.Errorf("unexpected style rows: %v", styles)
	}
}

func TestXLSXSinkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (XLSXSink{Dir: t.TempDir()}).Write(ctx, testRun()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer sink.Close()

	first := testRun()
	if err := sink.Write(ctx, first); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	second := testRun()
	second.ID = NewID(first.StartedAt.Add(time.Hour))
	second.Records[0].CoreKeywords = "smile"
	if err := sink.Write(ctx, second); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	runs, err := sink.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[1].Total != 2 || runs[1].Failed != 1 || runs[1].Command != "tag" {
		t.Errorf("unexpected run row: %+v", runs[1])
	}

	history, err := sink.History(ctx, first.Records[0].Path)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0] != "smile" || history[1] != "1girl, smile" {
		t.Errorf("unexpected history: %v", history)
	}

	phrases, err := sink.StylePhrases(ctx, first.ID)
	if err != nil {
		t.Fatalf("StylePhrases failed: %v", err)
	}
	if len(phrases) != 1 || phrases["style_a, style_b"] != 12 {
		t.Errorf("unexpected phrases: %v", phrases)
	}

	if err := sink.Write(ctx, first); err == nil {
		t.Error("expected duplicate run id to fail")
	}
}

type failingSink struct{ err error }

func (f failingSink) Write(context.Context, Run) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	var calls int
	counting := sinkFunc(func(context.Context, Run) error { calls++; return nil })

	err := Multi{failingSink{errA}, counting, failingSink{errB}}.Write(context.Background(), testRun())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors, got %v", err)
	}
	if calls != 1 {
		t.Errorf("sink after a failure not called")
	}
	if err := (Multi{counting}).Write(context.Background(), testRun()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

type sinkFunc func(context.Context, Run) error

func (f sinkFunc) Write(ctx context.Context, run Run) error { return f(ctx, run) }
