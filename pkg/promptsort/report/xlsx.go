package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
)

const (
	sheetImages  = "Images"
	sheetSummary = "Summary"
	sheetStyles  = "StylePhrases"
)

// XLSXSink writes one workbook per run into Dir.
type XLSXSink struct {
	Dir string
}

// Path returns the workbook path for a run.
func (s XLSXSink) Path(run Run) string {
	return filepath.Join(s.Dir, fmt.Sprintf("promptsort_%s_%s.xlsx", run.Command, run.ID))
}

// Write implements Sink.
func (s XLSXSink) Write(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("xlsx report: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetImages); err != nil {
		return fmt.Errorf("xlsx report: %w", err)
	}
	if err := writeImages(f, run); err != nil {
		return fmt.Errorf("xlsx report: images: %w", err)
	}
	if err := writeSummary(f, run); err != nil {
		return fmt.Errorf("xlsx report: summary: %w", err)
	}
	if run.Styles.Len() > 0 {
		if err := writeStyles(f, run); err != nil {
			return fmt.Errorf("xlsx report: styles: %w", err)
		}
	}

	if err := f.SaveAs(s.Path(run)); err != nil {
		return fmt.Errorf("xlsx report: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toRow(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeImages(f *excelize.File, run Run) error {
	if err := setRow(f, sheetImages, 1, toRow(Header)); err != nil {
		return err
	}
	for i, rec := range run.Records {
		row := i + 2
		if err := setRow(f, sheetImages, row, Row(rec)); err != nil {
			return err
		}
		// path column links to the file
		cell, err := excelize.CoordinatesToCellName(2, row)
		if err != nil {
			return err
		}
		if err := f.SetCellHyperLink(sheetImages, cell, rec.Path, "External"); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.AutoFilter(sheetImages, "A1:"+last, nil); err != nil {
		return err
	}
	return f.SetColWidth(sheetImages, "F", "H", 60)
}

func writeSummary(f *excelize.File, run Run) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"run_id", run.ID},
		{"command", run.Command},
		{"root", run.Root},
		{"started_at", run.StartedAt.Format("2006-01-02 15:04:05")},
		{"finished_at", run.FinishedAt.Format("2006-01-02 15:04:05")},
		{"total", run.Summary.Total},
		{"succeeded", run.Summary.Succeeded},
		{"failed", run.Summary.Failed},
	}
	reasons := make([]string, 0, len(run.Summary.Reasons))
	for reason := range run.Summary.Reasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		rows = append(rows, []interface{}{"failed:" + reason, run.Summary.Reasons[reason]})
	}
	for i, r := range rows {
		if err := setRow(f, sheetSummary, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func writeStyles(f *excelize.File, run Run) error {
	if _, err := f.NewSheet(sheetStyles); err != nil {
		return err
	}
	if err := setRow(f, sheetStyles, 1, []interface{}{"phrase", "count", "length", "kind"}); err != nil {
		return err
	}
	row := 2
	write := func(t stylewords.Table, kind string) error {
		for _, p := range t.Phrases() {
			if err := setRow(f, sheetStyles, row, []interface{}{p.Text, p.Count, len([]rune(p.Text)), kind}); err != nil {
				return err
			}
			row++
		}
		return nil
	}
	if err := write(run.Styles, "learned"); err != nil {
		return err
	}
	return write(run.Refined, "refined")
}
