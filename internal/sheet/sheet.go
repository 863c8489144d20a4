// Package sheet reads question tables from and writes result tables to
// xlsx workbooks.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stemsi/quizdesk/internal/model"
	"github.com/xuri/excelize/v2"
)

// ErrUnreadable is returned when the upload is not a readable workbook.
var ErrUnreadable = errors.New("unreadable spreadsheet")

// ContentType is the MIME type of files produced by WriteResults.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReadRows returns the cells of the first worksheet, trimmed. Row i of the
// result is sheet row i+1; trailing blank rows are not returned.
func ReadRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheet found", ErrUnreadable)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = strings.TrimSpace(cell)
		}
	}
	return rows, nil
}

// ExportLabels carries the localized text used by WriteResults.
type ExportLabels struct {
	Sheet        string
	Name         string
	Date         string
	StartTime    string
	SubmitTime   string
	TimeSpent    string
	Score        string
	Percent      string
	NotAvailable string
	DateLayout   string
	TimeLayout   string
}

// WriteResults writes one row per result after a header row. Times are
// rendered in loc using the label layouts.
func WriteResults(w io.Writer, results []model.Result, labels ExportLabels, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := labels.Sheet
	if sheet == "" {
		sheet = "Results"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := []any{labels.Name, labels.Date, labels.StartTime, labels.SubmitTime, labels.TimeSpent, labels.Score, labels.Percent}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		row := []any{
			r.StudentName,
			formatTime(&r.CreatedAt, labels.DateLayout, labels.NotAvailable, loc),
			formatTime(r.StartTime, labels.TimeLayout, labels.NotAvailable, loc),
			formatTime(r.SubmitTime, labels.TimeLayout, labels.NotAvailable, loc),
			timeSpent(r.TimeSpent, labels.NotAvailable),
			r.Score,
			r.Percent,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	widths := map[string]float64{"A": 25, "B": 16, "C": 14, "D": 14, "E": 18, "F": 10, "G": 10}
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatTime(t *time.Time, layout, na string, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return na
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(layout)
}

func timeSpent(v *int, na string) any {
	if v == nil {
		return na
	}
	return *v
}
