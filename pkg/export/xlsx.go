package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/jakechorley/oncall-scheduler/pkg/core/model"
)

const (
	// ScheduleSheet holds one row per shift
	ScheduleSheet = "Complete Schedule"

	// SummarySheet holds shift counts per physician
	SummarySheet = "Summary"
)

// WriteXLSX writes the schedule workbook
func WriteXLSX(w io.Writer, shifts []*model.Shift, debug bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSheet(f, ScheduleSheet, Table(shifts, debug)); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	if err := writeSheet(f, SummarySheet, summaryRows(shifts)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeSheet fills a sheet with rows, bolds and freezes the header and sizes every column
// to its widest value
func writeSheet(f *excelize.File, sheet string, rows [][]string) error {
	widths := make([]int, 0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
			if c >= len(widths) {
				widths = append(widths, 0)
			}
			widths[c] = max(widths[c], len(value))
		}
	}
	if len(rows) == 0 {
		return nil
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("failed to address cell: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for c, width := range widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return fmt.Errorf("failed to name column: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, float64(width+4)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func summaryRows(shifts []*model.Shift) [][]string {
	counts := Counts(shifts)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	header := []string{"Physician"}
	for _, k := range model.Kinds {
		header = append(header, string(k))
	}
	header = append(header, "Total")

	rows := [][]string{header}
	for _, name := range names {
		row := []string{name}
		total := 0
		for _, k := range model.Kinds {
			row = append(row, fmt.Sprint(counts[name][k]))
			total += counts[name][k]
		}
		rows = append(rows, append(row, fmt.Sprint(total)))
	}
	return rows
}
