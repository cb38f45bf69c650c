package workbook

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

// ErrInvalidWorkbook means the workbook has no usable "All Results" sheet.
var ErrInvalidWorkbook = errors.New("invalid results workbook")

// ReadRecords reads the "All Results" sheet of a workbook previously written
// by Write and returns its records in row order.
//
// Columns are located by header name, so reordered columns still load. Blank
// rows are skipped; rows missing a register number or subject are rejected.
func ReadRecords(r io.Reader) ([]results.GradeRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetAllResults)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrInvalidWorkbook, SheetAllResults, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrInvalidWorkbook, SheetAllResults)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range resultColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidWorkbook, name)
		}
	}

	// GetRows drops trailing empty cells, so a short row just means blanks.
	cell := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]results.GradeRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := results.GradeRecord{
			RegisterNo: cell(row, "Register No"),
			Year:       cell(row, "Year"),
			Dept:       cell(row, "Dept"),
			Name:       cell(row, "Name"),
			Subject:    cell(row, "Subject"),
			Grade:      cell(row, "Grade"),
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidWorkbook, n+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
