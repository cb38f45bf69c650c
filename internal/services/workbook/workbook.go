// Package workbook exports analysis results as an .xlsx workbook and reads
// the flat results table back in.
//
// Sheet layout:
//   - "All Results": one row per grade record, read back by ReadRecords
//   - "Summary Analytics": pass/fail counts per department, year and subject
//   - "<Dept>_<Year>": register numbers by subjects, one grade per cell
package workbook

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

const (
	SheetAllResults = "All Results"
	SheetSummary    = "Summary Analytics"

	// missingGrade fills pivot cells for subjects a student has no grade in.
	missingGrade = "-"

	// maxSheetName is Excel's limit on sheet name length.
	maxSheetName = 31
)

// resultColumns is the header of the "All Results" sheet, in order.
var resultColumns = []string{"Register No", "Year", "Dept", "Name", "Subject", "Grade"}

var summaryColumns = []string{"Department", "Admission Year", "Subject Code", "Passed", "Failed/Abs", "Total", "Pass %"}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, records []results.GradeRecord, report *results.StatsReport) error {
	f, err := Build(records, report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Build assembles the workbook in memory. The caller must Close the file.
func Build(records []results.GradeRecord, report *results.StatsReport) (*excelize.File, error) {
	f := excelize.NewFile()

	// Go Pattern: When a multi-step build fails halfway, close what we made
	// before returning so the caller never has to clean up a partial value.
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// NewFile starts with "Sheet1"; rename it instead of leaving it empty.
	if err := f.SetSheetName("Sheet1", SheetAllResults); err != nil {
		return nil, fmt.Errorf("failed to name results sheet: %w", err)
	}
	if err := writeAllResults(f, header, records); err != nil {
		return nil, err
	}

	if len(report.Breakdown) > 0 {
		if err := writeSummary(f, header, report); err != nil {
			return nil, err
		}
	}

	for _, g := range pivotGroups(records) {
		if err := writePivot(f, header, g); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	ok = true
	return f, nil
}

func writeAllResults(f *excelize.File, header int, records []results.GradeRecord) error {
	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, toRow(resultColumns))
	for _, r := range records {
		rows = append(rows, []interface{}{r.RegisterNo, r.Year, r.Dept, r.Name, r.Subject, r.Grade})
	}
	return writeSheet(f, SheetAllResults, header, rows)
}

func writeSummary(f *excelize.File, header int, report *results.StatsReport) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(report.Breakdown)+1)
	rows = append(rows, toRow(summaryColumns))
	for _, row := range report.Breakdown {
		rows = append(rows, []interface{}{
			row.Dept,
			row.Year,
			row.Subject,
			row.Pass,
			row.Fail,
			row.Total,
			results.PassPercentage(row.Pass, row.Total),
		})
	}
	return writeSheet(f, SheetSummary, header, rows)
}

// pivotGroup is the slice of records for one (department, year) sheet.
type pivotGroup struct {
	name     string
	students []string
	subjects []string
	grades   map[[2]string]string // (register no, subject) -> grade
}

// pivotGroups groups records by (dept, year), sorted by dept then year.
// Register numbers and subjects are sorted ascending; the first grade seen
// for a pair wins.
func pivotGroups(records []results.GradeRecord) []pivotGroup {
	type groupKey struct{ dept, year string }

	index := make(map[groupKey]*pivotGroup)
	var keys []groupKey
	seenStudent := make(map[groupKey]map[string]bool)
	seenSubject := make(map[groupKey]map[string]bool)

	for _, r := range records {
		k := groupKey{r.Dept, r.Year}
		g, ok := index[k]
		if !ok {
			name := r.Dept + "_" + r.Year
			if len(name) > maxSheetName {
				name = name[:maxSheetName]
			}
			g = &pivotGroup{name: name, grades: make(map[[2]string]string)}
			index[k] = g
			keys = append(keys, k)
			seenStudent[k] = make(map[string]bool)
			seenSubject[k] = make(map[string]bool)
		}
		if !seenStudent[k][r.RegisterNo] {
			seenStudent[k][r.RegisterNo] = true
			g.students = append(g.students, r.RegisterNo)
		}
		if !seenSubject[k][r.Subject] {
			seenSubject[k][r.Subject] = true
			g.subjects = append(g.subjects, r.Subject)
		}
		cell := [2]string{r.RegisterNo, r.Subject}
		if _, exists := g.grades[cell]; !exists {
			g.grades[cell] = r.Grade
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].dept != keys[j].dept {
			return keys[i].dept < keys[j].dept
		}
		return keys[i].year < keys[j].year
	})

	groups := make([]pivotGroup, 0, len(keys))
	for _, k := range keys {
		g := index[k]
		sort.Strings(g.students)
		sort.Strings(g.subjects)
		groups = append(groups, *g)
	}
	return groups
}

func writePivot(f *excelize.File, header int, g pivotGroup) error {
	if _, err := f.NewSheet(g.name); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", g.name, err)
	}

	rows := make([][]interface{}, 0, len(g.students)+1)
	rows = append(rows, toRow(append([]string{"Register No"}, g.subjects...)))
	for _, student := range g.students {
		row := make([]interface{}, 0, len(g.subjects)+1)
		row = append(row, student)
		for _, subject := range g.subjects {
			grade, ok := g.grades[[2]string{student, subject}]
			if !ok {
				grade = missingGrade
			}
			row = append(row, grade)
		}
		rows = append(rows, row)
	}
	return writeSheet(f, g.name, header, rows)
}

// writeSheet writes rows starting at A1, bolds the header and freezes it.
func writeSheet(f *excelize.File, sheet string, header int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
