package workbook

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

func testRecords() []results.GradeRecord {
	return []results.GradeRecord{
		{RegisterNo: "BMC19CS047", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "B"},
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "F"},
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "CST201", Grade: "A+"},
		{RegisterNo: "BMC20ME012", Year: "2020", Dept: "ME", Subject: "MET201", Grade: "Absent"},
	}
}

func build(t *testing.T, records []results.GradeRecord) *excelize.File {
	t.Helper()
	f, err := Build(records, results.Aggregate(records, results.DefaultRules()))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuild_Sheets(t *testing.T) {
	f := build(t, testRecords())

	want := []string{SheetAllResults, SheetSummary, "CS_2019", "ME_2020"}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}
}

func TestBuild_EmptyHasOnlyResultsSheet(t *testing.T) {
	f := build(t, nil)

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetAllResults}) {
		t.Errorf("sheets = %v, want only %q", got, SheetAllResults)
	}
	rows, err := f.GetRows(SheetAllResults)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], resultColumns) {
		t.Errorf("rows = %v, want just the header", rows)
	}
}

func TestBuild_Summary(t *testing.T) {
	f := build(t, testRecords())

	rows, err := f.GetRows(SheetSummary)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows[0], summaryColumns) {
		t.Errorf("header = %v, want %v", rows[0], summaryColumns)
	}

	want := [][]string{
		{"CS", "2019", "MAT203", "1", "1", "2", "50"},
		{"CS", "2019", "CST201", "1", "0", "1", "100"},
		{"ME", "2020", "MET201", "0", "1", "1", "0"},
	}
	if !reflect.DeepEqual(rows[1:], want) {
		t.Errorf("rows = %v, want %v", rows[1:], want)
	}
}

func TestBuild_Pivot(t *testing.T) {
	f := build(t, testRecords())

	rows, err := f.GetRows("CS_2019")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Register No", "CST201", "MAT203"},
		{"BMC19CS046", "A+", "F"},
		{"BMC19CS047", "-", "B"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestPivotGroups_TruncatesSheetName(t *testing.T) {
	records := []results.GradeRecord{
		{RegisterNo: "R1", Year: "2019", Dept: strings.Repeat("D", 40), Subject: "S1", Grade: "A"},
	}

	groups := pivotGroups(records)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].name) != maxSheetName {
		t.Errorf("name length = %d, want %d", len(groups[0].name), maxSheetName)
	}
}

func TestRoundTrip(t *testing.T) {
	records := testRecords()
	report := results.Aggregate(records, results.DefaultRules())

	var buf bytes.Buffer
	if err := Write(&buf, records, report); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := ReadRecords(&buf)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("records = %+v, want %+v", got, records)
	}
	if again := results.Aggregate(got, results.DefaultRules()); !reflect.DeepEqual(again, report) {
		t.Errorf("report after round trip = %+v, want %+v", again, report)
	}
}

func TestReadRecords_ReorderedColumnsAndBlankRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetAllResults); err != nil {
		t.Fatal(err)
	}
	rows := [][]interface{}{
		{"Grade", "Subject", "Register No", "Dept", "Year", "Name"},
		{"F", "MAT203", "BMC19CS046", "CS", "2019"},
		{},
		{"A", "CST201", "BMC19CS046", "CS", "2019", "Anjali"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := row
		if err := f.SetSheetRow(SheetAllResults, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	got, err := ReadRecords(buf)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	want := []results.GradeRecord{
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "F"},
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Name: "Anjali", Subject: "CST201", Grade: "A"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %+v, want %+v", got, want)
	}
}

func TestReadRecords_Invalid(t *testing.T) {
	sheetWith := func(t *testing.T, sheet string, rows [][]interface{}) *bytes.Buffer {
		t.Helper()
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatal(err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			row := row
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
		buf, err := f.WriteToBuffer()
		if err != nil {
			t.Fatal(err)
		}
		return buf
	}

	header := []interface{}{"Register No", "Year", "Dept", "Name", "Subject", "Grade"}

	tests := []struct {
		name string
		data func(t *testing.T) *bytes.Buffer
	}{
		{"not a workbook", func(t *testing.T) *bytes.Buffer { return bytes.NewBufferString("plain text") }},
		{"missing results sheet", func(t *testing.T) *bytes.Buffer {
			return sheetWith(t, "Other", [][]interface{}{header})
		}},
		{"empty results sheet", func(t *testing.T) *bytes.Buffer {
			return sheetWith(t, SheetAllResults, nil)
		}},
		{"missing column", func(t *testing.T) *bytes.Buffer {
			return sheetWith(t, SheetAllResults, [][]interface{}{{"Register No", "Subject", "Grade"}})
		}},
		{"row without subject", func(t *testing.T) *bytes.Buffer {
			return sheetWith(t, SheetAllResults, [][]interface{}{header, {"BMC19CS046", "2019", "CS", "", "", "F"}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecords(tt.data(t))
			if !errors.Is(err, ErrInvalidWorkbook) {
				t.Errorf("ReadRecords() error = %v, want ErrInvalidWorkbook", err)
			}
		})
	}
}
