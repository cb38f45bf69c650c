// Command analyze runs the result analysis offline on a single file and prints
// the pass/fail tables to the terminal.
//
// Usage:
//
//	analyze [-rules rules.yaml] [-o out.xlsx] [-records] results.pdf
//	analyze [-rules rules.yaml] analysis.xlsx
//
// A .pdf is read and scanned for grade records; an .xlsx previously written
// by the API (or by -o) is reloaded from its "All Results" sheet.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	pdfservice "github.com/Shimizu-Technology/result-analyser-api/internal/services/pdf"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
	"github.com/Shimizu-Technology/result-analyser-api/internal/services/workbook"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, so tests can drive it.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rulesFile := fs.String("rules", "", "YAML file with departments and fail_grades")
	output := fs.String("o", "", "write the analysis workbook to this .xlsx path")
	showRecords := fs.Bool("records", false, "print every extracted record")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: analyze [-rules rules.yaml] [-o out.xlsx] [-records] <results.pdf|analysis.xlsx>")
		return 2
	}
	input := fs.Arg(0)

	fail := color.New(color.FgRed)

	rules := results.DefaultRules()
	if *rulesFile != "" {
		var err error
		if rules, err = results.LoadRules(*rulesFile); err != nil {
			fail.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}
	}

	records, warnings, err := load(input, rules)
	if err != nil {
		fail.Fprintf(stderr, "❌ %v\n", err)
		if errors.Is(err, results.ErrNoData) {
			return 3
		}
		return 1
	}

	report := results.Aggregate(records, rules)

	color.New(color.FgCyan).Fprintf(stdout, "\n=== %s ===\n", filepath.Base(input))
	fmt.Fprintf(stdout, "Students: %d  Entries: %d  Departments: %s\n",
		report.TotalStudents, report.TotalEntries, strings.Join(report.Departments, ", "))

	printDepartments(stdout, report)
	printSummary(stdout, report)
	if *showRecords {
		printRecords(stdout, records)
	}
	printWarnings(stdout, warnings, report.Duplicates)

	if *output != "" {
		if err := writeWorkbook(*output, records, report); err != nil {
			fail.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}
		color.New(color.FgGreen).Fprintf(stdout, "\n✅ Workbook written to %s\n", *output)
	}
	return 0
}

// load reads records from a PDF or a previously exported workbook.
func load(path string, rules results.Rules) ([]results.GradeRecord, []results.Warning, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		records, err := workbook.ReadRecords(f)
		return records, nil, err

	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		doc, err := pdfservice.ReadPages(data)
		if err != nil {
			return nil, nil, err
		}
		ext, err := results.Extract(doc.Pages, rules)
		if err != nil {
			return nil, nil, err
		}
		return ext.Records, ext.Warnings, nil

	default:
		return nil, nil, fmt.Errorf("unsupported file %q: expected .pdf or .xlsx", path)
	}
}

func printDepartments(w io.Writer, report *results.StatsReport) {
	color.New(color.FgYellow).Fprintln(w, "\nDepartments")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Department", "Students", "Entries"})
	for _, dept := range report.Departments {
		s := report.DeptSummary[dept]
		table.Append([]string{dept, strconv.Itoa(s.Students), strconv.Itoa(s.Entries)})
	}
	table.Render()
}

func printSummary(w io.Writer, report *results.StatsReport) {
	color.New(color.FgYellow).Fprintln(w, "\nPass/Fail by Subject")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Dept", "Year", "Subject", "Passed", "Failed/Abs", "Total", "Pass %"})
	for _, row := range report.Breakdown {
		table.Append([]string{
			row.Dept,
			row.Year,
			row.Subject,
			strconv.Itoa(row.Pass),
			strconv.Itoa(row.Fail),
			strconv.Itoa(row.Total),
			strconv.FormatFloat(results.PassPercentage(row.Pass, row.Total), 'f', -1, 64),
		})
	}
	table.Render()
}

func printRecords(w io.Writer, records []results.GradeRecord) {
	color.New(color.FgYellow).Fprintln(w, "\nRecords")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Register No", "Year", "Dept", "Subject", "Grade"})
	for _, r := range records {
		table.Append([]string{r.RegisterNo, r.Year, r.Dept, r.Subject, r.Grade})
	}
	table.Render()
}

func printWarnings(w io.Writer, warnings []results.Warning, duplicates []results.DuplicatePair) {
	if len(warnings) == 0 && len(duplicates) == 0 {
		return
	}
	warn := color.New(color.FgYellow)
	warn.Fprintf(w, "\n⚠️  %d warnings\n", len(warnings)+len(duplicates))
	for _, wn := range warnings {
		fmt.Fprintf(w, "  page %d line %d: %s\n", wn.Page, wn.Line, wn.Message)
	}
	for _, d := range duplicates {
		fmt.Fprintf(w, "  %s has %d grades for %s\n", d.RegisterNo, d.Count, d.Subject)
	}
}

func writeWorkbook(path string, records []results.GradeRecord, report *results.StatsReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := workbook.Write(f, records, report); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
