package results

import (
	"math"
	"sort"
)

// CellStats are the counts for one (department, year, subject) cell.
type CellStats struct {
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Total int `json:"total"`
}

// DeptSummary is the per-department overview.
type DeptSummary struct {
	Students int `json:"count"`   // Distinct register numbers
	Entries  int `json:"entries"` // Grade records
}

// SubjectRow is one cell of the breakdown in display order.
type SubjectRow struct {
	Dept    string `json:"dept"`
	Year    string `json:"year"`
	Subject string `json:"subject"`
	CellStats
}

// DuplicatePair is a (register number, subject) pair that occurs more than
// once in the aggregated records.
type DuplicatePair struct {
	RegisterNo string `json:"register_no"`
	Subject    string `json:"subject"`
	Count      int    `json:"count"`
}

// StatsReport is derived from a record slice by Aggregate. Treat it as
// read-only once built.
type StatsReport struct {
	TotalStudents int      `json:"total_students"`
	TotalEntries  int      `json:"total_entries"`
	Subjects      []string `json:"subjects"`    // First-seen order
	Departments   []string `json:"departments"` // Sorted

	// DeptYearSubjectStats maps dept -> year -> subject -> counts.
	DeptYearSubjectStats map[string]map[string]map[string]CellStats `json:"dept_sub_stats"`
	DeptSummary          map[string]DeptSummary                      `json:"dept_summary"`

	// Breakdown lists the same cells as DeptYearSubjectStats, ordered by
	// department, then year ascending, then subject in first-seen order.
	Breakdown []SubjectRow `json:"breakdown"`

	// Duplicates flags repeated (register number, subject) pairs. They are
	// still counted above; this is a data-quality signal for the caller.
	Duplicates []DuplicatePair `json:"duplicates"`
}

type cellKey struct {
	dept, year, subject string
}

// Aggregate computes the StatsReport for records. It never fails and never
// modifies its input; the same input always yields the same report.
//
// A grade counts as a fail when it is in rules.FailGrades. Pass is derived as
// total minus fail, so any other grade string counts as a pass.
func Aggregate(records []GradeRecord, rules Rules) *StatsReport {
	rs := rules.compile()

	report := &StatsReport{
		TotalEntries:         len(records),
		Subjects:             []string{},
		Departments:          []string{},
		DeptYearSubjectStats: make(map[string]map[string]map[string]CellStats),
		DeptSummary:          make(map[string]DeptSummary),
		Breakdown:            []SubjectRow{},
		Duplicates:           []DuplicatePair{},
	}

	students := make(map[string]struct{})
	subjectSeen := make(map[string]struct{})
	deptStudents := make(map[string]map[string]struct{})
	deptEntries := make(map[string]int)
	deptYears := make(map[string]map[string]struct{})

	// Subjects within each (dept, year) slice, in first-seen order.
	sliceSubjects := make(map[[2]string][]string)
	cells := make(map[cellKey]CellStats)

	pairCounts := make(map[recordKey]int)
	var pairOrder []recordKey

	for _, r := range records {
		students[r.RegisterNo] = struct{}{}

		if _, ok := subjectSeen[r.Subject]; !ok {
			subjectSeen[r.Subject] = struct{}{}
			report.Subjects = append(report.Subjects, r.Subject)
		}

		if deptStudents[r.Dept] == nil {
			deptStudents[r.Dept] = make(map[string]struct{})
			deptYears[r.Dept] = make(map[string]struct{})
		}
		deptStudents[r.Dept][r.RegisterNo] = struct{}{}
		deptYears[r.Dept][r.Year] = struct{}{}
		deptEntries[r.Dept]++

		key := cellKey{dept: r.Dept, year: r.Year, subject: r.Subject}
		cell, ok := cells[key]
		if !ok {
			slice := [2]string{r.Dept, r.Year}
			sliceSubjects[slice] = append(sliceSubjects[slice], r.Subject)
		}
		cell.Total++
		if rs.isFail(r.Grade) {
			cell.Fail++
		}
		cell.Pass = cell.Total - cell.Fail
		cells[key] = cell

		pk := recordKey{registerNo: r.RegisterNo, subject: r.Subject}
		if pairCounts[pk] == 0 {
			pairOrder = append(pairOrder, pk)
		}
		pairCounts[pk]++
	}

	report.TotalStudents = len(students)

	for dept := range deptStudents {
		report.Departments = append(report.Departments, dept)
	}
	sort.Strings(report.Departments)

	for _, dept := range report.Departments {
		report.DeptSummary[dept] = DeptSummary{
			Students: len(deptStudents[dept]),
			Entries:  deptEntries[dept],
		}

		years := make([]string, 0, len(deptYears[dept]))
		for y := range deptYears[dept] {
			years = append(years, y)
		}
		sort.Strings(years)

		byYear := make(map[string]map[string]CellStats, len(years))
		for _, year := range years {
			bySubject := make(map[string]CellStats)
			for _, subject := range sliceSubjects[[2]string{dept, year}] {
				cell := cells[cellKey{dept: dept, year: year, subject: subject}]
				bySubject[subject] = cell
				report.Breakdown = append(report.Breakdown, SubjectRow{
					Dept:      dept,
					Year:      year,
					Subject:   subject,
					CellStats: cell,
				})
			}
			byYear[year] = bySubject
		}
		report.DeptYearSubjectStats[dept] = byYear
	}

	for _, pk := range pairOrder {
		if n := pairCounts[pk]; n > 1 {
			report.Duplicates = append(report.Duplicates, DuplicatePair{
				RegisterNo: pk.registerNo,
				Subject:    pk.subject,
				Count:      n,
			})
		}
	}

	return report
}

// PassPercentage returns pass/total*100 rounded to two decimal places, or 0
// when total is 0.
func PassPercentage(pass, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(pass)/float64(total)*100*100) / 100
}
