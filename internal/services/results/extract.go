package results

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// registerNoPattern finds a whole register number token anywhere on a line.
	registerNoPattern = regexp.MustCompile(`\b[A-Z]{3}\d{2}[A-Z]{2,3}\d{3}\b`)

	// courseGradePattern matches "MAT203(F)" or "CST201(A+)".
	courseGradePattern = regexp.MustCompile(`([A-Z]{3}\d{3})\(([\w+]+)\)`)

	// coursePrefixPattern matches the opening of a course token. A prefix that
	// is not the start of a full courseGradePattern match is malformed.
	coursePrefixPattern = regexp.MustCompile(`[A-Z]{3}\d{3}\(`)
)

// Extraction is the output of one Extract run.
type Extraction struct {
	Records   []GradeRecord `json:"records"`
	Warnings  []Warning     `json:"warnings"`
	PageCount int           `json:"page_count"`
	LineCount int           `json:"line_count"`
}

// scanContext is the state carried from one line to the next: the register
// number most recently seen. Course tokens on later lines attach to it until
// another register number replaces it.
type scanContext struct {
	registerNo string
}

type recordKey struct {
	registerNo string
	subject    string
}

// Extract scans page text line by line and returns one GradeRecord per
// in-scope course/grade token.
//
// Pages and lines are processed in order. A (register number, subject) pair
// seen twice keeps its first grade; the repeat is reported as a
// duplicate_record warning instead of being counted again.
//
// Extract returns an error wrapping ErrNoData when nothing in scope was found.
func Extract(pages []string, rules Rules) (*Extraction, error) {
	rs := rules.compile()
	out := &Extraction{
		Records:   []GradeRecord{},
		Warnings:  []Warning{},
		PageCount: len(pages),
	}
	seen := make(map[recordKey]struct{})

	// Go Pattern: An explicit fold. The per-line step takes the current
	// context and returns the next one; nothing else survives between lines.
	var ctx scanContext
	for p, page := range pages {
		for l, line := range splitLines(page) {
			out.LineCount++

			var records []GradeRecord
			var warnings []Warning
			ctx, records, warnings = scanLine(ctx, line, rs)

			for _, w := range warnings {
				w.Page, w.Line = p+1, l+1
				out.Warnings = append(out.Warnings, w)
			}

			for _, rec := range records {
				key := recordKey{registerNo: rec.RegisterNo, subject: rec.Subject}
				if _, dup := seen[key]; dup {
					out.Warnings = append(out.Warnings, Warning{
						Kind:    WarningDuplicateRecord,
						Page:    p + 1,
						Line:    l + 1,
						Token:   rec.Subject + "(" + rec.Grade + ")",
						Message: fmt.Sprintf("%s already has a grade for %s; keeping the first one", rec.RegisterNo, rec.Subject),
					})
					continue
				}
				seen[key] = struct{}{}
				out.Records = append(out.Records, rec)
			}
		}
	}

	if len(out.Records) == 0 {
		return nil, fmt.Errorf("%w: scanned %d pages, %d lines", ErrNoData, out.PageCount, out.LineCount)
	}
	return out, nil
}

// scanLine is the per-line step of Extract. It returns the context for the
// next line, the records found on this line and any advisory warnings.
func scanLine(ctx scanContext, line string, rs ruleSet) (scanContext, []GradeRecord, []Warning) {
	if token := registerNoPattern.FindString(line); token != "" {
		ctx = scanContext{registerNo: token}
	}
	if ctx.registerNo == "" {
		return ctx, nil, nil
	}

	// Year and department always come from the carried register number, not
	// from whatever matched on this line.
	reg, err := ParseRegisterNo(ctx.registerNo)
	if err != nil {
		return ctx, nil, []Warning{{
			Kind:    WarningMalformedRecord,
			Token:   ctx.registerNo,
			Message: err.Error(),
		}}
	}

	// Out-of-scope department: drop the line but keep tracking.
	if !rs.allowsDept(reg.Dept) {
		return ctx, nil, nil
	}

	matches := courseGradePattern.FindAllStringSubmatchIndex(line, -1)
	starts := make(map[int]struct{}, len(matches))
	records := make([]GradeRecord, 0, len(matches))
	for _, m := range matches {
		starts[m[0]] = struct{}{}
		records = append(records, GradeRecord{
			RegisterNo: ctx.registerNo,
			Year:       reg.AdmissionYear(),
			Dept:       reg.Dept,
			Subject:    line[m[2]:m[3]],
			Grade:      line[m[4]:m[5]],
		})
	}

	var warnings []Warning
	for _, loc := range coursePrefixPattern.FindAllStringIndex(line, -1) {
		if _, ok := starts[loc[0]]; ok {
			continue
		}
		token := tokenAt(line, loc[0])
		warnings = append(warnings, Warning{
			Kind:    WarningMalformedRecord,
			Token:   token,
			Message: fmt.Sprintf("%v: course token %q has no valid grade", ErrMalformedRecord, token),
		})
	}

	return ctx, records, warnings
}

// splitLines splits page text into lines, tolerating CRLF line endings.
func splitLines(page string) []string {
	if page == "" {
		return nil
	}
	lines := strings.Split(page, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// tokenAt returns the whitespace-delimited token starting at i, capped so a
// runaway token does not flood the warning list.
func tokenAt(line string, i int) string {
	rest := line[i:]
	if end := strings.IndexAny(rest, " \t"); end >= 0 {
		rest = rest[:end]
	}
	if len(rest) > 24 {
		rest = rest[:24]
	}
	return rest
}
