// Package results turns result-sheet page text into grade records and
// computes pass/fail statistics over them.
//
// The package has two entry points used in sequence: Extract scans page text
// into a flat []GradeRecord, and Aggregate derives a StatsReport from any
// record slice (freshly extracted or reloaded from an exported workbook).
//
// Go Pattern: Both functions are pure. They take everything they need as
// arguments (including the Rules) and return freshly built values, so they
// are safe to call from many goroutines at once without locking.
package results

import (
	"errors"
	"fmt"
	"regexp"
)

// GradeRecord is one student–subject grade found in a result document.
type GradeRecord struct {
	RegisterNo string `json:"register_no"`
	Year       string `json:"year"`
	Dept       string `json:"dept"`
	Name       string `json:"name"` // Best-effort; usually empty
	Subject    string `json:"subject"`
	Grade      string `json:"grade"`
}

// RegisterNo is the structural decomposition of a register number:
// <College:3 letters><Year:2 digits><Dept:2-3 letters><Roll:3 digits>.
type RegisterNo struct {
	College string
	Year    string // Two-digit admission year as printed
	Dept    string
	Roll    string
}

// AdmissionYear returns the four-digit admission year ("19" -> "2019").
func (r RegisterNo) AdmissionYear() string {
	return "20" + r.Year
}

var registerNoShape = regexp.MustCompile(`^([A-Z]{3})(\d{2})([A-Z]{2,3})(\d{3})$`)

// ParseRegisterNo decomposes a full register number token.
// It returns ErrMalformedRecord when the token does not have the expected shape.
func ParseRegisterNo(s string) (RegisterNo, error) {
	m := registerNoShape.FindStringSubmatch(s)
	if m == nil {
		return RegisterNo{}, fmt.Errorf("%w: register number %q", ErrMalformedRecord, s)
	}
	return RegisterNo{College: m[1], Year: m[2], Dept: m[3], Roll: m[4]}, nil
}

// Validate checks the fields a record needs before it can be aggregated.
// Callers loading records from an untrusted source (a JSON body, an uploaded
// workbook) should validate first; Aggregate itself never fails.
func (r GradeRecord) Validate() error {
	switch {
	case r.RegisterNo == "":
		return errors.New("register_no is required")
	case r.Subject == "":
		return errors.New("subject is required")
	case r.Dept == "":
		return fmt.Errorf("dept is required for %s", r.RegisterNo)
	case r.Year == "":
		return fmt.Errorf("year is required for %s", r.RegisterNo)
	}
	return nil
}

// ValidateRecords validates every record and reports the first bad row (1-based).
func ValidateRecords(records []GradeRecord) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return nil
}
