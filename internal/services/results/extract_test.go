package results

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  []GradeRecord
	}{
		{
			name:  "two course tokens on the register number line",
			pages: []string{"BMC19CS046 ANJALI MAT203(F) CST201(A+)"},
			want: []GradeRecord{
				{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "F"},
				{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "CST201", Grade: "A+"},
			},
		},
		{
			name:  "register number carries to following lines",
			pages: []string{"BMC20ME012\nMET201(B) MET203(Absent)\nHUT200(S)"},
			want: []GradeRecord{
				{RegisterNo: "BMC20ME012", Year: "2020", Dept: "ME", Subject: "MET201", Grade: "B"},
				{RegisterNo: "BMC20ME012", Year: "2020", Dept: "ME", Subject: "MET203", Grade: "Absent"},
				{RegisterNo: "BMC20ME012", Year: "2020", Dept: "ME", Subject: "HUT200", Grade: "S"},
			},
		},
		{
			name:  "register number carries across pages",
			pages: []string{"BMC21EC003 ECT201(C)", "ECT203(FE)"},
			want: []GradeRecord{
				{RegisterNo: "BMC21EC003", Year: "2021", Dept: "EC", Subject: "ECT201", Grade: "C"},
				{RegisterNo: "BMC21EC003", Year: "2021", Dept: "EC", Subject: "ECT203", Grade: "FE"},
			},
		},
		{
			name: "out of scope department still replaces the carried register number",
			pages: []string{
				"BMC19CS046 MAT203(F)\n" +
					"BMC19IT010 MAT203(A)\n" +
					"CST201(B)\n" +
					"BMC19EE001 EET201(C)",
			},
			want: []GradeRecord{
				{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "F"},
				{RegisterNo: "BMC19EE001", Year: "2019", Dept: "EE", Subject: "EET201", Grade: "C"},
			},
		},
		{
			name:  "course tokens before any register number are ignored",
			pages: []string{"Course MAT203(F) header\nBMC22AD100 ADT201(A)"},
			want: []GradeRecord{
				{RegisterNo: "BMC22AD100", Year: "2022", Dept: "AD", Subject: "ADT201", Grade: "A"},
			},
		},
		{
			name:  "crlf line endings and empty pages",
			pages: []string{"", "BMC19AI007 AIT201(B+)\r\nAIT203(P)\r\n"},
			want: []GradeRecord{
				{RegisterNo: "BMC19AI007", Year: "2019", Dept: "AI", Subject: "AIT201", Grade: "B+"},
				{RegisterNo: "BMC19AI007", Year: "2019", Dept: "AI", Subject: "AIT203", Grade: "P"},
			},
		},
		{
			name:  "embedded register number needs word boundaries",
			pages: []string{"XBMC19CS046 MAT203(F)\nBMC19CE050 CET201(A)"},
			want: []GradeRecord{
				{RegisterNo: "BMC19CE050", Year: "2019", Dept: "CE", Subject: "CET201", Grade: "A"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.pages, DefaultRules())
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(got.Records, tt.want) {
				t.Errorf("Extract() records =\n%+v\nwant\n%+v", got.Records, tt.want)
			}
		})
	}
}

func TestExtract_NoData(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
	}{
		{"no pages", nil},
		{"no register numbers", []string{"KTU B.Tech results\nMAT203(F) CST201(A)"}},
		{"only out of scope departments", []string{"BMC19IT001 ITT201(A)\nBMC19CHE002 CHT201(B)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.pages, DefaultRules())
			if !errors.Is(err, ErrNoData) {
				t.Fatalf("Extract() error = %v, want ErrNoData", err)
			}
			if got != nil {
				t.Errorf("Extract() = %+v, want nil", got)
			}
			if errors.Is(err, ErrSourceUnreadable) {
				t.Error("ErrNoData must not be reported as ErrSourceUnreadable")
			}
		})
	}
}

func TestExtract_DuplicatePairKeepsFirst(t *testing.T) {
	pages := []string{"BMC19CS046 MAT203(F)", "BMC19CS046 MAT203(A) CST201(B)"}

	got, err := Extract(pages, DefaultRules())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []GradeRecord{
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "F"},
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "CST201", Grade: "B"},
	}
	if !reflect.DeepEqual(got.Records, want) {
		t.Errorf("records = %+v, want %+v", got.Records, want)
	}

	if len(got.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want exactly one", got.Warnings)
	}
	w := got.Warnings[0]
	if w.Kind != WarningDuplicateRecord || w.Page != 2 || w.Line != 1 || w.Token != "MAT203(A)" {
		t.Errorf("warning = %+v", w)
	}
}

func TestExtract_MalformedTokenIsSkipped(t *testing.T) {
	pages := []string{"header\nBMC19CS046 MAT203() CST201(A+) PHT100(-)"}

	got, err := Extract(pages, DefaultRules())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got.Records) != 1 || got.Records[0].Subject != "CST201" {
		t.Errorf("records = %+v, want only CST201", got.Records)
	}

	if len(got.Warnings) != 2 {
		t.Fatalf("warnings = %+v, want two", got.Warnings)
	}
	for i, token := range []string{"MAT203()", "PHT100(-)"} {
		w := got.Warnings[i]
		if w.Kind != WarningMalformedRecord || w.Token != token || w.Page != 1 || w.Line != 2 {
			t.Errorf("warning %d = %+v, want malformed %q at 1:2", i, w, token)
		}
	}
}

func TestExtract_Counts(t *testing.T) {
	got, err := Extract([]string{"a\nb\nBMC19CS046 MAT203(F)", "c"}, DefaultRules())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.PageCount != 2 || got.LineCount != 4 {
		t.Errorf("PageCount, LineCount = %d, %d, want 2, 4", got.PageCount, got.LineCount)
	}
}

func TestExtract_AlternateRules(t *testing.T) {
	rules := Rules{Departments: []string{"IT"}, FailGrades: []string{"F"}}
	pages := []string{"BMC19IT001 ITT201(A)\nBMC19CS046 MAT203(F)"}

	got, err := Extract(pages, rules)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got.Records) != 1 || got.Records[0].Dept != "IT" {
		t.Errorf("records = %+v, want only the IT record", got.Records)
	}
}

func TestScanLine_ContextIsExplicit(t *testing.T) {
	rs := DefaultRules().compile()

	ctx, recs, _ := scanLine(scanContext{}, "CST201(A)", rs)
	if ctx.registerNo != "" || len(recs) != 0 {
		t.Fatalf("empty context produced %q, %+v", ctx.registerNo, recs)
	}

	ctx, _, _ = scanLine(ctx, "BMC19CS046", rs)
	if ctx.registerNo != "BMC19CS046" {
		t.Fatalf("context = %q, want BMC19CS046", ctx.registerNo)
	}

	next, recs, _ := scanLine(ctx, "CST201(A)", rs)
	if next != ctx {
		t.Errorf("context changed on a line without a register number: %+v", next)
	}
	if len(recs) != 1 || recs[0].RegisterNo != "BMC19CS046" {
		t.Errorf("records = %+v", recs)
	}
}

func TestParseRegisterNo(t *testing.T) {
	tests := []struct {
		input   string
		want    RegisterNo
		wantErr bool
	}{
		{input: "BMC19CS046", want: RegisterNo{College: "BMC", Year: "19", Dept: "CS", Roll: "046"}},
		{input: "TVE22CHE101", want: RegisterNo{College: "TVE", Year: "22", Dept: "CHE", Roll: "101"}},
		{input: "BMC19CS46", wantErr: true},
		{input: "bmc19cs046", wantErr: true},
		{input: "BMC19CS046X", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRegisterNo(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRecord) {
					t.Errorf("ParseRegisterNo(%q) error = %v, want ErrMalformedRecord", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRegisterNo(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRegisterNo(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
