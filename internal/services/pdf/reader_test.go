package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

func TestValidatePDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf magic bytes", []byte("%PDF-1.7\n%âãÏÓ\n"), true},
		{"plain text", []byte("BMC19CS046 MAT203(F)"), false},
		{"png", []byte("\x89PNG\r\n\x1a\n0000"), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePDF(tt.data); got != tt.want {
				t.Errorf("ValidatePDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadPages_Unreadable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a pdf", []byte("name,grade\nBMC19CS046,F\n")},
		{"truncated pdf", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadPages(tt.data)
			if !errors.Is(err, results.ErrSourceUnreadable) {
				t.Fatalf("ReadPages() error = %v, want ErrSourceUnreadable", err)
			}
			if doc != nil {
				t.Errorf("ReadPages() doc = %+v, want nil", doc)
			}
		})
	}
}

func TestRowText(t *testing.T) {
	tests := []struct {
		name string
		runs []pdf.Text
		want string
	}{
		{
			name: "separate words get a space",
			runs: []pdf.Text{
				{X: 10, W: 60, S: "BMC19CS046", FontSize: 10},
				{X: 80, W: 50, S: "MAT203(F)", FontSize: 10},
			},
			want: "BMC19CS046 MAT203(F)",
		},
		{
			name: "touching glyphs join",
			runs: []pdf.Text{
				{X: 0, W: 5, S: "C", FontSize: 10},
				{X: 5, W: 5, S: "S", FontSize: 10},
				{X: 10, W: 5, S: "T", FontSize: 10},
			},
			want: "CST",
		},
		{
			name: "runs are ordered left to right",
			runs: []pdf.Text{
				{X: 80, W: 50, S: "CST201(A+)", FontSize: 10},
				{X: 10, W: 60, S: "BMC19CS046", FontSize: 10},
			},
			want: "BMC19CS046 CST201(A+)",
		},
		{
			name: "existing spaces are not doubled",
			runs: []pdf.Text{
				{X: 0, W: 10, S: "A ", FontSize: 10},
				{X: 30, W: 10, S: "B", FontSize: 10},
			},
			want: "A B",
		},
		{name: "empty row", runs: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowText(tt.runs); got != tt.want {
				t.Errorf("rowText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// buildPDF writes a one-page PDF whose page content stream is content, with
// Helvetica bound to /F1.
func buildPDF(t *testing.T, content string) []byte {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestReadPages_LinePositioning(t *testing.T) {
	wantLines := []string{
		"BMC19CS046 MAT203(F)",
		"BMC19IT001 CST201(A)",
		"BMC19ME002 MAT203(B)",
	}
	// IT is not a tracked department, so its grade must not be credited to
	// the CS student printed on the line above.
	wantRecords := []results.GradeRecord{
		{RegisterNo: "BMC19CS046", Year: "2019", Dept: "CS", Subject: "MAT203", Grade: "F"},
		{RegisterNo: "BMC19ME002", Year: "2019", Dept: "ME", Subject: "MAT203", Grade: "B"},
	}

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "Td",
			content: "BT /F1 10 Tf 50 750 Td (BMC19CS046 MAT203\\(F\\)) Tj " +
				"0 -14 Td (BMC19IT001 CST201\\(A\\)) Tj " +
				"0 -14 Td (BMC19ME002 MAT203\\(B\\)) Tj ET",
		},
		{
			name: "T*",
			content: "BT /F1 10 Tf 14 TL 50 750 Td (BMC19CS046 MAT203\\(F\\)) Tj " +
				"T* (BMC19IT001 CST201\\(A\\)) Tj " +
				"T* (BMC19ME002 MAT203\\(B\\)) Tj ET",
		},
		{
			name: "Tm",
			content: "BT /F1 10 Tf 1 0 0 1 50 750 Tm (BMC19CS046 MAT203\\(F\\)) Tj " +
				"1 0 0 1 50 736 Tm (BMC19IT001 CST201\\(A\\)) Tj " +
				"1 0 0 1 50 722 Tm (BMC19ME002 MAT203\\(B\\)) Tj ET",
		},
		{
			name: "runs drawn bottom up",
			content: "BT /F1 10 Tf 1 0 0 1 50 722 Tm (BMC19ME002 MAT203\\(B\\)) Tj " +
				"1 0 0 1 50 750 Tm (BMC19CS046 MAT203\\(F\\)) Tj " +
				"1 0 0 1 50 736 Tm (BMC19IT001 CST201\\(A\\)) Tj ET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ReadPages(buildPDF(t, tt.content))
			if err != nil {
				t.Fatalf("ReadPages() error = %v", err)
			}
			if doc.PageCount != 1 || doc.EmptyPages != 0 {
				t.Fatalf("PageCount = %d, EmptyPages = %d, want 1 and 0", doc.PageCount, doc.EmptyPages)
			}

			if lines := strings.Split(doc.Pages[0], "\n"); !reflect.DeepEqual(lines, wantLines) {
				t.Errorf("page lines = %q, want %q", lines, wantLines)
			}

			ext, err := results.Extract(doc.Pages, results.DefaultRules())
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !reflect.DeepEqual(ext.Records, wantRecords) {
				t.Errorf("records = %+v, want %+v", ext.Records, wantRecords)
			}
		})
	}
}

func TestGroupRows(t *testing.T) {
	texts := []pdf.Text{
		{Y: 700, X: 80, S: "B"},
		{Y: 750, X: 10, S: "top"},
		{Y: 701.5, X: 10, S: "A"},
		{Y: 650, X: 10, S: "bottom"},
	}

	rows := groupRows(texts)
	var got []string
	for _, row := range rows {
		got = append(got, rowText(row))
	}
	want := []string{"top", "A B", "bottom"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %q, want %q", got, want)
	}
}
