package results

import "errors"

// Error taxonomy for a single analysis run.
//
// Go Pattern: Sentinel errors are package-level values compared with
// errors.Is. Callers wrap them with fmt.Errorf("...: %w", ...) to add context
// while keeping the kind checkable at the HTTP boundary.
var (
	// ErrSourceUnreadable means the document could not be opened or decoded.
	// It aborts the run immediately.
	ErrSourceUnreadable = errors.New("source document unreadable")

	// ErrNoData means the document was read but yielded zero in-scope records.
	ErrNoData = errors.New("no result data found")

	// ErrMalformedRecord marks a token that partially matched but could not be
	// decomposed. It is advisory: the token is skipped and scanning continues.
	ErrMalformedRecord = errors.New("malformed record")
)

// WarningKind classifies a data-quality warning raised during extraction.
type WarningKind string

const (
	WarningMalformedRecord WarningKind = "malformed_record"
	WarningDuplicateRecord WarningKind = "duplicate_record"
)

// Warning is an advisory problem found on one line of the source document.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Page    int         `json:"page"` // 1-based
	Line    int         `json:"line"` // 1-based within the page
	Token   string      `json:"token"`
	Message string      `json:"message"`
}
