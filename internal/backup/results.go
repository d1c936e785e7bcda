package backup

import "fmt"

// Failure is one non-fatal problem, located by line or record number when
// the format has one (0 otherwise).
type Failure struct {
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (f Failure) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("Line %d: %s", f.Line, f.Message)
	}
	return f.Message
}

// ImportResults counts what an import did. Values are combined with Add.
type ImportResults struct {
	BooksProcessed int `json:"books_processed"`
	BooksCreated   int `json:"books_created"`
	BooksUpdated   int `json:"books_updated"`
	BooksSkipped   int `json:"books_skipped"`
	BooksFailed    int `json:"books_failed"`

	CoversProcessed int    `json:"covers_processed"`
	CoversCreated   int    `json:"covers_created"`
	CoversUpdated   int    `json:"covers_updated"`
	CoversSkipped   int    `json:"covers_skipped"`
	CoversMissing   [2]int `json:"covers_missing"`

	Styles      int `json:"styles"`
	Preferences int `json:"preferences"`

	Failures  []Failure `json:"failures,omitempty"`
	Cancelled bool      `json:"cancelled"`
}

// Add returns the sum of r and o. Failures are concatenated in order; the
// cancelled flag is sticky.
func (r ImportResults) Add(o ImportResults) ImportResults {
	sum := ImportResults{
		BooksProcessed:  r.BooksProcessed + o.BooksProcessed,
		BooksCreated:    r.BooksCreated + o.BooksCreated,
		BooksUpdated:    r.BooksUpdated + o.BooksUpdated,
		BooksSkipped:    r.BooksSkipped + o.BooksSkipped,
		BooksFailed:     r.BooksFailed + o.BooksFailed,
		CoversProcessed: r.CoversProcessed + o.CoversProcessed,
		CoversCreated:   r.CoversCreated + o.CoversCreated,
		CoversUpdated:   r.CoversUpdated + o.CoversUpdated,
		CoversSkipped:   r.CoversSkipped + o.CoversSkipped,
		Styles:          r.Styles + o.Styles,
		Preferences:     r.Preferences + o.Preferences,
		Cancelled:       r.Cancelled || o.Cancelled,
	}
	for i := range sum.CoversMissing {
		sum.CoversMissing[i] = r.CoversMissing[i] + o.CoversMissing[i]
	}
	if len(r.Failures)+len(o.Failures) > 0 {
		sum.Failures = make([]Failure, 0, len(r.Failures)+len(o.Failures))
		sum.Failures = append(sum.Failures, r.Failures...)
		sum.Failures = append(sum.Failures, o.Failures...)
	}
	return sum
}

// WithFailure returns r with one more failure recorded.
func (r ImportResults) WithFailure(line int, msg string) ImportResults {
	return r.Add(ImportResults{Failures: []Failure{{Line: line, Message: msg}}})
}

// WithImportError records a per-record import error as a failure.
func (r ImportResults) WithImportError(err *ImportError) ImportResults {
	return r.WithFailure(err.Line, err.Err.Error())
}

// ExportResults counts what an export wrote.
type ExportResults struct {
	Books         int    `json:"books"`
	Covers        int    `json:"covers"`
	CoversMissing [2]int `json:"covers_missing"`
	Styles        int    `json:"styles"`
	Preferences   int    `json:"preferences"`

	// Checksum is the hex BLAKE3 digest of the archive, when the
	// destination is a local file.
	Checksum string `json:"checksum,omitempty"`

	Failures  []Failure `json:"failures,omitempty"`
	Cancelled bool      `json:"cancelled"`
}

// Add returns the sum of r and o.
func (r ExportResults) Add(o ExportResults) ExportResults {
	sum := ExportResults{
		Books:       r.Books + o.Books,
		Covers:      r.Covers + o.Covers,
		Styles:      r.Styles + o.Styles,
		Preferences: r.Preferences + o.Preferences,
		Checksum:    r.Checksum,
		Cancelled:   r.Cancelled || o.Cancelled,
	}
	for i := range sum.CoversMissing {
		sum.CoversMissing[i] = r.CoversMissing[i] + o.CoversMissing[i]
	}
	if o.Checksum != "" {
		sum.Checksum = o.Checksum
	}
	if len(r.Failures)+len(o.Failures) > 0 {
		sum.Failures = make([]Failure, 0, len(r.Failures)+len(o.Failures))
		sum.Failures = append(sum.Failures, r.Failures...)
		sum.Failures = append(sum.Failures, o.Failures...)
	}
	return sum
}

// Outcome is the terminal state of an operation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// OutcomeOf classifies the return values of Read or Write.
func OutcomeOf(cancelled bool, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case cancelled:
		return OutcomeCancelled
	default:
		return OutcomeCompleted
	}
}
