package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// ErrInvalidArchive is matched by every InvalidArchiveError.
	ErrInvalidArchive = errors.New("archive format not supported")

	// ErrEntryNotFound is returned by ArchiveReader.Find.
	ErrEntryNotFound = errors.New("archive entry not found")

	// ErrStaleEntry is returned when a forward-only archive entry is
	// opened after the reader moved past it.
	ErrStaleEntry = errors.New("archive entry is no longer readable")
)

// InvalidArchiveError means the container failed structural validation or
// that no reader/writer exists for it.
type InvalidArchiveError struct {
	Reason string
	Err    error
}

func (e *InvalidArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid archive: %s: %v", e.Reason, e.Err)
	}
	return "invalid archive: " + e.Reason
}

func (e *InvalidArchiveError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidArchive, e.Err}
	}
	return []error{ErrInvalidArchive}
}

// ImportError is a semantic problem with one record.
type ImportError struct {
	Line int
	Err  error
}

func (e *ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ImportError) Unwrap() error { return e.Err }

// IOError is a failure to read or write the underlying bytes.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// StorageError is a failure of the target store for one record.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// OperationError is the only error type returned by a top-level import or
// export. It wraps whatever made the operation fail.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// AsOperationError wraps err unless it already is an OperationError.
func AsOperationError(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}

// User-facing messages.
const (
	MessageDiskFull      = "not enough space left on the target device"
	MessageIOFailure     = "a file could not be read or written"
	MessageInvalidFormat = "archive format not supported"
	MessageUnknown       = "an unknown error occurred"
)

// UserMessage maps an error to the message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, syscall.ENOSPC) {
		return MessageDiskFull
	}
	if errors.Is(err, ErrInvalidArchive) {
		return MessageInvalidFormat
	}
	var ioErr *IOError
	var pathErr *fs.PathError
	if errors.As(err, &ioErr) || errors.As(err, &pathErr) {
		return MessageIOFailure
	}
	return MessageUnknown
}
