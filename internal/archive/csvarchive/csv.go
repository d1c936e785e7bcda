// Package csvarchive treats a single CSV file as an archive holding one
// books entry.
package csvarchive

import (
	"fmt"
	"io"
	"time"

	"github.com/mrlokans/bookvault/internal/backup"
)

// Reader exposes the file as a single tabular books entry.
type Reader struct {
	src  backup.Source
	done bool
}

func NewReader(src backup.Source) (*Reader, error) {
	return &Reader{src: src}, nil
}

// ReadHeader returns a versionless header with no creation date, so sync
// imports from a CSV file are rejected.
func (r *Reader) ReadHeader() (*backup.ArchiveInfo, error) {
	return &backup.ArchiveInfo{Version: 0}, nil
}

func (r *Reader) entry() *backup.Entry {
	e := backup.NewEntry(r.src.Name(), time.Time{}, -1, r.src.Open)
	e.Kind = backup.RecordBooks
	e.Encoding = backup.EncodingTabular
	return e
}

func (r *Reader) Next() (*backup.Entry, error) {
	if r.done {
		return nil, io.EOF
	}
	r.done = true
	return r.entry(), nil
}

func (r *Reader) Find(kind backup.RecordKind) (*backup.Entry, error) {
	if kind != backup.RecordBooks {
		return nil, backup.ErrEntryNotFound
	}
	r.done = true
	return r.entry(), nil
}

func (r *Reader) Reset() error {
	r.done = false
	return nil
}

func (r *Reader) Close() error { return nil }

// Writer writes the books entry as the whole file. Any other entry is
// rejected.
type Writer struct {
	out     backup.DestinationWriter
	written bool
	closed  bool
}

func NewWriter(dst backup.Destination) (*Writer, error) {
	out, err := dst.Create()
	if err != nil {
		return nil, err
	}
	return &Writer{out: out}, nil
}

func (w *Writer) PutFile(name string, r io.Reader, _ bool) error {
	if backup.ResolveRecordKind(name) != backup.RecordBooks || backup.ResolveEncoding(name) != backup.EncodingTabular {
		return &backup.InvalidArchiveError{Reason: fmt.Sprintf("csv archive cannot hold entry %s", name)}
	}
	if w.written {
		return &backup.InvalidArchiveError{Reason: "csv archive holds a single books entry"}
	}
	w.written = true
	if _, err := io.Copy(w.out, r); err != nil {
		return &backup.IOError{Op: "write " + name, Err: err}
	}
	return nil
}

func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.out.Abort()
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.out.Close()
}
