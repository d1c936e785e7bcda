package tararchive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/bookvault/internal/backup"
)

// Writer writes an uncompressed tar stream. The compress hint is ignored.
type Writer struct {
	out    backup.DestinationWriter
	tw     *tar.Writer
	closed bool
}

func NewWriter(dst backup.Destination) (*Writer, error) {
	out, err := dst.Create()
	if err != nil {
		return nil, err
	}
	return &Writer{out: out, tw: tar.NewWriter(out)}, nil
}

// PutFile writes one entry. Tar headers need the size up front, so payloads
// of unknown length are buffered in memory.
func (w *Writer) PutFile(name string, r io.Reader, _ bool) error {
	modTime := backup.EntryModTime(r)

	size, body, err := measure(r)
	if err != nil {
		return &backup.IOError{Op: "read " + name, Err: err}
	}
	hdr := &tar.Header{
		Name:     name,
		Mode:     0644,
		Size:     size,
		ModTime:  modTime.Truncate(time.Second),
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return &backup.IOError{Op: "add " + name, Err: err}
	}
	if _, err := io.Copy(w.tw, body); err != nil {
		return &backup.IOError{Op: "write " + name, Err: err}
	}
	return nil
}

func measure(r io.Reader) (int64, io.Reader, error) {
	inner := r
	if tr, ok := r.(backup.TimedReader); ok {
		inner = tr.Reader
	}
	switch v := inner.(type) {
	case interface{ Len() int }:
		return int64(v.Len()), inner, nil
	case *os.File:
		fi, err := v.Stat()
		if err != nil {
			return 0, nil, err
		}
		pos, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, nil, err
		}
		return fi.Size() - pos, inner, nil
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, inner); err != nil {
		return 0, nil, err
	}
	return int64(buf.Len()), &buf, nil
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
	if err := w.tw.Close(); err != nil {
		w.out.Abort()
		return &backup.IOError{Op: "finish tar archive", Err: err}
	}
	if err := w.out.Close(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}
