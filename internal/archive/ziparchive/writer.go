package ziparchive

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/mrlokans/bookvault/internal/backup"
)

// Writer writes a zip archive to a destination.
type Writer struct {
	out    backup.DestinationWriter
	zw     *zip.Writer
	closed bool
}

func NewWriter(dst backup.Destination) (*Writer, error) {
	out, err := dst.Create()
	if err != nil {
		return nil, err
	}
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	return &Writer{out: out, zw: zw}, nil
}

// PutFile adds an entry. Images are passed with compress=false and stored
// as-is.
func (w *Writer) PutFile(name string, r io.Reader, compress bool) error {
	method := zip.Store
	if compress {
		method = zip.Deflate
	}
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: backup.EntryModTime(r),
	})
	if err != nil {
		return &backup.IOError{Op: "add " + name, Err: err}
	}
	if _, err := io.Copy(fw, r); err != nil {
		return &backup.IOError{Op: "write " + name, Err: err}
	}
	return nil
}

func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.zw.Close()
	return w.out.Abort()
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.zw.Close(); err != nil {
		w.out.Abort()
		return &backup.IOError{Op: "finish zip archive", Err: err}
	}
	if err := w.out.Close(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}
