// Package ziparchive implements the compressed multi-entry container.
// Deflate is provided by klauspost/compress instead of the standard
// library's implementation.
package ziparchive

import (
	"archive/zip"
	"errors"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/codec/xmlcodec"
)

// legacyVersion is assumed for archives written before INFO.xml existed.
const legacyVersion = 2

// Reader enumerates a zip archive. Zip files are random access, so Reset
// and Find are cheap.
type Reader struct {
	name    string
	zr      *zip.ReadCloser
	cleanup func()
	files   []*zip.File
	pos     int
	info    *backup.ArchiveInfo
	closed  bool
}

// NewReader opens a zip archive. Non-file sources are staged to disk first.
func NewReader(src backup.Source) (*Reader, error) {
	path, cleanup, err := backup.StageToFile(src, "bookvault-zip-*")
	if err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		cleanup()
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) {
			return nil, &backup.InvalidArchiveError{Reason: "not a zip archive", Err: err}
		}
		return nil, &backup.IOError{Op: "open " + src.Name(), Err: err}
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	r := &Reader{name: src.Name(), zr: zr, cleanup: cleanup}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		r.files = append(r.files, f)
	}
	return r, nil
}

func (r *Reader) entry(f *zip.File) *backup.Entry {
	return backup.NewEntry(f.Name, f.Modified, int64(f.UncompressedSize64), f.Open)
}

// ReadHeader parses INFO.xml. Archives without one are treated as the
// legacy version with an unknown creation date.
func (r *Reader) ReadHeader() (*backup.ArchiveInfo, error) {
	if r.info != nil {
		return r.info, nil
	}
	for _, f := range r.files {
		if backup.ResolveRecordKind(f.Name) != backup.RecordMetadata {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &backup.IOError{Op: "open " + f.Name, Err: err}
		}
		info, err := xmlcodec.ReadInfo(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		r.info = info
		return info, nil
	}
	r.info = &backup.ArchiveInfo{Version: legacyVersion}
	return r.info, nil
}

func (r *Reader) Next() (*backup.Entry, error) {
	if r.pos >= len(r.files) {
		return nil, io.EOF
	}
	f := r.files[r.pos]
	r.pos++
	return r.entry(f), nil
}

func (r *Reader) Find(kind backup.RecordKind) (*backup.Entry, error) {
	for i, f := range r.files {
		if backup.ResolveRecordKind(f.Name) == kind {
			r.pos = i + 1
			return r.entry(f), nil
		}
	}
	return nil, backup.ErrEntryNotFound
}

func (r *Reader) Reset() error {
	r.pos = 0
	return nil
}

func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.zr.Close()
	r.cleanup()
	return err
}
