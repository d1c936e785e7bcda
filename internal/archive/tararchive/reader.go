// Package tararchive implements the uncompressed multi-entry container.
// A tar stream is forward only: enumeration restarts by re-opening the
// source, and an entry can only be read until the reader moves past it.
package tararchive

import (
	"archive/tar"
	"errors"
	"io"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/codec/xmlcodec"
)

const legacyVersion = 2

type Reader struct {
	src    backup.Source
	rc     io.ReadCloser
	tr     *tar.Reader
	seq    int
	info   *backup.ArchiveInfo
	closed bool
}

// NewReader opens a tar stream and validates its first header.
func NewReader(src backup.Source) (*Reader, error) {
	r := &Reader{src: src}
	if err := r.reopen(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) reopen() error {
	if r.rc != nil {
		r.rc.Close()
	}
	rc, err := r.src.Open()
	if err != nil {
		return &backup.IOError{Op: "open " + r.src.Name(), Err: err}
	}
	r.rc = rc
	r.tr = tar.NewReader(rc)
	r.seq++
	return nil
}

// next advances to the next regular file. Each advance invalidates the
// previously returned entry.
func (r *Reader) next() (*backup.Entry, error) {
	for {
		hdr, err := r.tr.Next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			if errors.Is(err, tar.ErrHeader) {
				return nil, &backup.InvalidArchiveError{Reason: "corrupt tar header", Err: err}
			}
			return nil, &backup.IOError{Op: "read " + r.src.Name(), Err: err}
		}
		r.seq++
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		seq, tr := r.seq, r.tr
		open := func() (io.ReadCloser, error) {
			if seq != r.seq || r.closed {
				return nil, backup.ErrStaleEntry
			}
			return io.NopCloser(tr), nil
		}
		return backup.NewEntry(hdr.Name, hdr.ModTime, hdr.Size, open), nil
	}
}

// ReadHeader reads INFO.xml and rewinds. Archives without one report the
// legacy version.
func (r *Reader) ReadHeader() (*backup.ArchiveInfo, error) {
	if r.info != nil {
		return r.info, nil
	}
	entry, err := r.Find(backup.RecordMetadata)
	switch {
	case errors.Is(err, backup.ErrEntryNotFound):
		r.info = &backup.ArchiveInfo{Version: legacyVersion}
	case err != nil:
		return nil, err
	default:
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		info, err := xmlcodec.ReadInfo(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		r.info = info
	}
	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r.info, nil
}

func (r *Reader) Next() (*backup.Entry, error) {
	return r.next()
}

// Find rewinds and scans forward for the first entry of kind.
func (r *Reader) Find(kind backup.RecordKind) (*backup.Entry, error) {
	if err := r.Reset(); err != nil {
		return nil, err
	}
	for {
		entry, err := r.next()
		if err == io.EOF {
			return nil, backup.ErrEntryNotFound
		}
		if err != nil {
			return nil, err
		}
		if entry.Kind == kind {
			return entry, nil
		}
	}
}

func (r *Reader) Reset() error {
	return r.reopen()
}

func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}
