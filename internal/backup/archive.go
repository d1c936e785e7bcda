package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Source is a re-openable location an archive is read from. Every Open
// call must return a fresh stream positioned at the first byte.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Destination is a location an archive is written to.
type Destination interface {
	Name() string
	Create() (DestinationWriter, error)
}

// DestinationWriter is the stream returned by a Destination. Close commits
// the written bytes; Abort discards them.
type DestinationWriter interface {
	io.WriteCloser
	Abort() error
}

// FileSource reads an archive from a path on the local filesystem.
type FileSource string

func (f FileSource) Name() string { return filepath.Base(string(f)) }

func (f FileSource) Path() string { return string(f) }

func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

// BytesSource serves an in-memory archive under a display name.
type BytesSource struct {
	FileName string
	Data     []byte
}

func (b BytesSource) Name() string { return b.FileName }

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// PathSource is implemented by sources backed by a local file, letting
// readers that need random access skip staging a temporary copy.
type PathSource interface {
	Path() string
}

// FileDestination writes an archive to a local path. Bytes go to a temp
// file in the same directory and are renamed into place on Close.
type FileDestination string

func (f FileDestination) Name() string { return filepath.Base(string(f)) }

func (f FileDestination) Path() string { return string(f) }

func (f FileDestination) Create() (DestinationWriter, error) {
	dir := filepath.Dir(string(f))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Op: "create destination directory", Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".bookvault_tmp_")
	if err != nil {
		return nil, &IOError{Op: "create destination", Err: err}
	}
	return &atomicFile{File: tmp, target: string(f)}, nil
}

type atomicFile struct {
	*os.File
	target string
	once   sync.Once
	err    error
}

func (a *atomicFile) Close() error {
	a.once.Do(func() {
		tmpPath := a.File.Name()
		if err := a.File.Sync(); err != nil {
			a.File.Close()
			os.Remove(tmpPath)
			a.err = &IOError{Op: "sync destination", Err: err}
			return
		}
		if err := a.File.Close(); err != nil {
			os.Remove(tmpPath)
			a.err = &IOError{Op: "close destination", Err: err}
			return
		}
		if err := os.Rename(tmpPath, a.target); err != nil {
			os.Remove(tmpPath)
			a.err = &IOError{Op: "rename destination", Err: err}
		}
	})
	return a.err
}

func (a *atomicFile) Abort() error {
	a.once.Do(func() {
		tmpPath := a.File.Name()
		a.File.Close()
		a.err = os.Remove(tmpPath)
	})
	return nil
}

// ArchiveInfo is the header of an archive.
type ArchiveInfo struct {
	Version        int
	AppVersion     string
	CreatedAt      time.Time
	BookCount      int
	CoverCount     int
	HasStyles      bool
	HasPreferences bool
}

// HasCreationDate reports whether the archive records when it was made.
// Sync imports need it to pick a cutoff.
func (i *ArchiveInfo) HasCreationDate() bool {
	return i != nil && !i.CreatedAt.IsZero()
}

// Entry is one named payload inside an archive. Open must be called at most
// once, and the stream closed before the reader's Next is called again.
type Entry struct {
	Name     string
	Kind     RecordKind
	Encoding RecordEncoding
	ModTime  time.Time
	Size     int64

	open func() (io.ReadCloser, error)
}

// NewEntry builds an Entry, resolving its kind and encoding from the name.
func NewEntry(name string, modTime time.Time, size int64, open func() (io.ReadCloser, error)) *Entry {
	return &Entry{
		Name:     name,
		Kind:     ResolveRecordKind(name),
		Encoding: ResolveEncoding(name),
		ModTime:  modTime,
		Size:     size,
		open:     open,
	}
}

// Open returns the entry's byte stream.
func (e *Entry) Open() (io.ReadCloser, error) {
	if e.open == nil {
		return nil, fmt.Errorf("entry %s has no content", e.Name)
	}
	return e.open()
}

// ArchiveReader enumerates the entries of one archive.
type ArchiveReader interface {
	// ReadHeader returns the archive header without consuming entries.
	ReadHeader() (*ArchiveInfo, error)
	// Next returns the next entry, or io.EOF at the end of the archive.
	Next() (*Entry, error)
	// Find returns the first entry of the given kind or ErrEntryNotFound.
	// The enumeration position afterwards is undefined; call Reset.
	Find(kind RecordKind) (*Entry, error)
	// Reset restarts enumeration from the first entry.
	Reset() error
	Close() error
}

// ArchiveWriter writes entries to one archive.
type ArchiveWriter interface {
	// PutFile appends an entry. compress is advisory.
	PutFile(name string, r io.Reader, compress bool) error
	// Abort discards a partially written archive.
	Abort() error
	Close() error
}

// DirectImporter is implemented by containers that translate their
// records into the store themselves instead of going through codecs.
type DirectImporter interface {
	ReadHeader() (*ArchiveInfo, error)
	Import(merger *Merger, progress ProgressSink) (ImportResults, error)
	Close() error
}

// TimedReader attaches a modification time to an entry payload.
// Writers use it as the entry's timestamp.
type TimedReader struct {
	io.Reader
	Time time.Time
}

func (t TimedReader) ModTime() time.Time { return t.Time }

// EntryModTime returns the modification time carried by r, or now.
func EntryModTime(r io.Reader) time.Time {
	if tr, ok := r.(interface{ ModTime() time.Time }); ok && !tr.ModTime().IsZero() {
		return tr.ModTime()
	}
	return time.Now()
}

// StageToFile returns a local path holding the source's bytes. Sources
// already on disk are used in place; others are copied to a temp file that
// cleanup removes.
func StageToFile(src Source, pattern string) (path string, cleanup func(), err error) {
	if ps, ok := src.(PathSource); ok {
		return ps.Path(), func() {}, nil
	}

	rc, err := src.Open()
	if err != nil {
		return "", nil, &IOError{Op: "open " + src.Name(), Err: err}
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, &IOError{Op: "create staging file", Err: err}
	}
	tmpPath := tmp.Name()
	cleanup = func() { os.Remove(tmpPath) }

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, &IOError{Op: "stage " + src.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, &IOError{Op: "stage " + src.Name(), Err: err}
	}
	return tmpPath, cleanup, nil
}
