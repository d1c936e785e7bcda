package exporters

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/codec"
	"github.com/mrlokans/bookvault/internal/codec/xmlcodec"
	"github.com/mrlokans/bookvault/internal/entities"
)

const (
	// ArchiveVersion is written into INFO.xml.
	ArchiveVersion = 3

	// ExtraSteps covers the fixed entries (header, styles, preferences)
	// in the progress estimate.
	ExtraSteps = 10
)

// Exporter writes one archive. It is single use.
type Exporter struct {
	kind          backup.ContainerKind
	dst           backup.Destination
	cfg           Config
	logger        *slog.Logger
	booksEncoding backup.RecordEncoding

	open   func() (backup.ArchiveWriter, error)
	writer backup.ArchiveWriter
	now    func() time.Time
}

// Kind returns the container kind being written.
func (exp *Exporter) Kind() backup.ContainerKind {
	return exp.kind
}

func (exp *Exporter) clock() time.Time {
	if exp.now != nil {
		return exp.now().UTC()
	}
	return time.Now().UTC()
}

// plan is what an export will contain, computed before anything is
// written.
type plan struct {
	opts       backup.Options
	since      *time.Time
	bookCount  int
	coverBooks int // books whose cover slots are examined
	styles     []entities.Style
	prefs      []entities.Setting
}

func (p plan) empty() bool {
	return p.bookCount == 0 && p.coverBooks == 0 && len(p.styles) == 0 && len(p.prefs) == 0
}

// Write exports the catalog. The only error type returned is
// *backup.OperationError. A cancelled or failed export leaves nothing at
// the destination.
func (exp *Exporter) Write(ctx context.Context, progress backup.ProgressSink) (results backup.ExportResults, err error) {
	startedAt := exp.clock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during export: %v", r)
		}
		if exp.writer != nil {
			if err != nil || results.Cancelled {
				exp.writer.Abort()
			} else if cerr := exp.writer.Close(); cerr != nil {
				err = cerr
			}
		}
		err = backup.AsOperationError("export", err)
		exp.logger.Info("export finished",
			"outcome", backup.OutcomeOf(results.Cancelled, err),
			"books", results.Books,
			"covers", results.Covers,
			"styles", results.Styles,
			"preferences", results.Preferences,
		)
	}()

	progress = backup.WithContext(ctx, progress)

	p, err := exp.plan()
	if err != nil {
		return results, err
	}
	if p.empty() {
		exp.logger.Info("nothing to export")
		return results, nil
	}

	progress.SetMaxPos(ExtraSteps + p.bookCount + p.coverBooks)

	results, err = exp.writeArchive(p, progress)
	if err != nil || results.Cancelled {
		return results, err
	}

	if exp.writer != nil {
		if err := exp.writer.Close(); err != nil {
			return results, err
		}
		exp.writer = nil
	}

	if !p.opts.Sync && exp.cfg.Stores.BackupDates != nil {
		if err := exp.cfg.Stores.BackupDates.SetLastFullBackup(startedAt); err != nil {
			exp.logger.Warn("failed to record backup date", "error", err)
		}
	}
	if fd, ok := exp.dst.(backup.FileDestination); ok {
		sum, err := checksum(fd.Path())
		if err != nil {
			exp.logger.Warn("failed to checksum archive", "error", err)
		} else {
			results.Checksum = sum
		}
	}
	return results, nil
}

func (exp *Exporter) plan() (plan, error) {
	stores := exp.cfg.Stores
	opts := exp.cfg.Options.Restrict(exp.kind)
	if stores.BookSource == nil {
		opts.Books, opts.Covers = false, false
	}
	if stores.Covers == nil {
		opts.Covers = false
	}
	if stores.Styles == nil {
		opts.Styles = false
	}
	if stores.Preferences == nil {
		opts.Preferences = false
	}

	if opts.Sync && stores.BackupDates != nil {
		var err error
		if opts, err = opts.ResolveSince(stores.BackupDates); err != nil {
			return plan{}, err
		}
	}
	if err := opts.Validate(); err != nil {
		return plan{}, err
	}

	p := plan{opts: opts}
	if opts.Sync {
		p.since = opts.Since
	}

	if opts.Books {
		n, err := stores.BookSource.CountBooksSince(p.since)
		if err != nil {
			return plan{}, &backup.StorageError{Op: "count books", Err: err}
		}
		p.bookCount = n
	}
	if opts.Covers {
		n, err := stores.BookSource.CountBooksSince(nil)
		if err != nil {
			return plan{}, &backup.StorageError{Op: "count books", Err: err}
		}
		p.coverBooks = n
	}
	if opts.Styles {
		styles, err := stores.Styles.ListStyles()
		if err != nil {
			return plan{}, &backup.StorageError{Op: "list styles", Err: err}
		}
		p.styles = styles
	}
	if opts.Preferences {
		prefs, err := stores.Preferences.ListPreferences()
		if err != nil {
			return plan{}, &backup.StorageError{Op: "list preferences", Err: err}
		}
		p.prefs = prefs
	}
	return p, nil
}

func (exp *Exporter) writeArchive(p plan, progress backup.ProgressSink) (backup.ExportResults, error) {
	var results backup.ExportResults

	// Books go to a temp file first so INFO.xml can carry exact counts.
	var booksFile *os.File
	if p.opts.Books && p.bookCount > 0 {
		f, res, err := exp.prepareBooks(p, progress)
		results = results.Add(res)
		if err != nil || results.Cancelled {
			return results, err
		}
		booksFile = f
		defer func() {
			booksFile.Close()
			os.Remove(booksFile.Name())
		}()
	}

	coverCount := 0
	if p.coverBooks > 0 {
		counted, err := exp.exportCovers(p, nil, progress, true)
		if err != nil {
			return results, err
		}
		coverCount = counted.Covers
		results.CoversMissing = counted.CoversMissing
		progress.SetMaxPos(ExtraSteps + results.Books + coverCount)
	}

	writer, err := exp.open()
	if err != nil {
		return results, err
	}
	exp.writer = writer

	if p.opts.Metadata && backup.Supports(exp.kind, backup.RecordMetadata) {
		info := &backup.ArchiveInfo{
			Version:        ArchiveVersion,
			AppVersion:     exp.cfg.AppVersion,
			CreatedAt:      exp.clock(),
			BookCount:      results.Books,
			CoverCount:     coverCount,
			HasStyles:      len(p.styles) > 0,
			HasPreferences: len(p.prefs) > 0,
		}
		var buf bytes.Buffer
		if err := xmlcodec.WriteInfo(&buf, info); err != nil {
			return results, err
		}
		if err := writer.PutFile(backup.EntryInfo, &buf, true); err != nil {
			return results, err
		}
	}
	progress.Publish(1, backup.EntryInfo)

	if len(p.styles) > 0 {
		enc, set := exp.auxEncoding(func(s codec.Set) bool { return s.Styles != nil })
		var buf bytes.Buffer
		res, err := set.Styles.WriteStyles(&buf, p.styles)
		if err != nil {
			return results, err
		}
		if err := writer.PutFile(backup.EntryName(backup.RecordStyles, enc), &buf, true); err != nil {
			return results, err
		}
		results = results.Add(res)
	}
	progress.Publish(1, "styles")

	if len(p.prefs) > 0 {
		enc, set := exp.auxEncoding(func(s codec.Set) bool { return s.Preferences != nil })
		var buf bytes.Buffer
		res, err := set.Preferences.WritePreferences(&buf, p.prefs)
		if err != nil {
			return results, err
		}
		if err := writer.PutFile(backup.EntryName(backup.RecordPreferences, enc), &buf, true); err != nil {
			return results, err
		}
		results = results.Add(res)
	}
	progress.Publish(1, "preferences")

	if booksFile != nil {
		if _, err := booksFile.Seek(0, io.SeekStart); err != nil {
			return results, &backup.IOError{Op: "rewind books", Err: err}
		}
		name := backup.EntryName(backup.RecordBooks, exp.booksEncoding)
		if err := writer.PutFile(name, backup.TimedReader{Reader: booksFile, Time: exp.clock()}, true); err != nil {
			return results, err
		}
	}

	if coverCount > 0 {
		if progress.IsCancelled() {
			results.Cancelled = true
			return results, nil
		}
		written, err := exp.exportCovers(p, writer, progress, false)
		results.Covers = written.Covers
		results.Cancelled = written.Cancelled
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// auxEncoding picks the encoding for styles and preferences: the books
// encoding when it can carry them, structured markup otherwise.
func (exp *Exporter) auxEncoding(has func(codec.Set) bool) (backup.RecordEncoding, codec.Set) {
	if set, ok := codec.For(exp.booksEncoding); ok && has(set) {
		return exp.booksEncoding, set
	}
	set, _ := codec.For(backup.EncodingStructuredMarkup)
	return backup.EncodingStructuredMarkup, set
}

func (exp *Exporter) prepareBooks(p plan, progress backup.ProgressSink) (*os.File, backup.ExportResults, error) {
	var results backup.ExportResults

	set, ok := codec.For(exp.booksEncoding)
	if !ok || set.Books == nil {
		return nil, results, &backup.InvalidArchiveError{Reason: fmt.Sprintf("no books codec for %s", exp.booksEncoding)}
	}

	f, err := os.CreateTemp("", "bookvault-books-*"+backup.EncodingExtension(exp.booksEncoding))
	if err != nil {
		return nil, results, &backup.IOError{Op: "create books staging file", Err: err}
	}
	discard := func() {
		f.Close()
		os.Remove(f.Name())
	}

	iterate := func(fn func(*entities.Book) error) error {
		return exp.cfg.Stores.BookSource.IterateBooksSince(p.since, fn)
	}
	results, err = set.Books.WriteBooks(f, iterate, p.since, progress)
	if err != nil || results.Cancelled {
		discard()
		return nil, results, err
	}
	return f, results, nil
}

// exportCovers walks every cover slot of the books in the store. With
// dryRun it only counts what would be written; otherwise it writes each
// cover uncompressed. Covers not modified after the sync cutoff are left
// out in both modes.
func (exp *Exporter) exportCovers(p plan, writer backup.ArchiveWriter, progress backup.ProgressSink, dryRun bool) (backup.ExportResults, error) {
	var results backup.ExportResults
	store := exp.cfg.Stores.Covers

	err := exp.cfg.Stores.BookSource.IterateBooksSince(nil, func(b *entities.Book) error {
		for slot := 0; slot < entities.CoverSlots; slot++ {
			if !dryRun && progress.IsCancelled() {
				return backup.ErrCancelled
			}
			name := b.CoverFileName(slot)
			info, err := store.Stat(name)
			if err != nil {
				results.Failures = append(results.Failures, backup.Failure{Message: fmt.Sprintf("stat cover %s: %v", name, err)})
				continue
			}
			if info == nil {
				results.CoversMissing[slot]++
				continue
			}
			if !backup.ChangedSince(info.ModTime, p.since) {
				continue
			}
			if dryRun {
				results.Covers++
				continue
			}
			if err := exp.putCover(writer, name, info); err != nil {
				return err
			}
			results.Covers++
			progress.Publish(1, name)
		}
		return nil
	})
	if errors.Is(err, backup.ErrCancelled) {
		results.Cancelled = true
		return results, nil
	}
	return results, err
}

func (exp *Exporter) putCover(writer backup.ArchiveWriter, name string, info *backup.CoverInfo) error {
	rc, err := exp.cfg.Stores.Covers.Open(name)
	if err != nil {
		return &backup.IOError{Op: "open cover " + name, Err: err}
	}
	defer rc.Close()
	return writer.PutFile(name, backup.TimedReader{Reader: rc, Time: info.ModTime}, false)
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
