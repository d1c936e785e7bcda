package importers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/codec"
	"github.com/mrlokans/bookvault/internal/covers"
)

// Archive versions this build can read. Version 1 archives predate the
// current book layout.
const (
	minArchiveVersion = 2
	maxArchiveVersion = 3
)

// Importer restores one archive. It is single use: Read closes it.
type Importer struct {
	kind   backup.ContainerKind
	source backup.Source
	cfg    Config
	logger *slog.Logger

	reader backup.ArchiveReader
	direct backup.DirectImporter
	closed bool
}

// Kind returns the container kind being read.
func (imp *Importer) Kind() backup.ContainerKind {
	return imp.kind
}

// Header returns the archive header without starting the import.
func (imp *Importer) Header() (*backup.ArchiveInfo, error) {
	if imp.direct != nil {
		return imp.direct.ReadHeader()
	}
	return imp.reader.ReadHeader()
}

// Close releases the archive. It is safe to call more than once.
func (imp *Importer) Close() error {
	if imp.closed {
		return nil
	}
	imp.closed = true
	if imp.direct != nil {
		return imp.direct.Close()
	}
	return imp.reader.Close()
}

// Read imports the archive. The only error type returned is
// *backup.OperationError; per-record problems are reported in the results.
func (imp *Importer) Read(ctx context.Context, progress backup.ProgressSink) (results backup.ImportResults, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during import: %v", r)
		}
		if cerr := imp.Close(); cerr != nil {
			imp.logger.Warn("failed to close archive", "error", cerr)
		}
		err = backup.AsOperationError("import", err)
		imp.logger.Info("import finished",
			"outcome", backup.OutcomeOf(results.Cancelled, err),
			"books_created", results.BooksCreated,
			"books_updated", results.BooksUpdated,
			"books_skipped", results.BooksSkipped,
			"books_failed", results.BooksFailed,
			"covers", results.CoversProcessed,
			"styles", results.Styles,
			"preferences", results.Preferences,
		)
	}()

	progress = backup.WithContext(ctx, progress)

	opts := imp.cfg.Options.Restrict(imp.kind)
	// The cutoff of a sync import comes from the archive, not the caller.
	syncImport := opts.Sync
	opts.Sync, opts.Since = false, nil
	if err := opts.Validate(); err != nil {
		return results, err
	}

	info, err := imp.Header()
	if err != nil {
		return results, err
	}
	if err := checkVersion(imp.kind, info); err != nil {
		return results, err
	}
	if syncImport {
		if !info.HasCreationDate() {
			return results, fmt.Errorf("%w: sync import needs an archive with a creation date", backup.ErrInvalidOptions)
		}
		createdAt := info.CreatedAt
		opts.Sync, opts.Since = true, &createdAt
		opts.Policy = backup.MergeOnlyNewer
	}
	imp.logger.Info("import started",
		"archive_version", info.Version,
		"app_version", imp.cfg.AppVersion,
		"policy", opts.Policy,
		"books", opts.Books, "covers", opts.Covers,
		"styles", opts.Styles, "preferences", opts.Preferences,
	)

	progress.SetMaxPos(estimateSteps(info, opts))
	progress.Publish(1, "reading archive header")

	stores := imp.cfg.Stores
	merger := backup.NewMerger(stores.Books, stores.Styles, opts.Policy, imp.logger)

	if imp.direct != nil {
		if !opts.Books {
			return results, nil
		}
		return imp.direct.Import(merger, progress)
	}
	return imp.readEntries(opts, merger, progress)
}

func checkVersion(kind backup.ContainerKind, info *backup.ArchiveInfo) error {
	// Single-file containers carry no version.
	if kind == backup.ContainerTabular || kind == backup.ContainerBinaryDatabase {
		return nil
	}
	if info.Version < minArchiveVersion || info.Version > maxArchiveVersion {
		return &backup.InvalidArchiveError{Reason: fmt.Sprintf("unsupported archive version %d", info.Version)}
	}
	return nil
}

// estimateSteps sizes the progress bar. Covers are counted from the header
// when known, otherwise two per book are assumed.
func estimateSteps(info *backup.ArchiveInfo, opts backup.Options) int {
	steps := 1 + info.BookCount
	if opts.Covers {
		if info.CoverCount > 0 {
			steps += info.CoverCount
		} else {
			steps += info.BookCount * 2
		}
	}
	return steps
}

func (imp *Importer) readEntries(opts backup.Options, merger *backup.Merger, progress backup.ProgressSink) (backup.ImportResults, error) {
	var results backup.ImportResults
	stores := imp.cfg.Stores

	if opts.Styles && stores.Styles != nil {
		res, err := imp.readSingle(backup.RecordStyles, func(entry *backup.Entry, set codec.Set, r io.Reader) (backup.ImportResults, error) {
			if set.Styles == nil {
				return backup.ImportResults{}, unsupportedEncoding(entry)
			}
			return set.Styles.ReadStyles(r, merger)
		})
		results = results.Add(res)
		if err != nil {
			return results, err
		}
	}

	if opts.Preferences && stores.Preferences != nil {
		res, err := imp.readSingle(backup.RecordPreferences, func(entry *backup.Entry, set codec.Set, r io.Reader) (backup.ImportResults, error) {
			if set.Preferences == nil {
				return backup.ImportResults{}, unsupportedEncoding(entry)
			}
			return set.Preferences.ReadPreferences(r, stores.Preferences)
		})
		results = results.Add(res)
		if err != nil {
			return results, err
		}
	}

	onlyNewerCovers := opts.Policy != backup.MergeOverwrite
	booksRead := false
	for {
		if progress.IsCancelled() {
			results.Cancelled = true
			return results, nil
		}

		entry, err := imp.reader.Next()
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return results, err
		}

		switch entry.Kind {
		case backup.RecordBooks:
			if !opts.Books || stores.Books == nil {
				continue
			}
			if booksRead {
				imp.logger.Warn("ignoring additional books entry", "entry", entry.Name)
				continue
			}
			booksRead = true
			res, err := imp.decode(entry, func(set codec.Set, r io.Reader) (backup.ImportResults, error) {
				if set.Books == nil {
					return backup.ImportResults{}, unsupportedEncoding(entry)
				}
				return set.Books.ReadBooks(r, merger, progress)
			})
			results = results.Add(res)
			if err != nil {
				return results, err
			}
			if results.Cancelled {
				return results, nil
			}

		case backup.RecordCover:
			if !opts.Covers || stores.Covers == nil {
				continue
			}
			results = results.Add(covers.Merge(stores.Covers, entry, onlyNewerCovers))
			progress.Publish(1, entry.Name)

		case backup.RecordMetadata, backup.RecordStyles, backup.RecordPreferences:
			// Consumed before the linear pass.

		case backup.RecordUnknownXML, backup.RecordLegacyPreferences, backup.RecordLegacyStyle:
			imp.logger.Debug("skipping unsupported entry", "entry", entry.Name, "kind", entry.Kind)

		case backup.RecordDatabase:
			imp.logger.Info("skipping embedded database", "entry", entry.Name)

		default:
			imp.logger.Debug("skipping unknown entry", "entry", entry.Name)
		}
	}
}

// readSingle consumes the first entry of kind and rewinds the archive.
// A missing entry is not an error.
func (imp *Importer) readSingle(kind backup.RecordKind, read func(*backup.Entry, codec.Set, io.Reader) (backup.ImportResults, error)) (backup.ImportResults, error) {
	var results backup.ImportResults

	entry, err := imp.reader.Find(kind)
	switch {
	case errors.Is(err, backup.ErrEntryNotFound):
		imp.logger.Debug("archive has no entry", "kind", kind)
	case err != nil:
		return results, err
	default:
		results, err = imp.decode(entry, func(set codec.Set, r io.Reader) (backup.ImportResults, error) {
			return read(entry, set, r)
		})
		if err != nil {
			return results, err
		}
	}

	if err := imp.reader.Reset(); err != nil {
		return results, err
	}
	return results, nil
}

// decode opens an entry and hands its stream to the codec for its
// encoding. Structural problems are fatal; a payload that cannot be read
// is recorded as a failure.
func (imp *Importer) decode(entry *backup.Entry, read func(codec.Set, io.Reader) (backup.ImportResults, error)) (backup.ImportResults, error) {
	var results backup.ImportResults

	set, ok := codec.For(entry.Encoding)
	if !ok {
		return results, unsupportedEncoding(entry)
	}

	rc, err := entry.Open()
	if err != nil {
		return results, &backup.IOError{Op: "open entry " + entry.Name, Err: err}
	}
	defer rc.Close()

	results, err = read(set, rc)
	var ioErr *backup.IOError
	if errors.As(err, &ioErr) {
		imp.logger.Warn("entry could not be read", "entry", entry.Name, "error", err)
		return results.WithFailure(0, fmt.Sprintf("%s: %v", entry.Name, err)), nil
	}
	return results, err
}

func unsupportedEncoding(entry *backup.Entry) error {
	return &backup.InvalidArchiveError{Reason: fmt.Sprintf("entry %s uses unsupported encoding %s", entry.Name, entry.Encoding)}
}
