// Package exporters writes the catalog into backup archives.
//
// CreateWriter picks the container writer for a kind; Exporter.Write
// counts what will be exported, sizes the progress bar, and writes the
// entries in a fixed order: INFO.xml, styles, preferences, books, covers.
package exporters

import (
	"fmt"
	"log/slog"

	"github.com/mrlokans/bookvault/internal/archive/csvarchive"
	"github.com/mrlokans/bookvault/internal/archive/tararchive"
	"github.com/mrlokans/bookvault/internal/archive/xmlarchive"
	"github.com/mrlokans/bookvault/internal/archive/ziparchive"
	"github.com/mrlokans/bookvault/internal/backup"
)

// Config holds what an export needs besides the destination.
type Config struct {
	Options backup.Options
	Stores  backup.Stores
	Logger  *slog.Logger

	// BooksEncoding selects the books entry encoding for multi-entry
	// containers. Single-file containers force their own.
	BooksEncoding backup.RecordEncoding
	AppVersion    string
}

// CreateWriter prepares an export of the given kind to dst. The
// destination is not touched until Write runs.
func CreateWriter(kind backup.ContainerKind, dst backup.Destination, cfg Config) (*Exporter, error) {
	if !backup.CanWrite(kind) {
		return nil, backup.AsOperationError("export", &backup.InvalidArchiveError{
			Reason: fmt.Sprintf("no writer for %s archives", kind),
		})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	exp := &Exporter{
		kind:   kind,
		dst:    dst,
		cfg:    cfg,
		logger: cfg.Logger.With("destination", dst.Name(), "kind", kind.String()),
	}

	switch kind {
	case backup.ContainerCompressedMulti:
		exp.open = func() (backup.ArchiveWriter, error) { return ziparchive.NewWriter(dst) }
	case backup.ContainerUncompressedMulti:
		exp.open = func() (backup.ArchiveWriter, error) { return tararchive.NewWriter(dst) }
	case backup.ContainerTabular:
		exp.open = func() (backup.ArchiveWriter, error) { return csvarchive.NewWriter(dst) }
	case backup.ContainerStructuredMarkup:
		exp.open = func() (backup.ArchiveWriter, error) { return xmlarchive.NewWriter(dst, exp.logger) }
	}
	exp.booksEncoding = booksEncodingFor(kind, cfg.BooksEncoding)
	return exp, nil
}

// booksEncodingFor applies the encoding a container forces, if any.
func booksEncodingFor(kind backup.ContainerKind, requested backup.RecordEncoding) backup.RecordEncoding {
	switch kind {
	case backup.ContainerTabular:
		return backup.EncodingTabular
	case backup.ContainerStructuredMarkup:
		return backup.EncodingStructuredMarkup
	}
	switch requested {
	case backup.EncodingTabular, backup.EncodingStructuredMarkup, backup.EncodingKeyValue:
		return requested
	}
	if kind == backup.ContainerUncompressedMulti {
		return backup.EncodingTabular
	}
	return backup.EncodingStructuredMarkup
}
