package importers

import (
	"fmt"
	"log/slog"

	"github.com/mrlokans/bookvault/internal/archive/calibre"
	"github.com/mrlokans/bookvault/internal/archive/csvarchive"
	"github.com/mrlokans/bookvault/internal/archive/tararchive"
	"github.com/mrlokans/bookvault/internal/archive/ziparchive"
	"github.com/mrlokans/bookvault/internal/backup"
)

// Config holds what an import needs besides the source.
type Config struct {
	Options backup.Options
	Stores  backup.Stores
	Logger  *slog.Logger

	// CalibreEnabled allows importing Calibre library databases.
	CalibreEnabled bool
	// AppVersion is logged alongside the archive's own version.
	AppVersion string
}

// CreateReader opens src as a container of the given kind. With
// backup.ContainerUnknown the kind is sniffed from the content.
func CreateReader(kind backup.ContainerKind, src backup.Source, cfg Config) (*Importer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if kind == backup.ContainerUnknown {
		kind = backup.Sniff(src)
		cfg.Logger.Debug("sniffed archive kind", "source", src.Name(), "kind", kind)
	}
	if !backup.CanRead(kind) {
		return nil, backup.AsOperationError("import", &backup.InvalidArchiveError{
			Reason: fmt.Sprintf("no reader for %s archives", kind),
		})
	}

	imp := &Importer{
		kind:   kind,
		source: src,
		cfg:    cfg,
		logger: cfg.Logger.With("source", src.Name(), "kind", kind.String()),
	}

	var err error
	switch kind {
	case backup.ContainerCompressedMulti:
		imp.reader, err = ziparchive.NewReader(src)
	case backup.ContainerUncompressedMulti:
		imp.reader, err = tararchive.NewReader(src)
	case backup.ContainerTabular:
		imp.reader, err = csvarchive.NewReader(src)
	case backup.ContainerBinaryDatabase:
		if !cfg.CalibreEnabled {
			return nil, backup.AsOperationError("import", &backup.InvalidArchiveError{
				Reason: "database import is disabled",
			})
		}
		imp.direct, err = calibre.NewReader(src, imp.logger)
	}
	if err != nil {
		return nil, backup.AsOperationError("import", err)
	}
	return imp, nil
}
