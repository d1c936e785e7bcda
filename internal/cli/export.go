package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/config"
	"github.com/mrlokans/bookvault/internal/entrypoint"
	"github.com/mrlokans/bookvault/internal/logging"
	"github.com/mrlokans/bookvault/internal/services"
)

// ExportCommand writes the catalog to an archive file.
type ExportCommand struct {
	OutPath     string
	Kind        string
	BooksFormat string
	Version     string

	selection selection
	flags     *pflag.FlagSet
	out       io.Writer
}

func NewExportCommand(version string) *ExportCommand {
	return &ExportCommand{Version: version, out: os.Stdout}
}

func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	fs.StringVar(&cmd.OutPath, "out", "", "Archive file to write (required)")
	fs.StringVar(&cmd.Kind, "kind", "", "Archive kind: zip, tar, csv or xml (default from the file extension, then zip)")
	fs.StringVar(&cmd.BooksFormat, "books-format", "", "Books entry format for zip and tar: xml, csv or json")
	addSelectionFlags(fs, &cmd.selection)
	addCatalogFlags(fs)
	fs.Usage = usage(fs, "export --out <path> [options]", "Export books, covers, styles and preferences to a backup archive.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.OutPath == "" {
		return fmt.Errorf("required flag --out not provided")
	}
	cmd.flags = fs
	return nil
}

// kind resolves the container kind from the flag or the file extension.
func (cmd *ExportCommand) kind() (backup.ContainerKind, error) {
	name := cmd.Kind
	if name == "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(cmd.OutPath)), ".")
		if kind, ok := backup.ParseContainerKind(ext); ok && backup.CanWrite(kind) {
			return kind, nil
		}
		return backup.ContainerCompressedMulti, nil
	}
	kind, ok := backup.ParseContainerKind(name)
	if !ok || !backup.CanWrite(kind) {
		return backup.ContainerUnknown, fmt.Errorf("cannot export %q archives", name)
	}
	return kind, nil
}

func (cmd *ExportCommand) Run() error {
	kind, err := cmd.kind()
	if err != nil {
		return err
	}
	enc := backup.EncodingUnknown
	if cmd.BooksFormat != "" {
		var ok bool
		if enc, ok = backup.ParseEncoding(cmd.BooksFormat); !ok {
			return fmt.Errorf("unknown books format %q", cmd.BooksFormat)
		}
	}

	cfg, err := config.NewConfigWithFlags(cmd.flags)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	app, err := entrypoint.Open(cfg, cmd.Version, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signalContext()
	defer stop()

	results, err := app.Backups.Export(ctx, services.ExportRequest{
		Kind:          kind,
		Destination:   backup.FileDestination(cmd.OutPath),
		Options:       cmd.selection.options(),
		BooksEncoding: enc,
	})
	if err != nil {
		return err
	}

	cmd.printResults(kind, results)
	return nil
}

func (cmd *ExportCommand) printResults(kind backup.ContainerKind, results backup.ExportResults) {
	w := cmd.out
	if results.Cancelled {
		fmt.Fprintln(w, "Export cancelled, nothing was written.")
		return
	}
	fmt.Fprintf(w, "Exported to %s (%s)\n", cmd.OutPath, kind)
	fmt.Fprintf(w, "  Books:       %d\n", results.Books)
	fmt.Fprintf(w, "  Covers:      %d (missing front %d, back %d)\n", results.Covers, results.CoversMissing[0], results.CoversMissing[1])
	fmt.Fprintf(w, "  Styles:      %d\n", results.Styles)
	fmt.Fprintf(w, "  Preferences: %d\n", results.Preferences)
	if results.Checksum != "" {
		fmt.Fprintf(w, "  BLAKE3:      %s\n", results.Checksum)
	}
	printFailures(w, results.Failures)
}
