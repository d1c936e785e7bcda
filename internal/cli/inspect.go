package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/importers"
	"github.com/mrlokans/bookvault/internal/logging"
)

// InspectCommand prints the kind and header of an archive without
// touching the catalog.
type InspectCommand struct {
	InPath string

	out io.Writer
}

func NewInspectCommand() *InspectCommand {
	return &InspectCommand{out: os.Stdout}
}

func (cmd *InspectCommand) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	fs.StringVar(&cmd.InPath, "in", "", "Archive file to inspect (required)")
	fs.Usage = usage(fs, "inspect --in <path>", "Print the detected kind and header of an archive.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.InPath == "" {
		return fmt.Errorf("required flag --in not provided")
	}
	return nil
}

func (cmd *InspectCommand) Run() error {
	src := backup.FileSource(cmd.InPath)
	kind := backup.Sniff(src)

	w := cmd.out
	fmt.Fprintf(w, "File: %s\n", cmd.InPath)
	fmt.Fprintf(w, "Kind: %s\n", kind)
	if !backup.CanRead(kind) {
		fmt.Fprintln(w, "This archive cannot be imported.")
		return nil
	}

	imp, err := importers.CreateReader(kind, src, importers.Config{
		Logger:         logging.Discard(),
		CalibreEnabled: true,
	})
	if err != nil {
		return err
	}
	defer imp.Close()

	info, err := imp.Header()
	if err != nil {
		return err
	}
	printInfo(w, info)
	return nil
}

func printInfo(w io.Writer, info *backup.ArchiveInfo) {
	if info.Version > 0 {
		fmt.Fprintf(w, "Archive version: %d\n", info.Version)
	}
	if info.AppVersion != "" {
		fmt.Fprintf(w, "Written by: %s\n", info.AppVersion)
	}
	if info.HasCreationDate() {
		fmt.Fprintf(w, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	}
	if info.BookCount > 0 {
		fmt.Fprintf(w, "Books: %d\n", info.BookCount)
	}
	if info.CoverCount > 0 {
		fmt.Fprintf(w, "Covers: %d\n", info.CoverCount)
	}
	fmt.Fprintf(w, "Styles: %t\n", info.HasStyles)
	fmt.Fprintf(w, "Preferences: %t\n", info.HasPreferences)
}
