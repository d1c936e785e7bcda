package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/config"
	"github.com/mrlokans/bookvault/internal/entrypoint"
	"github.com/mrlokans/bookvault/internal/logging"
	"github.com/mrlokans/bookvault/internal/services"
)

// ImportCommand restores an archive file into the catalog.
type ImportCommand struct {
	InPath  string
	Kind    string
	Policy  string
	Version string

	selection selection
	flags     *pflag.FlagSet
	out       io.Writer
}

func NewImportCommand(version string) *ImportCommand {
	return &ImportCommand{Version: version, out: os.Stdout}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	fs.StringVar(&cmd.InPath, "in", "", "Archive file to read (required)")
	fs.StringVar(&cmd.Kind, "kind", "auto", "Archive kind: auto, zip, tar, csv or db")
	fs.StringVar(&cmd.Policy, "policy", "skip", "What to do with existing books: skip, overwrite or newer")
	addSelectionFlags(fs, &cmd.selection)
	addCatalogFlags(fs)
	fs.Usage = usage(fs, "import --in <path> [options]", "Import a backup archive, a CSV export or a Calibre library into the catalog.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.InPath == "" {
		return fmt.Errorf("required flag --in not provided")
	}
	cmd.flags = fs
	return nil
}

func (cmd *ImportCommand) request() (services.ImportRequest, error) {
	req := services.ImportRequest{
		Kind:    backup.ContainerUnknown,
		Source:  backup.FileSource(cmd.InPath),
		Options: cmd.selection.options(),
	}
	if cmd.Kind != "" && cmd.Kind != "auto" {
		kind, ok := backup.ParseContainerKind(cmd.Kind)
		if !ok || !backup.CanRead(kind) {
			return req, fmt.Errorf("cannot import %q archives", cmd.Kind)
		}
		req.Kind = kind
	}
	policy, err := backup.ParseMergePolicy(cmd.Policy)
	if err != nil {
		return req, err
	}
	req.Options.Policy = policy
	return req, nil
}

func (cmd *ImportCommand) Run() error {
	if _, err := os.Stat(cmd.InPath); err != nil {
		return fmt.Errorf("archive not found: %s", cmd.InPath)
	}
	req, err := cmd.request()
	if err != nil {
		return err
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

	results, err := app.Backups.Import(ctx, req)
	if err != nil {
		return err
	}

	cmd.printResults(results)
	return nil
}

func (cmd *ImportCommand) printResults(results backup.ImportResults) {
	w := cmd.out
	if results.Cancelled {
		fmt.Fprintln(w, "Import cancelled. Records merged before cancellation were kept.")
	} else {
		fmt.Fprintf(w, "Imported %s\n", cmd.InPath)
	}
	fmt.Fprintf(w, "  Books:       %d processed, %d created, %d updated, %d skipped, %d failed\n",
		results.BooksProcessed, results.BooksCreated, results.BooksUpdated, results.BooksSkipped, results.BooksFailed)
	fmt.Fprintf(w, "  Covers:      %d processed, %d created, %d updated, %d skipped\n",
		results.CoversProcessed, results.CoversCreated, results.CoversUpdated, results.CoversSkipped)
	fmt.Fprintf(w, "  Styles:      %d\n", results.Styles)
	fmt.Fprintf(w, "  Preferences: %d\n", results.Preferences)
	printFailures(w, results.Failures)
}
