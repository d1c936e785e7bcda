// Package cli implements the command line subcommands. Each command
// parses its own pflag set, layers it over the environment through
// config.NewConfigWithFlags and runs against the local catalog.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/config"
)

// addCatalogFlags registers the flags every command shares. Their names
// map onto the configuration keys; a flag only overrides the environment
// when it is given explicitly.
func addCatalogFlags(fs *pflag.FlagSet) {
	fs.String("database-path", config.DefaultDatabasePath, "Path to the catalog database")
	fs.String("covers-dir", config.DefaultCoversDir, "Directory holding cover images")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("log-format", "text", "Log format: text or json")
}

// addSelectionFlags registers the record selection flags.
func addSelectionFlags(fs *pflag.FlagSet, sel *selection) {
	fs.BoolVar(&sel.noBooks, "no-books", false, "Skip book records")
	fs.BoolVar(&sel.noCovers, "no-covers", false, "Skip cover images")
	fs.BoolVar(&sel.noStyles, "no-styles", false, "Skip display styles")
	fs.BoolVar(&sel.noPrefs, "no-prefs", false, "Skip preferences")
	fs.BoolVar(&sel.sync, "sync", false, "Only include entities changed since the last full backup")
}

type selection struct {
	noBooks  bool
	noCovers bool
	noStyles bool
	noPrefs  bool
	sync     bool
}

func (s selection) options() backup.Options {
	opts := backup.DefaultOptions()
	opts.Books = !s.noBooks
	opts.Covers = !s.noCovers
	opts.Styles = !s.noStyles
	opts.Preferences = !s.noPrefs
	opts.Sync = s.sync
	return opts
}

// signalContext is cancelled on SIGINT or SIGTERM so a running operation
// stops at its next check.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printFailures(w io.Writer, failures []backup.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "\nFailures (%d):\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

func usage(fs *pflag.FlagSet, synopsis, description string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", os.Args[0], synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
}
