package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		var args []string
		if len(os.Args) > 2 {
			args = os.Args[2:]
		}
		run(cli.NewServeCommand(Version), args)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	switch name {
	case "export":
		run(cli.NewExportCommand(Version), args)
	case "import":
		run(cli.NewImportCommand(Version), args)
	case "inspect":
		run(cli.NewInspectCommand(), args)
	case "version":
		fmt.Printf("bookvault %s (%s)\n", Version, Commit)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}
}

func run(cmd command, args []string) {
	if err := cmd.ParseFlags(args); err != nil {
		fail(err)
	}
	if err := cmd.Run(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	var opErr *backup.OperationError
	if errors.As(err, &opErr) {
		fmt.Fprintf(os.Stderr, "Error: %s (%v)\n", backup.UserMessage(err), err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the HTTP server and backup scheduler (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  export    Write the catalog to a zip, tar, csv or xml archive\n")
	fmt.Fprintf(os.Stderr, "  import    Restore an archive, CSV export or Calibre library into the catalog\n")
	fmt.Fprintf(os.Stderr, "  inspect   Print the kind and header of an archive\n")
	fmt.Fprintf(os.Stderr, "  version   Print the build version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
