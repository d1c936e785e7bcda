package cli

import (
	"github.com/spf13/pflag"

	"github.com/mrlokans/bookvault/internal/config"
	"github.com/mrlokans/bookvault/internal/entrypoint"
)

// ServeCommand runs the HTTP API, the task queue and the scheduler.
type ServeCommand struct {
	Version string

	flags *pflag.FlagSet
}

func NewServeCommand(version string) *ServeCommand {
	return &ServeCommand{Version: version}
}

func (cmd *ServeCommand) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Int32("port", 8188, "HTTP port")
	fs.String("host", "0.0.0.0", "HTTP listen address")
	fs.String("backup-dir", config.DefaultBackupDir, "Directory receiving scheduled and API-triggered archives")
	fs.Bool("backup-schedule-enabled", false, "Run scheduled backups")
	fs.String("backup-schedule", "0 3 * * *", "Cron schedule of automatic backups")
	fs.Int("backup-keep-last", 7, "Scheduled archives to keep, 0 keeps all")
	fs.Bool("tasks-enabled", true, "Run exports and imports on the task queue")
	addCatalogFlags(fs)
	fs.Usage = usage(fs, "serve [options]", "Start the HTTP API. Every flag may also be set through the environment, e.g. DATABASE_PATH.")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.flags = fs
	return nil
}

func (cmd *ServeCommand) Run() error {
	cfg, err := config.NewConfigWithFlags(cmd.flags)
	if err != nil {
		return err
	}
	return entrypoint.Run(cfg, cmd.Version)
}
