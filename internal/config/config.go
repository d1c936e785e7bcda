package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Covers
		Log
		Backup
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Covers struct {
		Dir string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text or json
	}
	Backup struct {
		Dir            string
		Kind           string // zip, tar, csv or xml
		BooksFormat    string // xml, csv or json; only used by multi-entry containers
		ScheduleOn     bool
		Schedule       string // Cron format: "0 3 * * *" = nightly at 03:00
		KeepLast       int    // Scheduled archives to keep, 0 keeps all
		CalibreEnabled bool
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		TaskTimeout     time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("covers_dir", DefaultCoversDir)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Backup defaults
	v.SetDefault("backup_dir", DefaultBackupDir)
	v.SetDefault("backup_kind", "zip")
	v.SetDefault("backup_books_format", "xml")
	v.SetDefault("backup_schedule_enabled", false)
	v.SetDefault("backup_schedule", "0 3 * * *")
	v.SetDefault("backup_keep_last", 7)
	v.SetDefault("backup_calibre_enabled", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_timeout", "2h")
	v.SetDefault("task_release_after", "3h")
	v.SetDefault("task_cleanup_interval", "1h")
}

func NewConfig() *Config {
	return load(newViper())
}

// NewConfigWithFlags layers command line flags over the environment.
// Flag names use dashes ("database-path") and map onto the same keys as
// the environment variables ("DATABASE_PATH").
func NewConfigWithFlags(flags *pflag.FlagSet) (*Config, error) {
	v := newViper()
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return load(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func load(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("port"),
			Host: v.GetString("host"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("shutdown_timeout_in_seconds"),
		},
		Database: Database{
			Path: v.GetString("database_path"),
		},
		Covers: Covers{
			Dir: v.GetString("covers_dir"),
		},
		Log: Log{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Backup: Backup{
			Dir:            v.GetString("backup_dir"),
			Kind:           v.GetString("backup_kind"),
			BooksFormat:    v.GetString("backup_books_format"),
			ScheduleOn:     v.GetBool("backup_schedule_enabled"),
			Schedule:       v.GetString("backup_schedule"),
			KeepLast:       v.GetInt("backup_keep_last"),
			CalibreEnabled: v.GetBool("backup_calibre_enabled"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("tasks_enabled"),
			Workers:         v.GetInt("task_workers"),
			TaskTimeout:     v.GetDuration("task_timeout"),
			ReleaseAfter:    v.GetDuration("task_release_after"),
			CleanupInterval: v.GetDuration("task_cleanup_interval"),
		},
	}
}
