package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookvault/internal/archive/calibre"
	"github.com/mrlokans/bookvault/internal/archive/csvarchive"
	"github.com/mrlokans/bookvault/internal/archive/tararchive"
	"github.com/mrlokans/bookvault/internal/archive/xmlarchive"
	"github.com/mrlokans/bookvault/internal/archive/ziparchive"
	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/codec/csvcodec"
	"github.com/mrlokans/bookvault/internal/codec/jsoncodec"
	"github.com/mrlokans/bookvault/internal/codec/xmlcodec"
	"github.com/mrlokans/bookvault/internal/covers"
	"github.com/mrlokans/bookvault/internal/database/books"
	"github.com/mrlokans/bookvault/internal/database/settings"
	"github.com/mrlokans/bookvault/internal/database/styles"
	"github.com/mrlokans/bookvault/internal/database/sync"
	"github.com/mrlokans/bookvault/internal/http"
	"github.com/mrlokans/bookvault/internal/scheduler"
	"github.com/mrlokans/bookvault/internal/services"
	"github.com/mrlokans/bookvault/internal/settingsstore"
	"github.com/mrlokans/bookvault/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// BookStore/BookSource implementations
var _ backup.BookStore = (*books.Repository)(nil)
var _ backup.BookSource = (*books.Repository)(nil)

// StyleStore implementations
var _ backup.StyleStore = (*styles.Repository)(nil)

// PreferenceStore implementations
var _ backup.PreferenceStore = (*settings.Repository)(nil)
var _ settingsstore.Settings = (*settings.Repository)(nil)

// CoverStore implementations
var _ backup.CoverStore = (*covers.Store)(nil)

// =============================================================================
// Settings
// =============================================================================

var _ backup.BackupDateStore = (*settingsstore.SettingsStore)(nil)
var _ services.LastFileRecorder = (*settingsstore.SettingsStore)(nil)
var _ scheduler.ScheduleSettings = (*settingsstore.SettingsStore)(nil)

// =============================================================================
// Progress Tracking
// =============================================================================

// ProgressReporter implementations
var _ backup.ProgressReporter = (*sync.Repository)(nil)
var _ services.ProgressStore = (*sync.Repository)(nil)
var _ backup.ProgressSink = (*backup.Tracker)(nil)

// =============================================================================
// Backup Runners
// =============================================================================

var _ http.BackupRunner = (*services.BackupService)(nil)
var _ tasks.BackupRunner = (*services.BackupService)(nil)
var _ scheduler.Exporter = (*services.BackupService)(nil)

// =============================================================================
// Task Queue
// =============================================================================

var _ http.TaskEnqueuer = (*tasks.Client)(nil)
var _ http.TaskStatuser = (*tasks.Client)(nil)

// =============================================================================
// Record Codecs
// =============================================================================

var _ backup.BookCodec = (*csvcodec.Codec)(nil)
var _ backup.BookCodec = (*xmlcodec.Codec)(nil)
var _ backup.StyleCodec = (*xmlcodec.Codec)(nil)
var _ backup.PreferenceCodec = (*xmlcodec.Codec)(nil)
var _ backup.BookCodec = (*jsoncodec.Codec)(nil)
var _ backup.StyleCodec = (*jsoncodec.Codec)(nil)
var _ backup.PreferenceCodec = (*jsoncodec.Codec)(nil)

// =============================================================================
// Containers
// =============================================================================

var _ backup.ArchiveReader = (*ziparchive.Reader)(nil)
var _ backup.ArchiveWriter = (*ziparchive.Writer)(nil)
var _ backup.ArchiveReader = (*tararchive.Reader)(nil)
var _ backup.ArchiveWriter = (*tararchive.Writer)(nil)
var _ backup.ArchiveReader = (*csvarchive.Reader)(nil)
var _ backup.ArchiveWriter = (*csvarchive.Writer)(nil)
var _ backup.ArchiveWriter = (*xmlarchive.Writer)(nil)
var _ backup.DirectImporter = (*calibre.Reader)(nil)
