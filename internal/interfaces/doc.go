// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Backup Engine Interfaces (internal/backup)
//
//   - BookStore, BookSource: identity-keyed book access used by the merge engine and exporters
//   - StyleStore, PreferenceStore: display styles and typed preferences
//   - CoverStore: cover images by file name (internal/covers)
//   - BackupDateStore: date of the last full export (internal/settingsstore)
//   - ArchiveReader, ArchiveWriter, DirectImporter: container formats (internal/archive/...)
//   - ProgressSink, ProgressReporter: in-process and persisted progress
//
// ## Service Interfaces
//
//   - ProgressStore, LastFileRecorder: collaborators of BackupService (internal/services)
//   - BackupRunner, TaskEnqueuer, TaskStatuser: HTTP controllers (internal/http)
//   - Exporter, ScheduleSettings: scheduled backups (internal/scheduler)
//
// # Adding a New Container Format
//
//  1. Add a ContainerKind and its capabilities in internal/backup/kinds.go
//
//  2. Implement backup.ArchiveReader and/or backup.ArchiveWriter in a
//     sub-package of internal/archive/
//
//  3. Wire the constructors into importers.CreateReader and
//     exporters.CreateWriter
//
//  4. Add a magic-byte rule to backup.Sniff if the format can be detected
//
// # Adding a New Record Encoding
//
//  1. Implement the codec interfaces from internal/backup/codec.go in a
//     sub-package of internal/codec/
//
//  2. Register it in internal/codec/registry.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the checks in this codebase.
package interfaces
