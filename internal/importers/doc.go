// Package importers restores archives into the catalog.
//
// # Architecture
//
// An import runs as one pass on the caller's goroutine:
//
//	Source → Sniff → ArchiveReader → Entry → codec.Set → Merger → Stores
//
// CreateReader picks the container reader for a kind (sniffing the source
// when the kind is unknown). Importer.Read drives it in a fixed order:
//
//  1. Styles, when requested: Find, decode, Reset
//  2. Preferences, when requested: Find, decode, Reset
//  3. One linear pass over every entry, dispatching by record kind
//
// Styles come first so books referencing a style by identity resolve
// against definitions that are already stored.
//
// Binary databases (Calibre) implement backup.DirectImporter and merge
// their rows without going through entry codecs.
//
// # Outcomes
//
// Read returns one of three outcomes, see backup.OutcomeOf:
//
//   - completed: err == nil, results.Cancelled == false
//   - cancelled: err == nil, results.Cancelled == true
//   - failed:    err is a *backup.OperationError
//
// The archive is closed and staging files are removed in every case.
package importers
