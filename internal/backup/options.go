package backup

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MergePolicy decides what happens when an imported record's identity
// already exists in the store.
type MergePolicy int

const (
	// MergeSkip never touches existing records.
	MergeSkip MergePolicy = iota
	// MergeOverwrite replaces existing records unconditionally.
	MergeOverwrite
	// MergeOnlyNewer replaces existing records whose last update is older
	// than the incoming one.
	MergeOnlyNewer
)

func (p MergePolicy) String() string {
	switch p {
	case MergeOverwrite:
		return "overwrite"
	case MergeOnlyNewer:
		return "newer"
	default:
		return "skip"
	}
}

// ParseMergePolicy accepts "skip", "overwrite" and "newer" (or "only-newer").
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return MergeSkip, nil
	case "overwrite":
		return MergeOverwrite, nil
	case "newer", "only-newer", "onlynewer":
		return MergeOnlyNewer, nil
	}
	return MergeSkip, fmt.Errorf("unknown merge policy %q", s)
}

var ErrInvalidOptions = errors.New("invalid backup options")

// Options selects what an import or export includes.
type Options struct {
	Books       bool
	Covers      bool
	Styles      bool
	Preferences bool
	Metadata    bool

	// Sync restricts the operation to entities changed after Since.
	Sync  bool
	Since *time.Time

	// Policy applies to imports only.
	Policy MergePolicy
}

// DefaultOptions includes every record kind with the Skip policy.
func DefaultOptions() Options {
	return Options{
		Books:       true,
		Covers:      true,
		Styles:      true,
		Preferences: true,
		Metadata:    true,
		Policy:      MergeSkip,
	}
}

// Validate checks the option invariants that must hold before a run starts.
func (o Options) Validate() error {
	if o.Sync && o.Since == nil {
		return fmt.Errorf("%w: sync requires a cutoff date", ErrInvalidOptions)
	}
	if !o.Books && !o.Covers && !o.Styles && !o.Preferences {
		return fmt.Errorf("%w: nothing selected", ErrInvalidOptions)
	}
	return nil
}

// ResolveSince fills Since from the last full backup date when Sync is
// requested. Without a recorded backup the run falls back to a full one.
func (o Options) ResolveSince(dates BackupDateStore) (Options, error) {
	if !o.Sync || o.Since != nil {
		return o, nil
	}
	last, err := dates.LastFullBackup()
	if err != nil {
		return o, fmt.Errorf("failed to read last backup date: %w", err)
	}
	if last == nil {
		o.Sync = false
		return o, nil
	}
	utc := last.UTC()
	o.Since = &utc
	return o, nil
}

// Restrict drops the record kinds a container cannot carry.
func (o Options) Restrict(kind ContainerKind) Options {
	o.Books = o.Books && Supports(kind, RecordBooks)
	o.Covers = o.Covers && Supports(kind, RecordCover)
	o.Styles = o.Styles && Supports(kind, RecordStyles)
	o.Preferences = o.Preferences && Supports(kind, RecordPreferences)
	o.Metadata = o.Metadata && Supports(kind, RecordMetadata)
	return o
}

// Bit values of the legacy persisted option encoding.
const (
	legacyInfo             = 1
	legacyPreferences      = 1 << 1
	legacyStyles           = 1 << 2
	legacyBooks            = 1 << 6
	legacyCovers           = 1 << 7
	legacyUpdatedBooks     = 1 << 16
	legacyUpdatedBooksSync = 1 << 17
)

// LegacyImportFlags encodes options in the legacy bitmask format.
func (o Options) LegacyImportFlags() int {
	flags := 0
	if o.Metadata {
		flags |= legacyInfo
	}
	if o.Preferences {
		flags |= legacyPreferences
	}
	if o.Styles {
		flags |= legacyStyles
	}
	if o.Books {
		flags |= legacyBooks
	}
	if o.Covers {
		flags |= legacyCovers
	}
	switch o.Policy {
	case MergeOverwrite:
		flags |= legacyUpdatedBooks
	case MergeOnlyNewer:
		flags |= legacyUpdatedBooks | legacyUpdatedBooksSync
	}
	return flags
}

// OptionsFromLegacyFlags decodes the legacy bitmask format.
func OptionsFromLegacyFlags(flags int) Options {
	o := Options{
		Metadata:    flags&legacyInfo != 0,
		Preferences: flags&legacyPreferences != 0,
		Styles:      flags&legacyStyles != 0,
		Books:       flags&legacyBooks != 0,
		Covers:      flags&legacyCovers != 0,
	}
	switch {
	case flags&legacyUpdatedBooks == 0:
		o.Policy = MergeSkip
	case flags&legacyUpdatedBooksSync != 0:
		o.Policy = MergeOnlyNewer
	default:
		o.Policy = MergeOverwrite
	}
	return o
}
