package covers

import (
	"github.com/mrlokans/bookvault/internal/backup"
)

// Merge copies one cover entry into the store. An existing local file is
// replaced only when onlyNewer is false or the entry is strictly newer.
// Failures are recorded, never returned: one bad cover must not stop an
// import.
func Merge(store backup.CoverStore, entry *backup.Entry, onlyNewer bool) backup.ImportResults {
	var res backup.ImportResults

	local, err := store.Stat(entry.Name)
	if err != nil {
		return res.WithFailure(0, (&backup.IOError{Op: "stat cover " + entry.Name, Err: err}).Error())
	}
	if local != nil && onlyNewer && !entry.ModTime.After(local.ModTime) {
		res.CoversSkipped++
		return res
	}

	rc, err := entry.Open()
	if err != nil {
		res.CoversMissing[Slot(entry.Name)]++
		return res.WithFailure(0, (&backup.IOError{Op: "read cover " + entry.Name, Err: err}).Error())
	}
	defer rc.Close()

	if err := store.Write(entry.Name, rc, entry.ModTime); err != nil {
		return res.WithFailure(0, (&backup.IOError{Op: "write cover " + entry.Name, Err: err}).Error())
	}

	if local == nil {
		res.CoversCreated++
	} else {
		res.CoversUpdated++
	}
	res.CoversProcessed++
	return res
}
