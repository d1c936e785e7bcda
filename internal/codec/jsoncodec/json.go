// Package jsoncodec implements the key-value encoding: JSON lines, one
// top-level object per record. Lines are cleaned with jsonc before
// decoding, so comments and trailing commas are accepted; lines that
// still fail to decode are recorded and skipped.
package jsoncodec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

// maxLineSize bounds a single record; descriptions can be long.
const maxLineSize = 16 * 1024 * 1024

// Codec implements backup.BookCodec, backup.StyleCodec and
// backup.PreferenceCodec for JSON lines.
type Codec struct{}

func New() *Codec {
	return &Codec{}
}

// eachLine calls fn with every non-empty, comment-stripped line and its
// 1-based line number.
func eachLine(r io.Reader, fn func(line int, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		data := bytes.TrimSpace(jsonc.ToJSON(scanner.Bytes()))
		if len(data) == 0 {
			continue
		}
		if err := fn(lineNum, data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func writeLine(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func (c *Codec) WriteBooks(w io.Writer, books backup.BookIterator, since *time.Time, progress backup.ProgressSink) (backup.ExportResults, error) {
	var res backup.ExportResults
	bw := bufio.NewWriter(w)

	err := books(func(b *entities.Book) error {
		if progress.IsCancelled() {
			return backup.ErrCancelled
		}
		if !backup.ChangedSince(b.LastUpdated, since) {
			return nil
		}
		if err := writeLine(bw, b); err != nil {
			return err
		}
		res.Books++
		progress.Publish(1, b.Title)
		return nil
	})
	if errors.Is(err, backup.ErrCancelled) {
		res.Cancelled = true
	} else if err != nil {
		return res, fmt.Errorf("failed to write books: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("failed to write books: %w", err)
	}
	return res, nil
}

func (c *Codec) ReadBooks(r io.Reader, merger *backup.Merger, progress backup.ProgressSink) (backup.ImportResults, error) {
	var res backup.ImportResults

	err := eachLine(r, func(line int, data []byte) error {
		if progress.IsCancelled() {
			res.Cancelled = true
			return backup.ErrCancelled
		}
		var book entities.Book
		err := json.Unmarshal(data, &book)
		if err == nil {
			err = backup.PrepareImportedBook(&book)
		}
		if err != nil {
			res.BooksFailed++
			res = res.WithImportError(&backup.ImportError{Line: line, Err: err})
			return nil
		}
		res = res.Add(merger.MergeBook(line, &book))
		progress.Publish(1, book.Title)
		return nil
	})
	if err != nil && !errors.Is(err, backup.ErrCancelled) {
		return res, &backup.IOError{Op: "read books", Err: err}
	}
	return res, nil
}

func (c *Codec) WriteStyles(w io.Writer, styles []entities.Style) (backup.ExportResults, error) {
	var res backup.ExportResults
	bw := bufio.NewWriter(w)
	for i := range styles {
		if err := writeLine(bw, &styles[i]); err != nil {
			return backup.ExportResults{}, fmt.Errorf("failed to write styles: %w", err)
		}
		res.Styles++
	}
	if err := bw.Flush(); err != nil {
		return backup.ExportResults{}, fmt.Errorf("failed to write styles: %w", err)
	}
	return res, nil
}

func (c *Codec) ReadStyles(r io.Reader, merger *backup.Merger) (backup.ImportResults, error) {
	var res backup.ImportResults
	err := eachLine(r, func(line int, data []byte) error {
		var style entities.Style
		err := json.Unmarshal(data, &style)
		if err == nil {
			var written bool
			written, err = merger.MergeStyle(&style)
			if written {
				res.Styles++
			}
		}
		if err != nil {
			res = res.WithImportError(&backup.ImportError{Line: line, Err: err})
		}
		return nil
	})
	if err != nil {
		return res, &backup.IOError{Op: "read styles", Err: err}
	}
	return res, nil
}

type preferenceLine struct {
	Key   string               `json:"key"`
	Type  entities.SettingType `json:"type"`
	Value json.RawMessage      `json:"value"`
}

func (c *Codec) WritePreferences(w io.Writer, prefs []entities.Setting) (backup.ExportResults, error) {
	var res backup.ExportResults
	bw := bufio.NewWriter(w)
	for i := range prefs {
		p := &prefs[i]
		line := preferenceLine{Key: p.Key, Type: p.Type}
		if p.IsCollection() {
			line.Value = json.RawMessage(entities.EncodeItems(p.Items()))
		} else {
			data, _ := json.Marshal(p.Value)
			line.Value = data
		}
		if err := writeLine(bw, line); err != nil {
			return backup.ExportResults{}, fmt.Errorf("failed to write preferences: %w", err)
		}
		res.Preferences++
	}
	if err := bw.Flush(); err != nil {
		return backup.ExportResults{}, fmt.Errorf("failed to write preferences: %w", err)
	}
	return res, nil
}

func (c *Codec) ReadPreferences(r io.Reader, store backup.PreferenceStore) (backup.ImportResults, error) {
	var res backup.ImportResults
	err := eachLine(r, func(line int, data []byte) error {
		var pl preferenceLine
		err := json.Unmarshal(data, &pl)
		var value string
		if err == nil {
			value, err = preferenceValue(&pl)
		}
		if err == nil {
			if serr := store.SetPreference(pl.Key, value, pl.Type); serr != nil {
				err = &backup.StorageError{Op: "save preference " + pl.Key, Err: serr}
			}
		}
		if err != nil {
			res = res.WithImportError(&backup.ImportError{Line: line, Err: err})
			return nil
		}
		res.Preferences++
		return nil
	})
	if err != nil {
		return res, &backup.IOError{Op: "read preferences", Err: err}
	}
	return res, nil
}

func preferenceValue(pl *preferenceLine) (string, error) {
	if pl.Key == "" {
		return "", errors.New("preference has no key")
	}
	if pl.Type == "" {
		pl.Type = entities.SettingTypeString
	}
	if pl.Type == entities.SettingTypeList || pl.Type == entities.SettingTypeSet {
		var items []string
		if err := json.Unmarshal(pl.Value, &items); err != nil {
			return "", fmt.Errorf("invalid %s value for %s: %w", pl.Type, pl.Key, err)
		}
		return entities.EncodeItems(items), nil
	}
	var s string
	if err := json.Unmarshal(pl.Value, &s); err != nil {
		// Scalars written as bare JSON literals.
		s = string(bytes.TrimSpace(pl.Value))
	}
	if err := entities.ValidateSettingValue(pl.Type, s); err != nil {
		return "", fmt.Errorf("preference %s: %w", pl.Key, err)
	}
	return s, nil
}
