// Package xmlarchive writes a whole backup as one XML document. It is an
// export-only container; entry payloads are nested under a single root.
package xmlarchive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/mrlokans/bookvault/internal/backup"
)

const (
	rootTag     = "bookvault"
	rootVersion = 3
)

var declaration = regexp.MustCompile(`^\s*<\?xml[^>]*\?>\s*`)

type Writer struct {
	out    backup.DestinationWriter
	bw     *bufio.Writer
	logger *slog.Logger
	opened bool
	closed bool
}

func NewWriter(dst backup.Destination, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out, err := dst.Create()
	if err != nil {
		return nil, err
	}
	return &Writer{out: out, bw: bufio.NewWriter(out), logger: logger}, nil
}

// PutFile nests an XML entry under the root element. Images cannot be
// represented and are skipped with a warning.
func (w *Writer) PutFile(name string, r io.Reader, _ bool) error {
	switch backup.ResolveEncoding(name) {
	case backup.EncodingRawImage:
		w.logger.Warn("xml archive cannot hold images, skipping", "entry", name)
		return nil
	case backup.EncodingStructuredMarkup:
	default:
		return &backup.InvalidArchiveError{Reason: fmt.Sprintf("xml archive cannot hold entry %s", name)}
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return &backup.IOError{Op: "read " + name, Err: err}
	}
	payload = declaration.ReplaceAll(payload, nil)

	if !w.opened {
		w.opened = true
		fmt.Fprintf(w.bw, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<%s version=\"%d\">\n", rootTag, rootVersion)
	}
	w.bw.Write(bytes.TrimSpace(payload))
	if _, err := w.bw.WriteString("\n"); err != nil {
		return &backup.IOError{Op: "write " + name, Err: err}
	}
	return nil
}

func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.out.Abort()
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.opened {
		fmt.Fprintf(w.bw, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<%s version=\"%d\">\n", rootTag, rootVersion)
	}
	fmt.Fprintf(w.bw, "</%s>\n", rootTag)
	if err := w.bw.Flush(); err != nil {
		w.out.Abort()
		return &backup.IOError{Op: "finish xml archive", Err: err}
	}
	return w.out.Close()
}
