package backup

import (
	"bytes"
	"io"
	"regexp"
)

// sniffLength is how many leading bytes are inspected for magic numbers.
const sniffLength = 0x200

type magicSignature struct {
	kind   ContainerKind
	offset int
	magic  []byte
}

// Checked in order: an XML export must never fall through to the weaker
// file-name check.
var magicSignatures = []magicSignature{
	{kind: ContainerCompressedMulti, offset: 0, magic: []byte{0x50, 0x4B, 0x03, 0x04}},
	{kind: ContainerStructuredMarkup, offset: 0, magic: []byte("<?xml ")},
	{kind: ContainerUncompressedMulti, offset: 0x101, magic: []byte("ustar")},
	{kind: ContainerBinaryDatabase, offset: 0, magic: []byte("SQLite format 3\x00")},
}

var tabularNamePattern = regexp.MustCompile(`(?i)^.*\.csv( \(\d+\))?$`)

// Sniff classifies a source by its leading bytes, falling back to its name.
// Open and read failures are treated as "no magic match".
func Sniff(src Source) ContainerKind {
	var head []byte
	if rc, err := src.Open(); err == nil {
		buf := make([]byte, sniffLength)
		n, _ := io.ReadFull(rc, buf)
		head = buf[:n]
		rc.Close()
	}
	return SniffBytes(head, src.Name())
}

// SniffBytes classifies the first bytes of an input and its name.
func SniffBytes(head []byte, name string) ContainerKind {
	for _, sig := range magicSignatures {
		end := sig.offset + len(sig.magic)
		if len(head) >= end && bytes.Equal(head[sig.offset:end], sig.magic) {
			return sig.kind
		}
	}
	if tabularNamePattern.MatchString(name) {
		return ContainerTabular
	}
	return ContainerUnknown
}
