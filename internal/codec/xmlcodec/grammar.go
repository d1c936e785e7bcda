// Package xmlcodec implements the structured-markup encoding: a generic,
// self-describing tag grammar for typed values, used for the archive
// header, styles, preferences and books.
//
// Typed values are written as
//
//	<string name="key" value="text"/>
//	<boolean name="key" value="true"/>
//	<int|long|float|double name="key" value="42"/>
//	<list|set name="key" size="2"><string><![CDATA[a]]></string>...</list>
//
// Any other element carrying a name attribute is read back as an opaque
// "serializable" string so newer archives degrade instead of failing.
package xmlcodec

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/bookvault/internal/backup"
)

// Tag and attribute names of the grammar.
const (
	tagString       = "string"
	tagBoolean      = "boolean"
	tagInt          = "int"
	tagLong         = "long"
	tagFloat        = "float"
	tagDouble       = "double"
	tagSet          = "set"
	tagList         = "list"
	tagSerializable = "serializable"

	attrVersion = "version"
	attrID      = "id"
	attrSize    = "size"
	attrName    = "name"
	attrValue   = "value"
)

const declaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

var xmlEscaper = strings.NewReplacer(
	`"`, "&quot;", "&", "&amp;", "'", "&apos;", "<", "&lt;", ">", "&gt;",
	"\\", `\\`, "\r", `\r`, "\n", `\n`, "\t", `\t`,
)

// Encode escapes a string for use as an attribute value. Empty, blank and
// "null" values encode to "", which callers write as an absent attribute.
// Invalid UTF-8 becomes U+FFFD and code points XML cannot carry are written
// as \uXXXX.
func Encode(s string) string {
	if strings.TrimSpace(s) == "" || strings.EqualFold(s, "null") {
		return ""
	}
	s = xmlEscaper.Replace(strings.ToValidUTF8(s, string(utf8.RuneError)))
	if strings.IndexFunc(s, isIllegalXMLChar) < 0 {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if isIllegalXMLChar(r) {
			fmt.Fprintf(&sb, `\u%04X`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// isIllegalXMLChar reports code points outside the XML 1.0 Char production.
// Tab, newline and carriage return are legal but Encode escapes them anyway.
func isIllegalXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r == 0xFFFE || r == 0xFFFF:
		return true
	}
	return false
}

// Decode reverses the backslash sequences of Encode. Entity references
// are already resolved by the XML parser. Unknown sequences are kept.
func Decode(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\':
			sb.WriteByte('\\')
		case 'r':
			sb.WriteByte('\r')
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			if i+6 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					sb.WriteRune(rune(v))
					i += 5
					continue
				}
			}
			sb.WriteByte(c)
			continue
		default:
			sb.WriteByte(c)
			continue
		}
		i++
	}
	return sb.String()
}

// cdataText makes a collection item safe inside CDATA. Characters XML
// cannot carry are replaced with U+FFFD.
func cdataText(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	if strings.IndexFunc(s, isIllegalXMLChar) >= 0 {
		s = strings.Map(func(r rune) rune {
			if isIllegalXMLChar(r) {
				return utf8.RuneError
			}
			return r
		}, s)
	}
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}

// attr holds a raw value; element encodes it when writing.
type attr struct {
	name  string
	value string
}

func strAttr(name, value string) attr {
	return attr{name: name, value: value}
}

func intAttr(name string, n int64) attr {
	if n == 0 {
		return attr{name: name}
	}
	return attr{name: name, value: strconv.FormatInt(n, 10)}
}

func floatAttr(name string, f float64) attr {
	if f == 0 {
		return attr{name: name}
	}
	return attr{name: name, value: strconv.FormatFloat(f, 'g', -1, 64)}
}

func boolAttr(name string, b bool) attr {
	if !b {
		return attr{name: name}
	}
	return attr{name: name, value: "true"}
}

func timeAttr(name string, t time.Time) attr {
	return attr{name: name, value: backup.FormatTime(t)}
}

// writer emits the grammar. The first error sticks and is returned by flush.
type writer struct {
	w   *bufio.Writer
	err error
}

func newWriter(w io.Writer) *writer {
	return &writer{w: bufio.NewWriter(w)}
}

func (x *writer) raw(s string) {
	if x.err != nil {
		return
	}
	_, x.err = x.w.WriteString(s)
}

func (x *writer) element(tag string, selfClose bool, attrs []attr) {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(tag)
	for _, a := range attrs {
		value := Encode(a.value)
		if value == "" {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(a.name)
		sb.WriteString(`="`)
		sb.WriteString(value)
		sb.WriteByte('"')
	}
	if selfClose {
		sb.WriteString("/>\n")
	} else {
		sb.WriteString(">\n")
	}
	x.raw(sb.String())
}

func (x *writer) open(tag string, attrs ...attr) {
	x.element(tag, false, attrs)
}

func (x *writer) empty(tag string, attrs ...attr) {
	x.element(tag, true, attrs)
}

func (x *writer) close(tag string) {
	x.raw("</" + tag + ">\n")
}

func (x *writer) typedString(name, value string) {
	if Encode(value) == "" {
		return
	}
	x.empty(tagString, attr{attrName, name}, strAttr(attrValue, value))
}

func (x *writer) typedScalar(tag, name, value string) {
	x.empty(tag, attr{attrName, name}, attr{attrValue, value})
}

func (x *writer) typedBool(name string, b bool) {
	x.typedScalar(tagBoolean, name, strconv.FormatBool(b))
}

func (x *writer) typedInt(name string, n int) {
	x.typedScalar(tagInt, name, strconv.Itoa(n))
}

func (x *writer) typedLong(name string, n int64) {
	x.typedScalar(tagLong, name, strconv.FormatInt(n, 10))
}

func (x *writer) typedDouble(name string, f float64) {
	x.typedScalar(tagDouble, name, strconv.FormatFloat(f, 'g', -1, 64))
}

// typedCollection writes a list or set; strings inside use CDATA.
func (x *writer) typedCollection(tag, name string, items []string) {
	x.raw("<" + tag + ` name="` + Encode(name) + `" size="` + strconv.Itoa(len(items)) + `">`)
	for _, item := range items {
		x.raw("<" + tagString + "><![CDATA[" + cdataText(item) + "]]></" + tagString + ">")
	}
	x.raw("</" + tag + ">\n")
}

func (x *writer) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.w.Flush()
}

// node is one parsed element with its attributes decoded.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     string
}

func (n *node) attr(name string) string {
	return n.attrs[name]
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// readNode consumes tokens up to the end of start and returns the subtree.
func readNode(dec *xml.Decoder, start xml.StartElement) (*node, error) {
	n := &node{name: start.Name.Local, attrs: make(map[string]string, len(start.Attr))}
	for _, a := range start.Attr {
		n.attrs[a.Name.Local] = Decode(a.Value)
	}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			c, err := readNode(dec, t)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.text = text.String()
			return n, nil
		}
	}
}

// eachElement calls fn for every element named tag anywhere in the
// document, handing it the element's subtree.
func eachElement(r io.Reader, tag string, fn func(*node) error) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != tag {
			continue
		}
		n, err := readNode(dec, start)
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
}

// typedValue is a decoded typed tag.
type typedValue struct {
	tag   string
	name  string
	value string
	items []string
}

func isKnownTypedTag(tag string) bool {
	switch tag {
	case tagString, tagBoolean, tagInt, tagLong, tagFloat, tagDouble, tagSet, tagList, tagSerializable:
		return true
	}
	return false
}

// asTypedValue converts a child node into a typed value. Unknown tags with
// a name are degraded to serializable blobs; nameless nodes are ignored.
func asTypedValue(n *node) (typedValue, bool) {
	name := n.attr(attrName)
	if name == "" {
		return typedValue{}, false
	}
	tv := typedValue{tag: n.name, name: name, value: n.attr(attrValue)}
	switch {
	case n.name == tagList || n.name == tagSet:
		tv.items = make([]string, 0, len(n.children))
		for _, c := range n.children {
			v := c.text
			if v == "" {
				v = c.attr(attrValue)
			}
			tv.items = append(tv.items, v)
		}
	case n.name == tagString && tv.value == "":
		tv.value = Decode(n.text)
	case !isKnownTypedTag(n.name):
		tv.tag = tagSerializable
		if tv.value == "" {
			tv.value = strings.TrimSpace(n.text)
		}
	case n.name == tagSerializable && tv.value == "":
		tv.value = strings.TrimSpace(n.text)
	}
	return tv, true
}

func typedValues(n *node) map[string]typedValue {
	values := make(map[string]typedValue, len(n.children))
	for _, c := range n.children {
		if tv, ok := asTypedValue(c); ok {
			values[tv.name] = tv
		}
	}
	return values
}
