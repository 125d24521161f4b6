// Package keyfile implements the grouped key-value document used to persist
// deployment origins.
//
// A document is an ordered list of groups, each holding an ordered list of
// keys. Values are stored as raw text; string and string-list accessors apply
// the escaping rules of the on-disk format:
//
//	[packages]
//	requested=vim;htop;
//
// List elements are separated by ';' and a literal ';' is written as "\;".
// Comments ('#') and blank lines are accepted on parse and not preserved.
package keyfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Document is an ordered grouped key-value document. The zero value is an
// empty, usable document.
type Document struct {
	groups []*group
}

type group struct {
	name    string
	entries []entry
}

type entry struct {
	key   string
	value string
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Parse reads a document from its text form.
func Parse(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// Read reads a document from r.
func Read(r io.Reader) (*Document, error) {
	d := New()
	var current *group

	// Lines are unbounded: long package lists exceed bufio.Scanner's token limit.
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read keyfile: %w", err)
		}
		if raw == "" && err == io.EOF {
			break
		}
		lineNo++
		line := strings.TrimSpace(raw)

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "["):
			if !strings.HasSuffix(line, "]") || len(line) < 3 {
				return nil, fmt.Errorf("line %d: invalid group header %q", lineNo, line)
			}
			current = d.ensureGroup(line[1 : len(line)-1])
		default:
			if current == nil {
				return nil, fmt.Errorf("line %d: key outside of any group", lineNo)
			}
			eq := strings.IndexByte(line, '=')
			if eq <= 0 {
				return nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo, line)
			}
			key := strings.TrimSpace(line[:eq])
			value := strings.TrimSpace(line[eq+1:])
			current.set(key, value)
		}

		if err == io.EOF {
			break
		}
	}

	return d, nil
}

// Marshal renders the document as text. Groups are separated by a blank line.
func (d *Document) Marshal() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the text form of the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, g := range d.groups {
		if i > 0 {
			n, err := io.WriteString(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
		n, err := fmt.Fprintf(w, "[%s]\n", g.name)
		total += int64(n)
		if err != nil {
			return total, err
		}
		for _, e := range g.entries {
			n, err := fmt.Fprintf(w, "%s=%s\n", e.key, e.value)
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{groups: make([]*group, 0, len(d.groups))}
	for _, g := range d.groups {
		ng := &group{name: g.name, entries: make([]entry, len(g.entries))}
		copy(ng.entries, g.entries)
		out.groups = append(out.groups, ng)
	}
	return out
}

// Groups returns the group names in document order.
func (d *Document) Groups() []string {
	names := make([]string, 0, len(d.groups))
	for _, g := range d.groups {
		names = append(names, g.name)
	}
	return names
}

// Keys returns the keys of a group in document order, or nil if the group is absent.
func (d *Document) Keys(groupName string) []string {
	g := d.group(groupName)
	if g == nil {
		return nil
	}
	keys := make([]string, 0, len(g.entries))
	for _, e := range g.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// HasGroup reports whether the group exists.
func (d *Document) HasGroup(groupName string) bool {
	return d.group(groupName) != nil
}

// HasKey reports whether the key exists in the group.
func (d *Document) HasKey(groupName, key string) bool {
	_, ok := d.Value(groupName, key)
	return ok
}

// Value returns the raw value of a key as stored, without unescaping.
func (d *Document) Value(groupName, key string) (string, bool) {
	g := d.group(groupName)
	if g == nil {
		return "", false
	}
	for _, e := range g.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// SetValue stores a raw value, creating the group and key as needed.
func (d *Document) SetValue(groupName, key, value string) {
	d.ensureGroup(groupName).set(key, value)
}

// GetString returns the unescaped string value of a key.
func (d *Document) GetString(groupName, key string) (string, bool) {
	raw, ok := d.Value(groupName, key)
	if !ok {
		return "", false
	}
	return unescape(raw), true
}

// SetString stores an escaped string value.
func (d *Document) SetString(groupName, key, value string) {
	d.SetValue(groupName, key, escape(value, false))
}

// GetStringList returns the list stored under a key. A missing key yields nil.
func (d *Document) GetStringList(groupName, key string) []string {
	raw, ok := d.Value(groupName, key)
	if !ok {
		return nil
	}
	return splitList(raw)
}

// SetStringList stores values as a list. Callers that want "empty means
// absent" semantics should use SetOrRemoveStringList.
func (d *Document) SetStringList(groupName, key string, values []string) {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(escape(v, true))
		b.WriteByte(';')
	}
	d.SetValue(groupName, key, b.String())
}

// SetOrRemoveStringList stores values, or removes the key when values is empty.
func (d *Document) SetOrRemoveStringList(groupName, key string, values []string) {
	if len(values) == 0 {
		d.RemoveKey(groupName, key)
		return
	}
	d.SetStringList(groupName, key, values)
}

// GetBool returns the boolean value of a key. Missing keys are false; values
// other than true/false are an error.
func (d *Document) GetBool(groupName, key string) (bool, error) {
	raw, ok := d.Value(groupName, key)
	if !ok {
		return false, nil
	}
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("key '%s' in group '%s' is not a boolean: %q", key, groupName, raw)
}

// SetBool stores a boolean value.
func (d *Document) SetBool(groupName, key string, value bool) {
	d.SetValue(groupName, key, strconv.FormatBool(value))
}

// RemoveKey deletes a key. It reports whether the key existed. A group left
// without keys is kept; equivalence ignores empty groups.
func (d *Document) RemoveKey(groupName, key string) bool {
	g := d.group(groupName)
	if g == nil {
		return false
	}
	for i, e := range g.entries {
		if e.key == key {
			g.entries = append(g.entries[:i], g.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveGroup deletes a group and all of its keys.
func (d *Document) RemoveGroup(groupName string) bool {
	for i, g := range d.groups {
		if g.name == groupName {
			d.groups = append(d.groups[:i], d.groups[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Document) group(name string) *group {
	for _, g := range d.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

func (d *Document) ensureGroup(name string) *group {
	if g := d.group(name); g != nil {
		return g
	}
	g := &group{name: name}
	d.groups = append(d.groups, g)
	return g
}

func (g *group) set(key, value string) {
	for i := range g.entries {
		if g.entries[i].key == key {
			g.entries[i].value = value
			return
		}
	}
	g.entries = append(g.entries, entry{key: key, value: value})
}

func splitList(raw string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			cur.WriteByte(c)
			cur.WriteByte(raw[i+1])
			i++
			continue
		}
		if c == ';' {
			out = append(out, unescape(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if cur.Len() > 0 {
		out = append(out, unescape(cur.String()))
	}
	return out
}

func escape(s string, inList bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case ';':
			if inList {
				b.WriteString(`\;`)
			} else {
				b.WriteByte(c)
			}
		case ' ':
			if i == 0 {
				b.WriteString(`\s`)
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 's':
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
