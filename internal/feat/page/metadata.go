package page

import "strings"

// DefaultSeparator splits a metadata line into key and value.
const DefaultSeparator = ":"

// Metadata holds the header values of a page in the order they appeared.
// A repeated key keeps its first position and takes the last value.
type Metadata struct {
	keys   []string
	values map[string]string
}

func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

func (m *Metadata) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in header order.
func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Metadata) Len() int {
	return len(m.keys)
}

// MergeInto copies every pair into ctx, overwriting existing keys.
func (m *Metadata) MergeInto(ctx Context) {
	for _, k := range m.keys {
		ctx[k] = m.values[k]
	}
}

// ParseMetadata reads a header block of "key: value" lines off the top of body.
//
//	title: About
//	author: koen
//
//	<p>Hello</p>
//
// Blank lines are skipped. The first line without sep ends the header; it and
// everything after it, joined by "\n", is returned as the remaining body. The
// value is everything after the first sep, so "url: http://x" keeps its colon.
func ParseMetadata(body, sep string) (*Metadata, string) {
	if sep == "" {
		sep = DefaultSeparator
	}

	meta := NewMetadata()
	lines := splitLines(body)
	if len(lines) == 0 {
		return meta, ""
	}

	for i, line := range lines {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, sep)
		if !found {
			return meta, strings.Join(lines[i:], "\n")
		}
		meta.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	// Header only, no body.
	return meta, ""
}

// splitLines splits on \n, \r\n and \r without producing a trailing empty line.
func splitLines(s string) []string {
	var lines []string
	for len(s) > 0 {
		i := strings.IndexAny(s, "\r\n")
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i])
		if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
			i++
		}
		s = s[i+1:]
	}
	return lines
}
