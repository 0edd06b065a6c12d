package parser

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Well-known header keys.
const (
	TitleKey    = "title"
	DateKey     = "date"
	CategoryKey = "category"
	TagsKey     = "tags"
	ExcerptKey  = "excerpt"
)

// Metadata is the ordered key/value map read from a page header. Every
// value is a string except tags, which is a list when written in brackets.
type Metadata struct {
	keys    []string
	values  map[string]string
	tags    []string
	hasTags bool
}

// NewMetadata returns an empty Metadata.
func NewMetadata() Metadata {
	return Metadata{values: map[string]string{}}
}

// Set stores a string value. Setting tags this way replaces any list.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	if key == TagsKey {
		m.tags = nil
		m.hasTags = false
	}
}

// SetTags stores the tag list.
func (m *Metadata) SetTags(tags []string) {
	m.Set(TagsKey, "["+strings.Join(tags, ", ")+"]")
	m.tags = append([]string{}, tags...)
	m.hasTags = true
}

// Get returns the string value for key. For a tag list it returns the
// items joined by ", " inside brackets.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the string value for key or "" when absent.
func (m Metadata) Value(key string) string {
	return m.values[key]
}

// Tags returns the tag list. It is empty unless tags were given in brackets.
func (m Metadata) Tags() []string {
	if !m.hasTags {
		return nil
	}
	return append([]string{}, m.tags...)
}

// HasTags reports whether tags were parsed as a list.
func (m Metadata) HasTags() bool { return m.hasTags }

// Keys returns the keys in first-seen order.
func (m Metadata) Keys() []string { return append([]string{}, m.keys...) }

// Len returns the number of keys.
func (m Metadata) Len() int { return len(m.keys) }

func (m Metadata) Title() string    { return m.values[TitleKey] }
func (m Metadata) Date() string     { return m.values[DateKey] }
func (m Metadata) Category() string { return m.values[CategoryKey] }

// MarshalJSON writes the metadata as an object in key order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		var vb []byte
		if k == TagsKey && m.hasTags {
			vb, err = json.Marshal(m.tags)
		} else {
			vb, err = json.Marshal(m.values[k])
		}
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Format writes m back out as a header block followed by body. Parsing the
// result yields m and body again as long as body does not start with a
// line break. Empty metadata produces body alone.
func Format(m Metadata, body string) string {
	if m.Len() == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString("---\n")
	for _, k := range m.keys {
		b.WriteString(k)
		b.WriteString(": ")
		if k == TagsKey && m.hasTags {
			tb, _ := json.Marshal(m.tags)
			b.Write(tb)
		} else {
			b.WriteString(quoteIfNeeded(m.values[k]))
		}
		b.WriteByte('\n')
	}
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String()
}

func quoteIfNeeded(v string) string {
	if v != strings.TrimSpace(v) || unquote(v) != v || isBracketed(v) {
		return `"` + v + `"`
	}
	return v
}
