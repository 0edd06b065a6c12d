// Package parser splits a page into its metadata header and Markdown body.
//
// A header is a block of "key: value" lines fenced by two "---" lines at the
// very start of the document:
//
//	---
//	title: Hello
//	tags: [go, blog]
//	---
//	Body text.
package parser

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

const bom = "\uFEFF"

var (
	headerRe  = regexp.MustCompile(`^---[\r\n]+([\s\S]*?)[\r\n]+---[\r\n]+([\s\S]*)$`)
	lineSplit = regexp.MustCompile(`\r?\n`)
)

// Result holds the output of parsing a page.
type Result struct {
	Metadata Metadata
	Body     string
	// Duplicates lists keys that appeared more than once in the header, in
	// the order their later occurrences overwrote the earlier value.
	Duplicates []string
}

// HasHeader reports whether a header block was recognised.
func (r *Result) HasHeader() bool {
	return r.Metadata.Len() > 0
}

// Parse extracts the header and body from raw page bytes. It never fails:
// input without a recognisable header yields empty metadata and the whole
// document as body.
func Parse(data []byte) *Result {
	text := string(bytes.TrimPrefix(data, []byte(bom)))

	m := headerRe.FindStringSubmatch(text)
	if m == nil {
		return &Result{Metadata: NewMetadata(), Body: text}
	}

	md, dups := parseHeader(m[1])
	return &Result{Metadata: md, Body: m[2], Duplicates: dups}
}

func parseHeader(block string) (Metadata, []string) {
	md := NewMetadata()
	var dups []string

	for _, line := range SplitLines(block) {
		colon := strings.Index(line, ":")
		if colon <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:colon])
		if key == "" {
			continue
		}
		value := unquote(strings.TrimSpace(line[colon+1:]))

		if _, seen := md.values[key]; seen {
			dups = append(dups, key)
		}

		if key == TagsKey && isBracketed(value) {
			md.SetTags(parseTags(value))
			continue
		}
		md.Set(key, value)
	}
	return md, dups
}

// unquote removes exactly one pair of matching surrounding quotes.
func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if (first == '"' || first == '\'') && first == last {
		return v[1 : len(v)-1]
	}
	return v
}

func isBracketed(v string) bool {
	return strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]")
}

// parseTags reads a bracketed list, first as a JSON string array and then
// as a comma separated list of optionally quoted items.
func parseTags(v string) []string {
	var list []string
	if err := json.Unmarshal([]byte(v), &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list
	}

	inner := v[1 : len(v)-1]
	out := []string{}
	for _, item := range strings.Split(inner, ",") {
		item = strings.TrimSpace(item)
		item = trimQuoteChar(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// trimQuoteChar strips one leading and one trailing quote character,
// independently of each other.
func trimQuoteChar(s string) string {
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if s != "" && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

// SplitLines splits text on LF and CRLF line endings.
func SplitLines(text string) []string {
	return lineSplit.Split(text, -1)
}
