// Package dateutil parses post dates and formats them for display.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an unusable display format.
var ErrInvalidDateFormat = errors.New("invalid date format")

// inputLayouts are the accepted date spellings, tried in order.
var inputLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006.01.02",
	"2006.1.2",
}

// localeLayouts are long-form display layouts keyed by language.
var localeLayouts = map[string]string{
	"ko": "2006년 1월 2일",
	"en": "January 2, 2006",
	"ja": "2006年1月2日",
}

// display tokens ordered longest first
var tokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// Parse reads s using the accepted layouts.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range inputLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LocaleLayout returns the Go layout for a language tag such as "ko" or
// "en-US". Unknown languages use ISO dates.
func LocaleLayout(lang string) string {
	base := strings.ToLower(lang)
	if i := strings.IndexAny(base, "-_"); i > 0 {
		base = base[:i]
	}
	if l, ok := localeLayouts[base]; ok {
		return l
	}
	return "2006-01-02"
}

// Display formats s with layout. Unparsable input is returned unchanged.
func Display(s, layout string) string {
	t, ok := Parse(s)
	if !ok {
		return s
	}
	return t.Format(layout)
}

// ParseFormat converts a token format such as "YYYY.MM.DD" or
// "MMMM D, YYYY" into a Go layout. Text inside brackets is literal.
func ParseFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDateFormat)
	}
	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket at %d", ErrInvalidDateFormat, i)
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, t := range tokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String(), nil
}
