package sections

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Classifier maps heading text to a section identifier.
type Classifier interface {
	Classify(text string) (id string, ok bool)
}

// Matcher is a predicate over heading text.
type Matcher interface {
	Match(text string) bool
}

// Contains matches when the text contains any of the substrings.
type Contains []string

func (c Contains) Match(text string) bool {
	for _, s := range c {
		if s != "" && strings.Contains(text, norm.NFC.String(s)) {
			return true
		}
	}
	return false
}

// Pattern matches a regular expression against the text.
type Pattern struct {
	*regexp.Regexp
}

func (p Pattern) Match(text string) bool {
	return p.Regexp != nil && p.MatchString(text)
}

// Rule maps a predicate to an identifier. Tags lists the exact tag labels
// that deep-link to sections with this identifier.
type Rule struct {
	ID    string
	Match Matcher
	Tags  []string
}

// Table is an ordered list of rules evaluated first-match.
type Table struct {
	rules []Rule
}

// NewTable creates a Table from rules in evaluation order.
func NewTable(rules ...Rule) *Table {
	return &Table{rules: append([]Rule{}, rules...)}
}

// Rules returns a copy of the rules.
func (t *Table) Rules() []Rule {
	return append([]Rule{}, t.rules...)
}

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Append adds rules after the existing ones.
func (t *Table) Append(rules ...Rule) {
	t.rules = append(t.rules, rules...)
}

// Classify returns the identifier of the first matching rule. Matching is
// case-sensitive on NFC-normalised text.
func (t *Table) Classify(text string) (string, bool) {
	if t == nil {
		return "", false
	}
	text = norm.NFC.String(text)
	for _, r := range t.rules {
		if r.Match != nil && r.Match.Match(text) {
			return r.ID, true
		}
	}
	return "", false
}

// TargetForTag returns the section identifier a tag label links to.
func (t *Table) TargetForTag(tag string) (string, bool) {
	if t == nil {
		return "", false
	}
	tag = norm.NFC.String(strings.TrimSpace(tag))
	for _, r := range t.rules {
		for _, label := range r.Tags {
			if norm.NFC.String(label) == tag {
				return r.ID, true
			}
		}
	}
	return "", false
}

type tableFile struct {
	// Extend appends the rules to the default table instead of replacing it.
	Extend bool       `yaml:"extend"`
	Rules  []ruleFile `yaml:"rules"`
}

type ruleFile struct {
	ID       string   `yaml:"id"`
	Contains []string `yaml:"contains"`
	Pattern  string   `yaml:"pattern"`
	Tags     []string `yaml:"tags"`
}

// LoadTable reads a table from YAML:
//
//	extend: true
//	rules:
//	  - id: yonex
//	    contains: [요넥스, YONEX]
//	    tags: [요넥스]
//	  - id: season
//	    pattern: '^20\d\d '
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sections: decode table: %w", err)
	}

	t := NewTable()
	if f.Extend {
		t = DefaultTable()
	}
	for i, rf := range f.Rules {
		rule, err := rf.rule()
		if err != nil {
			return nil, fmt.Errorf("sections: rule %d: %w", i, err)
		}
		t.Append(rule)
	}
	return t, nil
}

// LoadTableFile reads a table from a YAML file.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sections: open table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

func (rf ruleFile) rule() (Rule, error) {
	if rf.ID == "" {
		return Rule{}, errors.New("id is required")
	}
	switch {
	case len(rf.Contains) > 0 && rf.Pattern != "":
		return Rule{}, fmt.Errorf("%s: contains and pattern are mutually exclusive", rf.ID)
	case len(rf.Contains) > 0:
		return Rule{ID: rf.ID, Match: Contains(rf.Contains), Tags: rf.Tags}, nil
	case rf.Pattern != "":
		re, err := regexp.Compile(rf.Pattern)
		if err != nil {
			return Rule{}, fmt.Errorf("%s: %w", rf.ID, err)
		}
		return Rule{ID: rf.ID, Match: Pattern{re}, Tags: rf.Tags}, nil
	default:
		return Rule{}, fmt.Errorf("%s: contains or pattern is required", rf.ID)
	}
}
