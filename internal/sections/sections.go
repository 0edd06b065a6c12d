// Package sections splits rendered post HTML at its second-level headings
// into an intro block and a sequence of named, collapsible sections.
package sections

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Section is the content under one <h2>.
type Section struct {
	// ID is the classified identifier. It is not unique across a document.
	ID string
	// Anchor is ID made unique within the document.
	Anchor string
	// Title is the text content of the heading.
	Title string
	// Link is the href of the first anchor inside the heading, if any.
	Link    string
	Heading *html.Node
	Content []*html.Node
}

// HeadingHTML returns the serialised heading node.
func (s *Section) HeadingHTML() string {
	return renderNodes([]*html.Node{s.Heading})
}

// ContentHTML returns the serialised content nodes.
func (s *Section) ContentHTML() string {
	return renderNodes(s.Content)
}

// Document is a segmented post body.
type Document struct {
	Intro    []*html.Node
	Sections []*Section
}

// Find returns the first section with the given identifier.
func (d *Document) Find(id string) *Section {
	for _, s := range d.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// FindAnchor returns the section with the given anchor.
func (d *Document) FindAnchor(anchor string) *Section {
	for _, s := range d.Sections {
		if s.Anchor == anchor {
			return s
		}
	}
	return nil
}

// IDs returns the section identifiers in order.
func (d *Document) IDs() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.ID
	}
	return out
}

// Nodes returns the top-level nodes in their original order.
func (d *Document) Nodes() []*html.Node {
	out := append([]*html.Node{}, d.Intro...)
	for _, s := range d.Sections {
		out = append(out, s.Heading)
		out = append(out, s.Content...)
	}
	return out
}

// IntroHTML returns the serialised intro nodes.
func (d *Document) IntroHTML() string {
	return renderNodes(d.Intro)
}

// HTML serialises the document with the default link label.
func (d *Document) HTML() string {
	return Serializer{}.String(d)
}

// Segmenter splits rendered HTML using a Classifier.
type Segmenter struct {
	Classifier Classifier
}

// New returns a Segmenter. A nil classifier uses DefaultTable.
func New(c Classifier) *Segmenter {
	if c == nil {
		c = DefaultTable()
	}
	return &Segmenter{Classifier: c}
}

// Segment splits fragment at its top-level <h2> elements. Top-level nodes
// are elements and non-blank text; comments and whitespace are dropped.
func (s *Segmenter) Segment(fragment string) *Document {
	doc := &Document{}
	if strings.TrimSpace(fragment) == "" {
		return doc
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return doc
	}

	used := map[string]bool{}
	var open *Section
	for _, n := range nodes {
		if !isTopLevel(n) {
			continue
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.H2 {
			open = s.newSection(n, len(doc.Sections), used)
			doc.Sections = append(doc.Sections, open)
			continue
		}
		if open == nil {
			doc.Intro = append(doc.Intro, n)
		} else {
			open.Content = append(open.Content, n)
		}
	}
	return doc
}

func (s *Segmenter) newSection(h *html.Node, index int, used map[string]bool) *Section {
	title := textContent(h)
	id, ok := "", false
	if s.Classifier != nil {
		id, ok = s.Classifier.Classify(title)
	}
	if !ok || id == "" {
		id = fmt.Sprintf("section-%d", index)
	}
	return &Section{
		ID:      id,
		Anchor:  uniqueAnchor(id, used),
		Title:   title,
		Link:    firstLink(h),
		Heading: h,
	}
}

// Segment splits fragment with the given classifier.
func Segment(fragment string, c Classifier) *Document {
	return New(c).Segment(fragment)
}

// uniqueAnchor suffixes id with -2, -3, ... until it is unused.
func uniqueAnchor(id string, used map[string]bool) string {
	anchor := id
	for n := 2; used[anchor]; n++ {
		anchor = fmt.Sprintf("%s-%d", id, n)
	}
	used[anchor] = true
	return anchor
}

func isTopLevel(n *html.Node) bool {
	switch n.Type {
	case html.ElementNode:
		return true
	case html.TextNode:
		return strings.TrimSpace(n.Data) != ""
	default:
		return false
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// firstLink returns the href of the first <a> under n.
func firstLink(n *html.Node) string {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if found == nil {
		return ""
	}
	for _, a := range found.Attr {
		if a.Namespace == "" && a.Key == "href" {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func renderNodes(nodes []*html.Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		if n == nil {
			continue
		}
		_ = html.Render(&buf, n)
	}
	return buf.String()
}
