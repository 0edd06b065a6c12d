package sections

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
)

// DefaultLinkLabel is the text of the "visit source" button. %s is the
// section title.
const DefaultLinkLabel = "🔗 %s 바로가기"

var documentTmpl = template.Must(template.New("sections").Parse(
	`{{if .Intro}}<div class="post-intro">{{.Intro}}</div>{{end}}` +
		`{{if .Sections}}<div class="accordion-container">{{range .Sections}}` +
		`<div class="accordion-item" data-section="{{.ID}}" id="{{.Anchor}}">` +
		`<button class="accordion-header" aria-expanded="false">` +
		`<span class="accordion-title">{{.Title}}</span><span class="accordion-icon">▼</span>` +
		`</button>` +
		`<div class="accordion-content">` +
		`{{if .Link}}<div class="accordion-link-wrapper">` +
		`<a href="{{.Link}}" target="_blank" rel="noopener noreferrer" class="accordion-link-btn">{{.Label}}</a>` +
		`</div>{{end}}` +
		`{{.Content}}</div></div>{{end}}</div>{{end}}`,
))

type documentView struct {
	Intro    template.HTML
	Sections []sectionView
}

type sectionView struct {
	ID, Anchor, Title, Link, Label string
	Content                        template.HTML
}

// Serializer writes a Document as collapsible-section markup. Every
// section starts closed.
type Serializer struct {
	// LinkLabel formats the link button text; defaults to DefaultLinkLabel.
	LinkLabel string
}

// Write serialises d to w. Node markup is already sanitised by the
// renderer and is emitted verbatim; titles and links are escaped.
func (s Serializer) Write(w io.Writer, d *Document) error {
	if d == nil {
		return nil
	}
	view := documentView{Intro: template.HTML(d.IntroHTML())}
	for _, sec := range d.Sections {
		view.Sections = append(view.Sections, sectionView{
			ID:      sec.ID,
			Anchor:  sec.Anchor,
			Title:   sec.Title,
			Link:    sec.Link,
			Label:   s.label(sec.Title),
			Content: template.HTML(sec.ContentHTML()),
		})
	}
	if err := documentTmpl.Execute(w, view); err != nil {
		return fmt.Errorf("sections: serialise: %w", err)
	}
	return nil
}

// String serialises d, returning "" on failure.
func (s Serializer) String(d *Document) string {
	var buf bytes.Buffer
	if err := s.Write(&buf, d); err != nil {
		return ""
	}
	return buf.String()
}

func (s Serializer) label(title string) string {
	l := s.LinkLabel
	if l == "" {
		l = DefaultLinkLabel
	}
	if strings.Contains(l, "%s") {
		return fmt.Sprintf(l, title)
	}
	return l
}
