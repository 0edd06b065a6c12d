package sections

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestSegment_EmptyInput(t *testing.T) {
	doc := Segment("", nil)
	if len(doc.Intro) != 0 || len(doc.Sections) != 0 {
		t.Errorf("intro = %d, sections = %d", len(doc.Intro), len(doc.Sections))
	}
	if got := doc.HTML(); got != "" {
		t.Errorf("html = %q, want empty", got)
	}
}

func TestSegment_NoHeadingsAllIntro(t *testing.T) {
	doc := Segment("<p>one</p>\n<ul><li>two</li></ul>\n", nil)
	if len(doc.Sections) != 0 {
		t.Fatalf("sections = %d, want 0", len(doc.Sections))
	}
	if len(doc.Intro) != 2 {
		t.Fatalf("intro nodes = %d, want 2", len(doc.Intro))
	}
	got := doc.HTML()
	if got != `<div class="post-intro"><p>one</p><ul><li>two</li></ul></div>` {
		t.Errorf("html = %q", got)
	}
	if strings.Contains(got, "accordion-container") {
		t.Error("no accordion wrapper expected without sections")
	}
}

func TestSegment_IntroAndSections(t *testing.T) {
	src := "<p>intro</p>\n<h2>요넥스 라인업</h2>\n<p>a</p>\n<p>b</p>\n<h2>Unknown</h2>\n<p>c</p>\n"
	doc := Segment(src, DefaultTable())

	if len(doc.Intro) != 1 {
		t.Errorf("intro nodes = %d, want 1", len(doc.Intro))
	}
	if got := doc.IDs(); !reflect.DeepEqual(got, []string{"yonex", "section-1"}) {
		t.Errorf("ids = %v", got)
	}
	if n := len(doc.Sections[0].Content); n != 2 {
		t.Errorf("first section content = %d, want 2", n)
	}
	if doc.Sections[0].Title != "요넥스 라인업" {
		t.Errorf("title = %q", doc.Sections[0].Title)
	}
	if got := doc.Sections[1].ContentHTML(); got != "<p>c</p>" {
		t.Errorf("content = %q", got)
	}
}

func TestSegment_OnlyTopLevelHeadingsSplit(t *testing.T) {
	src := "<h2>A</h2><div><h2>nested</h2></div><h3>sub</h3><h2>B</h2>"
	doc := Segment(src, NewTable())
	if len(doc.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(doc.Sections))
	}
	if len(doc.Sections[0].Content) != 2 {
		t.Errorf("first section content = %d, want 2", len(doc.Sections[0].Content))
	}
}

func TestSegment_SpecScenario(t *testing.T) {
	// heading-only body: first heading unclassified, second a brand
	doc := Segment("<h2>Intro text</h2>\n<h2>요넥스 brand info</h2>\n", DefaultTable())
	if len(doc.Intro) != 0 {
		t.Errorf("intro = %d, want 0", len(doc.Intro))
	}
	if got := doc.IDs(); !reflect.DeepEqual(got, []string{"section-0", "yonex"}) {
		t.Errorf("ids = %v", got)
	}
}

func TestSegment_PartitionIsLossless(t *testing.T) {
	src := "<p>i1</p><p>i2</p><h2>기타</h2><p>x</p><h2>마무리</h2><table><tr><td>1</td></tr></table><p>y</p>"
	doc := Segment(src, DefaultTable())

	var want strings.Builder
	nodes, _ := html.ParseFragment(strings.NewReader(src), divNode())
	for _, n := range nodes {
		_ = html.Render(&want, n)
	}
	if got := renderNodes(doc.Nodes()); got != want.String() {
		t.Errorf("reconstructed = %q\nwant %q", got, want.String())
	}

	var headings int
	for _, n := range nodes {
		if n.Data == "h2" {
			headings++
		}
	}
	if headings != len(doc.Sections) {
		t.Errorf("sections = %d, headings = %d", len(doc.Sections), headings)
	}
}

func TestSegment_HeadingLink(t *testing.T) {
	src := `<h2><a href="https://example.com/yonex">YONEX 공식</a></h2><p>body</p>`
	doc := Segment(src, DefaultTable())
	sec := doc.Sections[0]
	if sec.Link != "https://example.com/yonex" {
		t.Errorf("link = %q", sec.Link)
	}
	out := doc.HTML()
	wrapper := `<div class="accordion-link-wrapper"><a href="https://example.com/yonex" target="_blank" rel="noopener noreferrer" class="accordion-link-btn">🔗 YONEX 공식 바로가기</a></div>`
	if !strings.Contains(out, wrapper+"<p>body</p>") {
		t.Errorf("link affordance should precede content:\n%s", out)
	}
}

func TestSegment_HeadingWithoutHref(t *testing.T) {
	doc := Segment(`<h2><a name="x">title</a></h2>`, nil)
	if doc.Sections[0].Link != "" {
		t.Errorf("link = %q, want empty", doc.Sections[0].Link)
	}
	if strings.Contains(doc.HTML(), "accordion-link-wrapper") {
		t.Error("unexpected link wrapper")
	}
}

func TestSegment_DuplicateIDsGetUniqueAnchors(t *testing.T) {
	doc := Segment("<h2>요약</h2><h2>Summary again</h2><h2>트렌드 한눈에</h2>", DefaultTable())
	if got := doc.IDs(); !reflect.DeepEqual(got, []string{"summary", "summary", "summary"}) {
		t.Fatalf("ids = %v", got)
	}
	var anchors []string
	for _, s := range doc.Sections {
		anchors = append(anchors, s.Anchor)
	}
	if !reflect.DeepEqual(anchors, []string{"summary", "summary-2", "summary-3"}) {
		t.Errorf("anchors = %v", anchors)
	}
	if doc.Find("summary") != doc.Sections[0] {
		t.Error("Find should return the first match")
	}
	if doc.FindAnchor("summary-3") != doc.Sections[2] {
		t.Error("FindAnchor should locate the third section")
	}
}

func TestSerialize_Markup(t *testing.T) {
	doc := Segment("<h2>빅터 <em>&amp;</em> co</h2><p>v</p>", DefaultTable())
	got := doc.HTML()
	want := `<div class="accordion-container">` +
		`<div class="accordion-item" data-section="victor" id="victor">` +
		`<button class="accordion-header" aria-expanded="false">` +
		`<span class="accordion-title">빅터 &amp; co</span><span class="accordion-icon">▼</span>` +
		`</button>` +
		`<div class="accordion-content"><p>v</p></div></div></div>`
	if got != want {
		t.Errorf("html =\n%s\nwant\n%s", got, want)
	}
	if strings.Contains(got, "active") || strings.Contains(got, `aria-expanded="true"`) {
		t.Error("sections must start closed")
	}
}

func TestSerialize_UnsafeLinkNeutralised(t *testing.T) {
	doc := Segment(`<h2><a href="javascript:alert(1)">x</a></h2>`, nil)
	if strings.Contains(doc.HTML(), "javascript:") {
		t.Errorf("unsafe href emitted: %s", doc.HTML())
	}
}

func TestSerialize_CustomLabel(t *testing.T) {
	doc := Segment(`<h2><a href="https://e.x">Docs</a></h2>`, nil)
	got := Serializer{LinkLabel: "Visit %s"}.String(doc)
	if !strings.Contains(got, ">Visit Docs</a>") {
		t.Errorf("html = %s", got)
	}
	got = Serializer{LinkLabel: "Open"}.String(doc)
	if !strings.Contains(got, ">Open</a>") {
		t.Errorf("html = %s", got)
	}
}

func divNode() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}
