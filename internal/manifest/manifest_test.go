package manifest

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

func testStore(t *testing.T) storage.Provider {
	t.Helper()
	s, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestLoad_MissingIsEmpty(t *testing.T) {
	entries, err := Load(testStore(t), "posts.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d", len(entries))
	}
}

func TestWriteThenLoad(t *testing.T) {
	store := testStore(t)
	in := []Entry{
		{File: "b.md", Title: "B", Date: "2025-11-20", Tags: []string{"x"}},
		{File: "a.md", Title: "A", Date: "2025-11-01"},
	}
	if err := Write(store, "posts.json", in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := Load(store, "posts.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].File != "b.md" || out[1].Tags == nil {
		t.Errorf("out = %+v", out)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	store := testStore(t)
	_ = store.Write("posts.json", []byte("{not json"))
	if _, err := Load(store, "posts.json"); err == nil {
		t.Error("expected decode error")
	}
}

func TestLatest(t *testing.T) {
	if _, ok := Latest(nil); ok {
		t.Error("empty manifest has no latest")
	}
	e, ok := Latest([]Entry{{File: "first.md"}, {File: "second.md"}})
	if !ok || e.File != "first.md" {
		t.Errorf("latest = %+v", e)
	}
}

func TestBuild(t *testing.T) {
	store := testStore(t)
	_ = store.Write("pages/old.md", []byte("---\ntitle: Old\ndate: 2025-10-01\ntags: [a, b]\n---\nOld body."))
	_ = store.Write("pages/new.md", []byte("---\ntitle: New\ndate: 2025-11-20\ncategory: Sports\ntags: [b]\nexcerpt: Custom excerpt\n---\n# H\n\nBody."))
	_ = store.Write("pages/untitled.md", []byte("No header, just text."))

	entries, err := Build(store, "pages", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var files []string
	for _, e := range entries {
		files = append(files, e.File)
	}
	if !reflect.DeepEqual(files, []string{"new.md", "old.md", "untitled.md"}) {
		t.Fatalf("files = %v", files)
	}
	if entries[0].Excerpt != "Custom excerpt" || entries[0].Category != "Sports" {
		t.Errorf("new = %+v", entries[0])
	}
	if entries[1].Excerpt != "Old body." {
		t.Errorf("old excerpt = %q", entries[1].Excerpt)
	}
	if entries[2].Title != "untitled" {
		t.Errorf("fallback title = %q", entries[2].Title)
	}
}

func TestTitleFromFile(t *testing.T) {
	tests := []struct{ in, want string }{
		{"post.md", "post"},
		{"sub/post.md", "sub/post"},
		{"notes.md.md", "notes.md"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := TitleFromFile(tt.in); got != tt.want {
			t.Errorf("TitleFromFile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEntryFor_DescriptionFallback(t *testing.T) {
	res := parser.Parse([]byte("---\ndescription: From description\n---\nbody"))
	e := EntryFor("x.md", res)
	if e.Excerpt != "From description" {
		t.Errorf("excerpt = %q", e.Excerpt)
	}
	if e.Tags == nil {
		t.Error("tags should be an empty list, not nil")
	}
}

func TestExcerpt(t *testing.T) {
	body := "# Title\n\n![img](a.png)\n```\ncode line\n```\n> quote\n\n**First** prose line.\nSecond."
	if got := Excerpt(body); got != "First** prose line." {
		t.Errorf("excerpt = %q", got)
	}
	long := strings.Repeat("가", 200)
	got := Excerpt(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != excerptLen+1 {
		t.Errorf("truncated excerpt has %d runes", len([]rune(got)))
	}
	if Excerpt("") != "" {
		t.Error("empty body should have empty excerpt")
	}
}

func TestFileSource(t *testing.T) {
	store := testStore(t)
	src := FileSource{Store: store, Path: "posts.json"}

	file, err := src.LatestFile(context.Background())
	if err != nil || file != "" {
		t.Errorf("empty source = %q, %v", file, err)
	}

	_ = Write(store, "posts.json", []Entry{{File: "latest.md"}, {File: "older.md"}})
	file, err = src.LatestFile(context.Background())
	if err != nil || file != "latest.md" {
		t.Errorf("latest = %q, %v", file, err)
	}
}

func sampleEntries() []Entry {
	return []Entry{
		{File: "1.md", Title: "Yonex Astrox review", Category: "배드민턴", Tags: []string{"요넥스", "라켓"}},
		{File: "2.md", Title: "UFC 322", Excerpt: "Fight night recap", Tags: []string{"UFC", "격투기"}},
		{File: "3.md", Title: "2025 트렌드", Tags: []string{"트렌드", "라켓"}},
	}
}

func TestFilter_Tag(t *testing.T) {
	got := Apply(sampleEntries(), Filter{Tag: "라켓"})
	if len(got) != 2 || got[0].File != "1.md" || got[1].File != "3.md" {
		t.Errorf("got %+v", got)
	}
	if got := Apply(sampleEntries(), Filter{Tag: "라"}); len(got) != 0 {
		t.Errorf("tag match must be exact, got %d", len(got))
	}
}

func TestFilter_QueryFields(t *testing.T) {
	cases := map[string]string{
		"astrox":   "1.md", // title, case-insensitive
		"RECAP":    "2.md", // excerpt
		"배드민턴":     "1.md", // category
		"격투":       "2.md", // tag substring
		"  ufc 3 ": "2.md", // trimmed
	}
	for q, want := range cases {
		got := Apply(sampleEntries(), Filter{Query: q})
		if len(got) != 1 || got[0].File != want {
			t.Errorf("query %q = %+v, want %s", q, got, want)
		}
	}
}

func TestFilter_TagThenQuery(t *testing.T) {
	got := Apply(sampleEntries(), Filter{Tag: "라켓", Query: "트렌드"})
	if len(got) != 1 || got[0].File != "3.md" {
		t.Errorf("got %+v", got)
	}
}

func TestFilter_Zero(t *testing.T) {
	if !(Filter{Query: "  "}).IsZero() {
		t.Error("blank query should be zero")
	}
	if got := Apply(sampleEntries(), Filter{}); len(got) != 3 {
		t.Errorf("zero filter kept %d", len(got))
	}
}

func TestAggregateTags(t *testing.T) {
	got := AggregateTags(sampleEntries())
	want := []models.TagCount{
		{Tag: "라켓", Count: 2},
		{Tag: "요넥스", Count: 1},
		{Tag: "UFC", Count: 1},
		{Tag: "격투기", Count: 1},
		{Tag: "트렌드", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
	if got := AggregateTags(nil); got == nil || len(got) != 0 {
		t.Errorf("empty = %v", got)
	}
}
