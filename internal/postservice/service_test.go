package postservice

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/storage"
)

func setup(t *testing.T, pages map[string]string, opts ...Option) (*Service, storage.Provider) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	for name, content := range pages {
		if err := store.Write("pages/"+name, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return New(store, opts...), store
}

func TestLoad_HeaderAndSections(t *testing.T) {
	svc, _ := setup(t, map[string]string{
		"hello.md": "---\ntitle: Hello\ntags: [x, y]\n---\n## Intro text\n## 요넥스 brand info",
	})

	p, err := svc.Load(context.Background(), "hello.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Title != "Hello" {
		t.Errorf("title = %q, want %q", p.Title, "Hello")
	}
	if !reflect.DeepEqual(p.Tags, []string{"x", "y"}) {
		t.Errorf("tags = %v", p.Tags)
	}
	if p.Fallback {
		t.Error("expected markdown rendering, got fallback")
	}
	var ids []string
	for _, s := range p.Sections {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []string{"section-0", "yonex"}) {
		t.Errorf("section ids = %v", ids)
	}
	if !strings.Contains(p.HTML, `data-section="yonex"`) {
		t.Errorf("html missing yonex section: %s", p.HTML)
	}
	if p.CommentTerm != "hello.md" {
		t.Errorf("comment term = %q", p.CommentTerm)
	}
	if p.Checksum == "" || p.Document == nil {
		t.Error("checksum and document should be set")
	}
}

func TestLoad_NotFound(t *testing.T) {
	svc, _ := setup(t, nil)
	_, err := svc.Load(context.Background(), "missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoad_LatestWithoutSource(t *testing.T) {
	svc, _ := setup(t, nil)
	_, err := svc.Load(context.Background(), "")
	if !errors.Is(err, apperr.ErrNoPost) {
		t.Errorf("err = %v, want ErrNoPost", err)
	}
}

func TestLoad_LatestFromManifest(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("pages/new.md", []byte("---\ntitle: Newest\n---\nbody"))
	src := manifest.FileSource{Store: store, Path: "posts.json"}
	svc := New(store, WithLatest(src))

	if _, err := svc.Load(context.Background(), ""); !errors.Is(err, apperr.ErrNoPost) {
		t.Fatalf("empty manifest err = %v", err)
	}

	_ = manifest.Write(store, "posts.json", []manifest.Entry{{File: "new.md"}})
	p, err := svc.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load latest: %v", err)
	}
	if p.File != "new.md" || p.Title != "Newest" {
		t.Errorf("post = %s %q", p.File, p.Title)
	}
	// The latest view maps comments to the resolved file.
	if p.CommentTerm != "new.md" {
		t.Errorf("comment term = %q, want new.md", p.CommentTerm)
	}
}

func TestLoad_RendererFailureFallsBack(t *testing.T) {
	failing := render.RendererFunc(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	})
	svc, _ := setup(t, map[string]string{"p.md": "# <b>raw</b>"}, WithRenderer(failing))

	p, err := svc.Load(context.Background(), "p.md")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.Fallback {
		t.Error("expected fallback")
	}
	if !strings.Contains(p.HTML, "white-space: pre-wrap") || !strings.Contains(p.HTML, "&lt;b&gt;") {
		t.Errorf("html = %s", p.HTML)
	}
	if len(p.Sections) != 0 {
		t.Errorf("literal output should have no sections, got %d", len(p.Sections))
	}
}

func TestLoad_NilRendererFallsBack(t *testing.T) {
	svc, _ := setup(t, map[string]string{"p.md": "text"}, WithRenderer(nil))
	p, err := svc.Load(context.Background(), "p.md")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Fallback {
		t.Error("nil renderer should fall back")
	}
}

func TestProcess_Defaults(t *testing.T) {
	svc, _ := setup(t, nil)
	p := svc.Process(context.Background(), "plain-note.md", []byte("no header"))
	if p.Title != "plain-note" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Tags == nil || len(p.Tags) != 0 {
		t.Errorf("tags = %#v", p.Tags)
	}
	if p.Metadata.Len() != 0 {
		t.Errorf("metadata len = %d", p.Metadata.Len())
	}
}

func TestProcess_DateDisplay(t *testing.T) {
	data := []byte("---\ndate: 2025-11-20\n---\nx")

	svc, _ := setup(t, nil)
	if got := svc.Process(context.Background(), "a.md", data).DateDisplay; got != "2025년 11월 20일" {
		t.Errorf("ko = %q", got)
	}
	svc, _ = setup(t, nil, WithLocale("en"))
	if got := svc.Process(context.Background(), "a.md", data).DateDisplay; got != "November 20, 2025" {
		t.Errorf("en = %q", got)
	}
	raw := svc.Process(context.Background(), "a.md", []byte("---\ndate: someday\n---\nx"))
	if raw.DateDisplay != "someday" {
		t.Errorf("unparsable = %q", raw.DateDisplay)
	}
}

func TestProcess_TagTargets(t *testing.T) {
	svc, _ := setup(t, nil)
	p := svc.Process(context.Background(), "b.md", []byte("---\ntags: [요넥스, 구매팁, 없는태그]\n---\nx"))
	want := map[string]string{"요넥스": "yonex", "구매팁": "tips"}
	if !reflect.DeepEqual(p.TagTargets, want) {
		t.Errorf("targets = %v, want %v", p.TagTargets, want)
	}
}

func TestProcess_DuplicateKeysLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc, _ := setup(t, nil, WithLogger(logger))

	p := svc.Process(context.Background(), "d.md", []byte("---\ntitle: One\ntitle: Two\n---\nx"))
	if p.Title != "Two" {
		t.Errorf("title = %q, want last value", p.Title)
	}
	if !strings.Contains(buf.String(), "duplicate header key") || !strings.Contains(buf.String(), "key=title") {
		t.Errorf("log = %s", buf.String())
	}
}

func TestProcess_LinkLabel(t *testing.T) {
	svc, _ := setup(t, nil, WithLinkLabel("source: %s"))
	p := svc.Process(context.Background(), "l.md", []byte("## [요넥스](https://example.com)\nbody"))
	if !strings.Contains(p.HTML, "source: 요넥스") {
		t.Errorf("html = %s", p.HTML)
	}
	if p.Sections[0].Link != "https://example.com" {
		t.Errorf("link = %q", p.Sections[0].Link)
	}
}
