package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/testutil"
)

func testConfig(t *testing.T) (*Config, string) {
	t.Helper()
	root, _ := testutil.TestContent(t, testutil.SamplePages)
	cfg := NewDefaultConfig()
	cfg.Content.Root = root
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "folio.db")
	return cfg, root
}

func testOpts(cfg *Config) []Option {
	return []Option{WithConfig(cfg), WithLogOutput(io.Discard)}
}

func TestBuildManifest(t *testing.T) {
	cfg, root := testConfig(t)
	p, n, err := BuildManifest(context.Background(), testOpts(cfg)...)
	if err != nil {
		t.Fatalf("BuildManifest: %v", err)
	}
	if p != "posts.json" || n != 3 {
		t.Errorf("BuildManifest = %q, %d, want posts.json, 3", p, n)
	}

	data, err := os.ReadFile(filepath.Join(root, "posts.json"))
	if err != nil {
		t.Fatal(err)
	}
	var entries []manifest.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if entries[0].File != "badminton.md" || entries[1].File != "ufc.md" {
		t.Errorf("order = %q, %q", entries[0].File, entries[1].File)
	}
}

func TestRenderPost_HTML(t *testing.T) {
	cfg, _ := testConfig(t)
	var buf bytes.Buffer
	if err := RenderPost(context.Background(), &buf, "badminton.md", FormatHTML, testOpts(cfg)...); err != nil {
		t.Fatalf("RenderPost: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `data-section="yonex"`) || !strings.Contains(out, `data-section="outro"`) {
		t.Errorf("html = %s", out)
	}
}

func TestRenderPost_JSONLatestFromManifest(t *testing.T) {
	cfg, _ := testConfig(t)
	opts := testOpts(cfg)

	// No manifest yet: there is no latest post.
	err := RenderPost(context.Background(), io.Discard, "", FormatJSON, opts...)
	if !errors.Is(err, apperr.ErrNoPost) {
		t.Fatalf("err = %v, want ErrNoPost", err)
	}

	if _, _, err := BuildManifest(context.Background(), opts...); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := RenderPost(context.Background(), &buf, "", FormatJSON, opts...); err != nil {
		t.Fatalf("RenderPost: %v", err)
	}
	var post struct {
		File string `json:"file"`
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(buf.Bytes(), &post); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if post.File != "badminton.md" {
		t.Errorf("file = %q, want badminton.md", post.File)
	}
	// HTML is written as is, not as \u003c escapes.
	if strings.Contains(buf.String(), `\u003c`) {
		t.Error("json output escapes HTML")
	}
}

func TestRenderPost_Errors(t *testing.T) {
	cfg, _ := testConfig(t)
	if err := RenderPost(context.Background(), io.Discard, "x.md", "pdf", testOpts(cfg)...); err == nil {
		t.Error("unknown format should fail")
	}
	err := RenderPost(context.Background(), io.Discard, "missing.md", FormatHTML, testOpts(cfg)...)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := RenderPost(context.Background(), io.Discard, "x.md", FormatHTML); err == nil {
		t.Error("missing config should fail")
	}
}

func TestRenderPost_CustomTableAndLabel(t *testing.T) {
	cfg, root := testConfig(t)
	table := filepath.Join(root, "sections.yaml")
	if err := os.WriteFile(table, []byte("rules:\n  - id: brand-victor\n    contains: [빅터]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Sections.TableFile = table
	cfg.Sections.LinkLabel = "%s 공식 사이트"

	var buf bytes.Buffer
	if err := RenderPost(context.Background(), &buf, "badminton.md", FormatHTML, testOpts(cfg)...); err != nil {
		t.Fatalf("RenderPost: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `data-section="brand-victor"`) {
		t.Errorf("custom table not applied: %s", out)
	}
	if !strings.Contains(out, "요넥스 공식 사이트") {
		t.Errorf("custom link label not applied: %s", out)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name  string
		check func() error
		code  int
	}{
		{"live", nil, http.StatusOK},
		{"ready", func() error { return nil }, http.StatusOK},
		{"not ready", func() error { return errors.New("down") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			healthHandler(tt.check)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.code {
				t.Errorf("status = %d, want %d", w.Code, tt.code)
			}
		})
	}
}

func TestNewLogger_File(t *testing.T) {
	cfg := NewDefaultConfig().App
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "folio.log")
	var out bytes.Buffer
	logger, closer, err := newLogger(cfg, &out)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg.Log.File)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) || !strings.Contains(out.String(), `"msg":"hello"`) {
		t.Errorf("file = %q, out = %q", data, out.String())
	}
}
