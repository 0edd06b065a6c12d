package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestContent(t, testutil.SamplePages)
	db := testutil.TestDB(t)
	if _, _, err := index.Sync(db, store, "pages", nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	posts := postservice.New(store, postservice.WithLatest(db))
	return New(posts, db, store), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so call the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
	case "read_post":
		result, err = srv.readPost(ctx, req)
	case "render_post":
		result, err = srv.renderPost(ctx, req)
	case "search_posts":
		result, err = srv.searchPosts(ctx, req)
	case "classify_heading":
		result, err = srv.classifyHeading(ctx, req)
	case "create_post":
		result, err = srv.createPost(ctx, req)
	case "get_post_format":
		result, err = srv.getPostFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListPosts(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_posts", map[string]any{})
	if r.IsError {
		t.Fatalf("list_posts error: %s", resultText(r))
	}
	var out struct {
		Posts []struct {
			File string `json:"file"`
		} `json:"posts"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 3 || len(out.Posts) != 3 {
		t.Fatalf("total = %d, posts = %d, want 3", out.Total, len(out.Posts))
	}
	if out.Posts[0].File != "badminton.md" {
		t.Errorf("first = %q, want badminton.md", out.Posts[0].File)
	}
}

func TestListPosts_Tag(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_posts", map[string]any{"tag": "UFC"})
	text := resultText(r)
	if !strings.Contains(text, `"ufc.md"`) || strings.Contains(text, `"badminton.md"`) {
		t.Errorf("tag filter result = %s", text)
	}
}

func TestReadPost(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_post", map[string]any{"file": "plain.md"})
	if got, want := resultText(r), testutil.SamplePages["plain.md"]; got != want {
		t.Errorf("read = %q, want %q", got, want)
	}
}

func TestReadPostMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_post", map[string]any{"file": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing post")
	}
}

func TestRenderPost(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "render_post", map[string]any{"file": "badminton.md"})
	if r.IsError {
		t.Fatalf("render_post error: %s", resultText(r))
	}
	var post postservice.Post
	if err := json.Unmarshal([]byte(resultText(r)), &post); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if post.Title != "배드민턴 라켓 브랜드 정리" {
		t.Errorf("title = %q", post.Title)
	}
	if len(post.Sections) != 3 || post.Sections[0].ID != "yonex" {
		t.Errorf("sections = %+v", post.Sections)
	}
}

func TestRenderPost_Latest(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "render_post", map[string]any{})
	if !strings.Contains(resultText(r), `"file": "badminton.md"`) {
		t.Errorf("latest render = %s", resultText(r))
	}
}

func TestRenderPost_Missing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "render_post", map[string]any{"file": "nope.md"})
	if !r.IsError || resultText(r) != "not found: nope.md" {
		t.Errorf("result = %q, IsError = %v", resultText(r), r.IsError)
	}
}

func TestSearchPosts(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "search_posts", map[string]any{"query": "스러스터"})
	if !strings.Contains(resultText(r), "badminton.md") {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestClassifyHeading(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "classify_heading", map[string]any{"heading": "요넥스 아스트록스"})); got != "yonex" {
		t.Errorf("classify = %q, want yonex", got)
	}
	if got := resultText(callTool(t, srv, "classify_heading", map[string]any{"heading": "random"})); !strings.HasPrefix(got, "no match") {
		t.Errorf("classify = %q, want no match", got)
	}
}

func TestCreatePost(t *testing.T) {
	srv, store := testServer(t)
	content := "---\ntitle: 새 글\ndate: 2025-12-01\n---\n## 마무리\n끝.\n"
	r := callTool(t, srv, "create_post", map[string]any{"file": "new.md", "content": content})
	if text := resultText(r); text != "created: new.md" {
		t.Fatalf("create result = %q", text)
	}
	data, err := store.Read("pages/new.md")
	if err != nil || string(data) != content {
		t.Errorf("stored = %q, %v", data, err)
	}
	// Indexed immediately: now the newest post.
	r = callTool(t, srv, "list_posts", map[string]any{"limit": 1})
	if !strings.Contains(resultText(r), `"new.md"`) {
		t.Errorf("list after create = %s", resultText(r))
	}
}

func TestCreatePost_Rejects(t *testing.T) {
	srv, _ := testServer(t)
	tests := []struct {
		name string
		file string
	}{
		{"exists", "plain.md"},
		{"not markdown", "new.txt"},
		{"traversal", "../../escape.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := callTool(t, srv, "create_post", map[string]any{"file": tt.file, "content": "x"})
			if !r.IsError {
				t.Errorf("create %q: expected error, got %q", tt.file, resultText(r))
			}
		})
	}
}

func TestGetPostFormat(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "get_post_format", nil)); got != PostFormatContract {
		t.Error("format tool should return the contract")
	}
	contents, err := srv.readPostFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != "folio://post-format" {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
