// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes folio posts to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/storage"
)

const (
	formatURI     = "folio://post-format"
	defaultLimit  = 50
	searchResults = 20
)

// Server wraps the MCP server with folio tools.
type Server struct {
	mcp   *server.MCPServer
	posts *postservice.Service
	db    index.PostIndex
	store storage.Provider
}

// New creates a new MCP server with all folio tools registered.
func New(posts *postservice.Service, db index.PostIndex, store storage.Provider) *Server {
	s := &Server{posts: posts, db: db, store: store}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts newest first, optionally filtered by an exact tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the raw Markdown source of a post, header included."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Post file relative to the pages directory (e.g. badminton.md)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("render_post",
		mcp.WithDescription("Render a post and return its metadata, section list and HTML as JSON. "+
			"An empty file renders the latest post."),
		mcp.WithString("file", mcp.Description("Post file relative to the pages directory")),
	), s.renderPost)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("classify_heading",
		mcp.WithDescription("Return the section id a level-two heading would receive."),
		mcp.WithString("heading", mcp.Required(), mcp.Description("Heading text without the leading ##")),
	), s.classifyHeading)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create a new post. Content SHOULD follow the post format; read it first via "+
			"the get_post_format tool or the "+formatURI+" resource."),
		mcp.WithString("file", mcp.Required(), mcp.Description("File name for the new post (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown source following the post format")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the folio post format. Call this before creating posts."),
	), s.getPostFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Post Format",
			mcp.WithResourceDescription("Markdown post format with the header and section conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
	)

	return s
}

// Listen serves MCP over in and out until ctx is cancelled or in closes.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPosts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	limit := req.GetInt("limit", defaultLimit)
	offset := req.GetInt("offset", 0)

	rows, total, err := s.db.ListPosts(limit, offset, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	posts := make([]any, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.Summary())
	}
	return jsonResult(map[string]any{"posts": posts, "total": total})
}

func (s *Server) readPost(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path.Join(s.posts.PagesDir(), file))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", file)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) renderPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := req.GetString("file", "")
	post, err := s.posts.Load(ctx, file)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", file)), nil
		case errors.Is(err, apperr.ErrNoPost):
			return mcp.NewToolResultError("no posts"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(post)
}

func (s *Server) searchPosts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, searchResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) classifyHeading(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	heading, err := req.RequireString("heading")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, ok := s.posts.Classify(heading)
	if !ok {
		return mcp.NewToolResultText("no match; the section gets a positional id (section-N)"), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) createPost(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(file, ".md") {
		return mcp.NewToolResultError("file must end with .md"), nil
	}

	p := path.Join(s.posts.PagesDir(), file)
	exists, err := s.store.Exists(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if exists {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", apperr.ErrAlreadyExists, file)), nil
	}

	data := []byte(content)
	if err := s.store.Write(p, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot write %s: %v", file, err)), nil
	}
	if err := index.IndexPage(s.db, file, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("created %s but indexing failed: %v", file, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", file)), nil
}

func (s *Server) getPostFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}
