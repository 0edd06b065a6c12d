package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Options controls the Markdown dialect.
type Options struct {
	GFM            bool
	HardWraps      bool
	Highlight      bool
	HighlightStyle string
	Sanitize       bool
}

// DefaultOptions returns GFM with line breaks, class-based code
// highlighting, and sanitised output.
func DefaultOptions() Options {
	return Options{
		GFM:            true,
		HardWraps:      true,
		Highlight:      true,
		HighlightStyle: "github",
		Sanitize:       true,
	}
}

// Goldmark renders Markdown with goldmark.
type Goldmark struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	style     string
}

// NewGoldmark creates a Goldmark renderer.
func NewGoldmark(opts Options) *Goldmark {
	var exts []goldmark.Extender
	if opts.GFM {
		exts = append(exts, extension.GFM)
	}
	if opts.Highlight {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}

	// Raw HTML in the body passes through and is sanitised afterwards.
	htmlOpts := []renderer.Option{html.WithUnsafe()}
	if opts.HardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}

	g := &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithRendererOptions(htmlOpts...),
		),
		style: opts.HighlightStyle,
	}
	if opts.Sanitize {
		g.sanitizer = sanitizerPolicy()
	}
	return g
}

// Render converts body to an HTML fragment. goldmark has no context
// support, so conversion runs in a goroutine and ctx is honoured via select.
func (g *Goldmark) Render(ctx context.Context, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: panic: %v", ErrHTMLConversion, r)}
			}
		}()
		var buf bytes.Buffer
		if err := g.md.Convert([]byte(body), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		out := buf.String()
		if g.sanitizer != nil {
			out = g.sanitizer.Sanitize(out)
		}
		done <- result{html: out}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// WriteCSS writes the stylesheet for highlighted code blocks.
func (g *Goldmark) WriteCSS(w io.Writer) error {
	f := chromahtml.New(chromahtml.WithClasses(true))
	return f.WriteCSS(w, styles.Get(g.style))
}

func sanitizerPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").OnElements("span", "div", "code", "pre", "p", "h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	return p
}
