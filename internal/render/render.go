// Package render converts a page body from Markdown to HTML.
package render

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
)

// ErrHTMLConversion indicates the Markdown converter failed.
var ErrHTMLConversion = errors.New("render: HTML conversion failed")

// Renderer converts Markdown to an HTML fragment.
type Renderer interface {
	Render(ctx context.Context, body string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, body string) (string, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, body string) (string, error) {
	return f(ctx, body)
}

// Literal renders the body as escaped, wrapped preformatted text.
type Literal struct{}

// Render never fails.
func (Literal) Render(_ context.Context, body string) (string, error) {
	return LiteralHTML(body), nil
}

// LiteralHTML returns body escaped inside a wrapping <pre> block.
func LiteralHTML(body string) string {
	return `<pre style="white-space: pre-wrap;">` + html.EscapeString(body) + `</pre>`
}

// Output is the result of a Pipeline run.
type Output struct {
	HTML string
	// Fallback is true when the body was rendered literally.
	Fallback bool
	// Err is the primary renderer failure that caused the fallback, if any.
	Err error
}

// Pipeline renders with Primary and falls back to a literal rendering when
// Primary is missing, returns an error, or panics.
type Pipeline struct {
	Primary Renderer
	Logger  *slog.Logger
}

// NewPipeline creates a Pipeline. A nil logger discards log output.
func NewPipeline(primary Renderer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{Primary: primary, Logger: logger}
}

// Run renders body. It always produces displayable HTML.
func (p *Pipeline) Run(ctx context.Context, body string) Output {
	if p.Primary == nil {
		p.logger().Warn("render: no markdown renderer configured, using literal fallback")
		return Output{HTML: LiteralHTML(body), Fallback: true}
	}

	out, err := p.safeRender(ctx, body)
	if err != nil {
		p.logger().Warn("render: markdown conversion failed, using literal fallback",
			slog.String("error", err.Error()))
		return Output{HTML: LiteralHTML(body), Fallback: true, Err: err}
	}
	return Output{HTML: out}
}

func (p *Pipeline) safeRender(ctx context.Context, body string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrHTMLConversion, r)
		}
	}()
	return p.Primary.Render(ctx, body)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
