package content

import (
	"bytes"
	"html"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// Converter renders one content file's text into an HTML body fragment.
type Converter interface {
	Convert(source string) string
}

// MarkdownConverter is the goldmark-backed Converter.
type MarkdownConverter struct {
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewMarkdownConverter returns a converter with the kitchen-sink extension profile.
func NewMarkdownConverter(logger *slog.Logger) *MarkdownConverter {
	if logger == nil {
		logger = slog.Default()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	return &MarkdownConverter{md: md, logger: logger}
}

// Convert renders source to HTML. A render failure degrades to the escaped
// source inside <pre> rather than an error.
func (c *MarkdownConverter) Convert(source string) string {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(source), &buf); err != nil {
		c.logger.Debug("markdown conversion degraded to literal text", logfields.Error(err))
		return "<pre>" + html.EscapeString(source) + "</pre>\n"
	}
	return buf.String()
}

var _ Converter = (*MarkdownConverter)(nil)
