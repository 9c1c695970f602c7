package site

import (
	"html"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// LinkSeparator joins anchors in generated link markup.
const LinkSeparator = "<br/>\n"

// Link is one navigation entry of an index page.
type Link struct {
	Title string
	Href  string
}

// Links derives link entries for generated pages relative to outputDir, in
// page order. A subdirectory index (sub/index.html) is titled after the
// directory; a leaf page drops its .html extension. Hrefs keep the full
// relative path prefixed with "./".
func Links(outputDir string, pages []string) ([]Link, error) {
	links := make([]Link, 0, len(pages))
	for _, p := range pages {
		rel, err := filepath.Rel(outputDir, p)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, ferrors.InternalError("generated page is outside its output directory").
				WithCause(err).
				WithContext("path", p).
				WithContext("output", outputDir).
				Build()
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		links = append(links, Link{Title: linkTitle(parts), Href: "./" + escapeSegments(parts)})
	}
	return links, nil
}

func linkTitle(parts []string) string {
	last := parts[len(parts)-1]
	if last == IndexFile && len(parts) > 1 {
		return norm.NFC.String(strings.Join(parts[:len(parts)-1], "/"))
	}
	return norm.NFC.String(strings.TrimSuffix(last, PageExt))
}

func escapeSegments(parts []string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}

// RenderLinks renders anchors joined by LinkSeparator.
func RenderLinks(links []Link) string {
	anchors := make([]string, len(links))
	for i, l := range links {
		anchors[i] = `<a href="` + html.EscapeString(l.Href) + `">` + html.EscapeString(l.Title) + `</a>`
	}
	return strings.Join(anchors, LinkSeparator)
}
