package site

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/content"
)

const (
	// IndexFile is the per-directory index, both as index source and as output page.
	IndexFile = "index.html"
	// Placeholder is replaced with the generated link markup in index sources.
	Placeholder = "{{LINKS}}"
	// PageExt is the extension of rendered pages.
	PageExt = ".html"
)

// Kind is the disposition of a source entry.
type Kind int

const (
	KindContent Kind = iota
	KindDirectory
	KindPassthrough
	KindIgnored
	KindIndexSource
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindDirectory:
		return "directory"
	case KindPassthrough:
		return "passthrough"
	case KindIgnored:
		return "ignored"
	case KindIndexSource:
		return "index_source"
	default:
		return "unknown"
	}
}

// Entry is one classified source directory entry.
type Entry struct {
	Name string
	Path string
	Kind Kind
}

// Classifier decides the Kind of a source entry from its name.
type Classifier struct {
	passthrough map[string]struct{}
}

// DefaultPassthroughExtensions are copied byte-for-byte into the output tree.
var DefaultPassthroughExtensions = []string{".css"}

// NewClassifier returns a classifier treating the given extensions (with or
// without leading dot, case-insensitive) as passthrough assets. No extensions
// means DefaultPassthroughExtensions.
func NewClassifier(passthrough ...string) *Classifier {
	if len(passthrough) == 0 {
		passthrough = DefaultPassthroughExtensions
	}
	c := &Classifier{passthrough: make(map[string]struct{}, len(passthrough))}
	for _, ext := range passthrough {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.passthrough[ext] = struct{}{}
	}
	return c
}

// Classify returns the disposition of an entry. Hidden entries are ignored,
// index.html is the index source, other .html files are ignored, passthrough
// extensions are assets and everything else (extensionless files included) is content.
func (c *Classifier) Classify(name string, isDir bool) Kind {
	if strings.HasPrefix(name, ".") {
		return KindIgnored
	}
	if isDir {
		return KindDirectory
	}
	if name == IndexFile {
		return KindIndexSource
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == PageExt {
		return KindIgnored
	}
	if _, ok := c.passthrough[ext]; ok {
		return KindPassthrough
	}
	return KindContent
}

// PageName is the output file name of a content file: its stem plus PageExt.
func PageName(name string) string {
	return content.Stem(name) + PageExt
}
