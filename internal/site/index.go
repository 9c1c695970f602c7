package site

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/content"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/page"
)

// IndexGenerator writes a directory's index.html from its index source.
type IndexGenerator struct {
	logger *slog.Logger
}

// NewIndexGenerator creates an index generator. A nil logger uses slog.Default.
func NewIndexGenerator(logger *slog.Logger) *IndexGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexGenerator{logger: logger}
}

// DefaultIndexSource is the index source persisted for a directory without one:
// a page titled after the directory whose body is the placeholder.
func DefaultIndexSource(sourceDir string) string {
	return page.Render(content.Title(filepath.Base(sourceDir)), Placeholder)
}

// Generate writes outputDir/index.html. When sourceDir has no index.html, the
// default index source is written there first and is treated as user-authored
// by every later build. Every placeholder occurrence is replaced with the link
// markup for pages; a source without placeholders is copied through unchanged.
func (g *IndexGenerator) Generate(sourceDir, outputDir string, pages []string) error {
	links, err := Links(outputDir, pages)
	if err != nil {
		return err
	}
	markup := RenderLinks(links)

	sourceIndex := filepath.Join(sourceDir, IndexFile)
	if _, err := os.Stat(sourceIndex); stderrors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(sourceIndex, []byte(DefaultIndexSource(sourceDir)), filePerm); err != nil {
			return fsError("write default index source", sourceIndex, err)
		}
		g.logger.Info("Created default index source", logfields.Path(sourceIndex))
	} else if err != nil {
		return fsError("stat index source", sourceIndex, err)
	}

	tmpl, err := os.ReadFile(sourceIndex)
	if err != nil {
		return fsError("read index source", sourceIndex, err)
	}
	rendered := strings.ReplaceAll(string(tmpl), Placeholder, markup)

	target := filepath.Join(outputDir, IndexFile)
	if err := os.WriteFile(target, []byte(rendered), filePerm); err != nil {
		return fsError("write index page", target, err)
	}
	g.logger.Debug("Wrote index page", logfields.Path(target), logfields.Pages(len(links)))
	return nil
}
