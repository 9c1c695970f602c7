package site

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/mdsite/internal/content"
	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/page"
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// Stats summarizes one full build.
type Stats struct {
	Pages       int // converted content files
	Directories int
	Assets      int // passthrough copies
	Ignored     int
	Indexes     int
}

// Builder converts a source tree into an output tree.
type Builder struct {
	converter  content.Converter
	classifier *Classifier
	index      *IndexGenerator
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithConverter replaces the default markdown converter.
func WithConverter(c content.Converter) Option {
	return func(b *Builder) { b.converter = c }
}

// WithClassifier replaces the default entry classifier.
func WithClassifier(c *Classifier) Option {
	return func(b *Builder) { b.classifier = c }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithLogger sets the logger used by the builder and its index generator.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns a Builder with the markdown converter, the default
// classifier and no metrics unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{recorder: metrics.NoopRecorder{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	if b.converter == nil {
		b.converter = content.NewMarkdownConverter(b.logger)
	}
	if b.classifier == nil {
		b.classifier = NewClassifier()
	}
	b.index = NewIndexGenerator(b.logger)
	return b
}

// Build rebuilds outputDir from sourceDir and returns the generated pages of
// the top level: converted content files plus one index.html per subdirectory,
// in name order. outputDir is removed first. The first filesystem error aborts
// the build; partial output is left in place.
func (b *Builder) Build(sourceDir, outputDir string) ([]string, error) {
	var stats Stats
	return b.build(sourceDir, outputDir, &stats)
}

// BuildWithStats is Build returning totals for the whole tree.
func (b *Builder) BuildWithStats(sourceDir, outputDir string) (Stats, error) {
	var stats Stats
	_, err := b.build(sourceDir, outputDir, &stats)
	return stats, err
}

func (b *Builder) build(sourceDir, outputDir string, stats *Stats) ([]string, error) {
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fsError("remove output directory", outputDir, err)
	}
	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return nil, fsError("create output directory", outputDir, err)
	}

	// os.ReadDir sorts by file name, which fixes link order across platforms.
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fsError("read source directory", sourceDir, err)
	}

	var pages []string
	written := make(map[string]string)
	for _, de := range entries {
		entry, err := b.classify(sourceDir, de)
		if err != nil {
			return nil, err
		}
		b.recorder.IncFiles(entry.Kind.String())

		switch entry.Kind {
		case KindDirectory:
			target := filepath.Join(outputDir, entry.Name)
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return nil, fsError("create output directory", target, err)
			}
			if _, err := b.build(entry.Path, target, stats); err != nil {
				return nil, err
			}
			pages = append(pages, filepath.Join(target, IndexFile))
			stats.Directories++

		case KindPassthrough:
			target := filepath.Join(outputDir, entry.Name)
			if err := copyFile(entry.Path, target); err != nil {
				return nil, err
			}
			stats.Assets++

		case KindIgnored:
			b.logger.Debug("Skipping source entry", logfields.Path(entry.Path))
			stats.Ignored++

		case KindIndexSource:
			// consumed by the index generator below

		case KindContent:
			target, err := b.convertFile(entry, outputDir)
			if err != nil {
				return nil, err
			}
			if prev, dup := written[target]; dup {
				b.logger.Warn("Content files share an output page; the later one wins",
					logfields.Path(target), slog.String("previous", prev), slog.String("current", entry.Path))
			}
			written[target] = entry.Path
			pages = append(pages, target)
			stats.Pages++
		}
	}

	if err := b.index.Generate(sourceDir, outputDir, pages); err != nil {
		return nil, err
	}
	stats.Indexes++
	return pages, nil
}

func (b *Builder) classify(sourceDir string, de fs.DirEntry) (Entry, error) {
	name := de.Name()
	path := filepath.Join(sourceDir, name)
	if !utf8.ValidString(name) {
		return Entry{}, ferrors.EncodingError("source path is not valid UTF-8").
			WithContext("path", strings.ToValidUTF8(path, "�")).
			Build()
	}

	isDir := de.IsDir()
	if de.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return Entry{}, fsError("resolve symlink", path, err)
		}
		isDir = info.IsDir()
	}
	return Entry{Name: name, Path: path, Kind: b.classifier.Classify(name, isDir)}, nil
}

func (b *Builder) convertFile(entry Entry, outputDir string) (string, error) {
	if PageName(entry.Name) == IndexFile {
		b.logger.Warn("Content page will be replaced by the generated index", logfields.Path(entry.Path))
	}
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return "", fsError("read content file", entry.Path, err)
	}
	text := string(data)
	if !utf8.Valid(data) {
		text = strings.ToValidUTF8(text, "�")
	}

	doc := page.Render(content.Title(entry.Name), b.converter.Convert(text))
	target := filepath.Join(outputDir, PageName(entry.Name))
	if err := os.WriteFile(target, []byte(doc), filePerm); err != nil {
		return "", fsError("write page", target, err)
	}
	b.logger.Debug("Rendered page", logfields.Path(target))
	return target, nil
}

// copyFile copies src to dst byte-for-byte and keeps the source permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fsError("open asset", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fsError("stat asset", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fsError("create asset", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fsError("copy asset", dst, err)
	}
	if err := out.Close(); err != nil {
		return fsError("close asset", dst, err)
	}
	return nil
}

func fsError(message, path string, err error) error {
	return ferrors.FileSystemError(message).WithCause(err).WithContext("path", path).Build()
}
