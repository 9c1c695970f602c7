package config

import (
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/publish"
)

// Validate checks the configuration and normalizes logging values in place.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return ferrors.ValidationError("source_dir must not be empty").Build()
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ferrors.ValidationError("output_dir must not be empty").Build()
	}
	if err := checkDirsDisjoint(c.SourceDir, c.OutputDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Server.Address) == "" {
		return ferrors.ValidationError("server.address must not be empty").Build()
	}
	if c.Build.Debounce < 0 {
		return ferrors.ValidationError("build.debounce must not be negative").
			WithContext("value", c.Build.Debounce.String()).Build()
	}
	if c.Build.RebuildInterval < 0 {
		return ferrors.ValidationError("build.rebuild_interval must not be negative").
			WithContext("value", c.Build.RebuildInterval.String()).Build()
	}
	if c.Build.CacheSize < 0 {
		return ferrors.ValidationError("build.cache_size must not be negative").
			WithContext("value", c.Build.CacheSize).Build()
	}

	level, err := logLevelNormalizer.NormalizeWithError(c.Logging.Level)
	if err != nil {
		return ferrors.ValidationError("invalid logging.level").WithCause(err).Build()
	}
	c.Logging.Level = string(level)
	format, err := logFormatNormalizer.NormalizeWithError(c.Logging.Format)
	if err != nil {
		return ferrors.ValidationError("invalid logging.format").WithCause(err).Build()
	}
	c.Logging.Format = string(format)
	return nil
}

// checkDirsDisjoint rejects an output directory that contains, or lives in,
// the source tree: every build deletes the output directory first.
func checkDirsDisjoint(source, output string) error {
	src, err := filepath.Abs(source)
	if err != nil {
		return ferrors.ValidationError("resolve source_dir").WithCause(err).Build()
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return ferrors.ValidationError("resolve output_dir").WithCause(err).Build()
	}
	if within(out, src) || within(src, out) {
		return ferrors.ValidationError("source_dir and output_dir must not overlap").
			WithContext("source_dir", src).
			WithContext("output_dir", out).
			Build()
	}
	return nil
}

// within reports whether path equals dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// PublishTarget returns the publish settings in the form the publisher takes.
func (c *Config) PublishTarget() publish.Config {
	return publish.Config{
		Endpoint:  c.Publish.Endpoint,
		Region:    c.Publish.Region,
		AccessKey: c.Publish.AccessKey,
		SecretKey: c.Publish.SecretKey,
		Bucket:    c.Publish.Bucket,
		UseSSL:    c.Publish.UseSSL,
		Prefix:    c.Publish.Prefix,
		Prune:     c.Publish.Prune,
	}
}
