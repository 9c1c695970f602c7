// Package config loads the mdsite configuration file.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// DefaultPath is read when no config path is given and the file exists.
const DefaultPath = "mdsite.yaml"

// Config represents the application configuration.
type Config struct {
	SourceDir string        `yaml:"source_dir"`
	OutputDir string        `yaml:"output_dir"`
	Server    ServerConfig  `yaml:"server"`
	Build     BuildConfig   `yaml:"build"`
	Logging   LoggingConfig `yaml:"logging"`
	History   HistoryConfig `yaml:"history"`
	Notify    NotifyConfig  `yaml:"notify"`
	Publish   PublishConfig `yaml:"publish"`
}

// ServerConfig configures the site server.
type ServerConfig struct {
	Address    string `yaml:"address"`
	LiveReload bool   `yaml:"live_reload"`
	Metrics    bool   `yaml:"metrics"`
}

// BuildConfig configures builds and rebuild triggers.
type BuildConfig struct {
	AtomicSwap bool          `yaml:"atomic_swap"`
	Debounce   time.Duration `yaml:"debounce"`
	// RebuildInterval enables a periodic full rebuild when positive.
	RebuildInterval time.Duration `yaml:"rebuild_interval"`
	// CacheSize bounds the conversion cache; 0 disables it.
	CacheSize   int      `yaml:"cache_size"`
	Passthrough []string `yaml:"passthrough_extensions"`
}

// LoggingConfig configures the default slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HistoryConfig enables the build history database when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig enables NATS build notifications when NATSURL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// PublishConfig selects the S3-compatible bucket for `mdsite publish`.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
	Prune     bool   `yaml:"prune"`
}

// Load reads configuration from path. An empty path reads DefaultPath if it
// exists and otherwise yields the defaults. Variables from .env and
// .env.local are loaded first without overriding the process environment,
// then ${VAR} references in the file are expanded.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.ConfigError("configuration file not found").WithContext("path", path).Build()
	}
	if err != nil {
		return nil, ferrors.ConfigError("read configuration file").WithCause(err).WithContext("path", path).Build()
	}

	// Unmarshalling over the defaults keeps every key the file leaves out.
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, ferrors.ConfigError("parse configuration file").WithCause(err).WithContext("path", path).Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return ferrors.FileSystemError("write configuration file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

const exampleConfig = `# mdsite configuration
source_dir: content
output_dir: public

server:
  address: 0.0.0.0:8080
  live_reload: true
  # expose Prometheus metrics at /metrics
  metrics: false

build:
  # build into a staging directory and swap it into place
  atomic_swap: true
  debounce: 300ms
  # full rebuild on a timer in addition to file watching; 0 disables
  rebuild_interval: 0s
  cache_size: 512
  passthrough_extensions: [".css"]

logging:
  level: info   # debug, info, warn, error
  format: text  # text, json

history:
  # path: .mdsite/history.db

notify:
  # nats_url: nats://127.0.0.1:4222
  subject: mdsite.builds

publish:
  endpoint: ${MDSITE_S3_ENDPOINT}
  bucket: ${MDSITE_S3_BUCKET}
  access_key: ${MDSITE_S3_ACCESS_KEY}
  secret_key: ${MDSITE_S3_SECRET_KEY}
  use_ssl: true
  prefix: ""
  prune: false
`
