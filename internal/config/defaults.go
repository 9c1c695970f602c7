package config

import (
	"time"

	"git.home.luguber.info/inful/mdsite/internal/site"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		SourceDir: "content",
		OutputDir: "public",
		Server: ServerConfig{
			Address:    "0.0.0.0:8080",
			LiveReload: true,
		},
		Build: BuildConfig{
			AtomicSwap:  true,
			Debounce:    300 * time.Millisecond,
			CacheSize:   512,
			Passthrough: append([]string(nil), site.DefaultPassthroughExtensions...),
		},
		Logging: LoggingConfig{
			Level:  string(LogLevelInfo),
			Format: string(LogFormatText),
		},
		Notify: NotifyConfig{
			Subject: "mdsite.builds",
		},
	}
}
