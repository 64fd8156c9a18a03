package htmlview

import (
	"io"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the settings shared by the CLI commands and the web widget.
type Config struct {
	// web widget
	Addr            string        `mapstructure:"addr"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origin"`
	MaxSourceBytes  int64         `mapstructure:"max_source_bytes"`

	// exports
	OutputDir string `mapstructure:"output_dir"`
	Markdown  bool   `mapstructure:"markdown"`
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8080",
		SessionTTL:      30 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
		AllowedOrigins:  []string{},
		MaxSourceBytes:  5 * 1024 * 1024, // 5MB
		OutputDir:       DefaultDownloadDir(),
	}
}

// fileConfig is the on-disk TOML layout. Durations are written as Go
// duration strings so they read back through the same decode hooks as flags.
type fileConfig struct {
	Addr            string   `toml:"addr"`
	SessionTTL      string   `toml:"session_ttl"`
	ShutdownTimeout string   `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origin"`
	MaxSourceBytes  int64    `toml:"max_source_bytes"`
	OutputDir       string   `toml:"output_dir"`
	Markdown        bool     `toml:"markdown"`
}

// EncodeTOML writes c in the config file format.
func (c *Config) EncodeTOML(w io.Writer) error {
	fc := fileConfig{
		Addr:            c.Addr,
		SessionTTL:      c.SessionTTL.String(),
		ShutdownTimeout: c.ShutdownTimeout.String(),
		AllowedOrigins:  c.AllowedOrigins,
		MaxSourceBytes:  c.MaxSourceBytes,
		OutputDir:       c.OutputDir,
		Markdown:        c.Markdown,
	}
	if err := toml.NewEncoder(w).Encode(fc); err != nil {
		return NewConfigError("failed to encode config", err)
	}
	return nil
}
