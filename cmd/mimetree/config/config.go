// Package config loads the settings of the mimetree command from its flags
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zostay/go-mailmime/message"
	"github.com/zostay/go-mailmime/message/charset"
)

// Config captures the options shared by every mimetree subcommand.
type Config struct {
	LogLevel       string `yaml:"log_level"`
	MaxDepth       int    `yaml:"max_depth"`
	TargetCharset  string `yaml:"target_charset"`
	DefaultCharset string `yaml:"default_charset"`
	DetectCharset  bool   `yaml:"detect_charset"`
	MemoryLimit    int64  `yaml:"memory_limit"`
	MaxSize        int64  `yaml:"max_size"`
	TempDir        string `yaml:"temp_dir"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:       "warn",
		MaxDepth:       message.DefaultMaxDepth,
		TargetCharset:  charset.DefaultTarget,
		DefaultCharset: message.DefaultCharset,
	}
}

// RegisterFlags attaches the shared flags to the provided command as
// persistent flags.
func RegisterFlags(cmd *cobra.Command) {
	d := Default()

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("log-level", d.LogLevel, "Logging level: debug, info, warn, error")
	flags.Int("max-depth", d.MaxDepth, "Deepest nesting of parts to parse (negative for no limit)")
	flags.String("target-charset", d.TargetCharset, "Charset text is converted into")
	flags.String("default-charset", d.DefaultCharset, "Charset assumed for parts that do not declare one")
	flags.Bool("detect-charset", d.DetectCharset, "Guess the charset of text parts that do not declare one")
	flags.Int64("memory-limit", d.MemoryLimit, "Bytes of input held in memory before spooling to disk (0 for the default)")
	flags.Int64("max-size", d.MaxSize, "Largest message accepted in bytes (0 for no limit)")
	flags.String("temp-dir", d.TempDir, "Directory for spooled input")
}

// LoadConfig builds the Config for a command. Defaults are overridden by the
// file named with --config, which is in turn overridden by any flag set on the
// command line.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	cfg := Default()
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	set := func(name string, apply func() error) error {
		if !flags.Changed(name) {
			return nil
		}
		return apply()
	}

	err = errors.Join(
		set("log-level", func() (err error) { cfg.LogLevel, err = flags.GetString("log-level"); return }),
		set("max-depth", func() (err error) { cfg.MaxDepth, err = flags.GetInt("max-depth"); return }),
		set("target-charset", func() (err error) { cfg.TargetCharset, err = flags.GetString("target-charset"); return }),
		set("default-charset", func() (err error) { cfg.DefaultCharset, err = flags.GetString("default-charset"); return }),
		set("detect-charset", func() (err error) { cfg.DetectCharset, err = flags.GetBool("detect-charset"); return }),
		set("memory-limit", func() (err error) { cfg.MemoryLimit, err = flags.GetInt64("memory-limit"); return }),
		set("max-size", func() (err error) { cfg.MaxSize, err = flags.GetInt64("max-size"); return }),
		set("temp-dir", func() (err error) { cfg.TempDir, err = flags.GetString("temp-dir"); return }),
	)
	if err != nil {
		return Config{}, err
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadFile reads the YAML file at path into cfg. Keys missing from the file
// leave cfg unchanged.
func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func validateConfig(cfg Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !charset.Known(cfg.TargetCharset) {
		return fmt.Errorf("invalid target charset: %s", cfg.TargetCharset)
	}
	if !charset.Known(cfg.DefaultCharset) {
		return fmt.Errorf("invalid default charset: %s", cfg.DefaultCharset)
	}

	if cfg.MemoryLimit < 0 {
		return fmt.Errorf("memory limit must not be negative")
	}
	if cfg.MaxSize < 0 {
		return fmt.Errorf("max size must not be negative")
	}

	return nil
}

// Logger returns a text logger writing to w at the configured level.
func (cfg Config) Logger(w io.Writer) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "error":
		level.Set(slog.LevelError)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseOptions returns the parser options matching the configuration.
func (cfg Config) ParseOptions(logger *slog.Logger) []message.ParseOption {
	opts := []message.ParseOption{
		message.WithMaxDepth(cfg.MaxDepth),
		message.WithTargetCharset(cfg.TargetCharset),
		message.WithDefaultCharset(cfg.DefaultCharset),
		message.WithLogger(logger),
	}

	if cfg.DetectCharset {
		opts = append(opts, message.WithCharsetDetection())
	}
	if cfg.MemoryLimit > 0 {
		opts = append(opts, message.WithMemoryLimit(cfg.MemoryLimit))
	}
	if cfg.MaxSize > 0 {
		opts = append(opts, message.WithMaxSize(cfg.MaxSize))
	}
	if cfg.TempDir != "" {
		opts = append(opts, message.WithTempDir(cfg.TempDir))
	}

	return opts
}
