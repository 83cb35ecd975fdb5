// Package config provides configuration types, defaults, validation and
// persistence for mpv-danmaku, plus the reader for mpv's script-opts file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/dandanplay"
	"github.com/zjrosen/mpv-danmaku/internal/tracing"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Socket          string        `mapstructure:"socket"`            // mpv --input-ipc-server path
	FontSize        float64       `mapstructure:"font_size"`         // Overridden by the script-opts file
	DisplayDuration time.Duration `mapstructure:"display_duration"`  // Time a comment takes to cross the screen
	TickInterval    time.Duration `mapstructure:"tick_interval"`     // Render period during playback
	ScriptOpts      string        `mapstructure:"script_opts"`       // mpv option file, ~~/ expanded by mpv
	SkipPatterns    []string      `mapstructure:"skip_patterns"`     // Globs of media paths never fetched
	API             APIConfig     `mapstructure:"api"`
	Log             LogConfig     `mapstructure:"log"`
	Tracing         TracingConfig `mapstructure:"tracing"`
}

// APIConfig configures the dandanplay client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"` // Negative disables the cache
	AppID     string        `mapstructure:"app_id"`
	AppSecret string        `mapstructure:"app_secret"`
}

// LogConfig configures the debug log.
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// TracingConfig holds OpenTelemetry settings for comment fetches.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	Enabled bool `mapstructure:"enabled"`

	// Exporter is one of "none", "file", "stdout", "otlp".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the JSONL output for the "file" exporter.
	// Default: ~/.config/mpv-danmaku/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Layout converts the engine settings.
func (c Config) Layout() danmaku.Layout {
	return danmaku.Layout{
		FontSize: c.FontSize,
		Duration: c.DisplayDuration,
		Interval: c.TickInterval,
	}
}

// Dandanplay converts the API settings.
func (c Config) Dandanplay() dandanplay.Config {
	return dandanplay.Config{
		BaseURL:   c.API.BaseURL,
		Timeout:   c.API.Timeout,
		CacheTTL:  c.API.CacheTTL,
		AppID:     c.API.AppID,
		AppSecret: c.API.AppSecret,
	}
}

// TracingProvider converts the tracing settings.
func (c Config) TracingProvider() tracing.Config {
	out := tracing.DefaultConfig()
	out.Enabled = c.Tracing.Enabled
	out.Exporter = c.Tracing.Exporter
	out.FilePath = c.Tracing.FilePath
	out.OTLPEndpoint = c.Tracing.OTLPEndpoint
	out.SampleRate = c.Tracing.SampleRate
	return out
}

// Dir returns ~/.config/mpv-danmaku, or "" if the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mpv-danmaku")
}

// DefaultTracesFilePath returns the default JSONL trace file.
func DefaultTracesFilePath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultSocket is where mpv-danmaku expects mpv's IPC socket.
func DefaultSocket() string {
	return filepath.Join(os.TempDir(), "mpv-danmaku.sock")
}

// Defaults returns a Config with default values.
func Defaults() Config {
	layout := danmaku.DefaultLayout()
	api := dandanplay.DefaultConfig()
	return Config{
		Socket:          DefaultSocket(),
		FontSize:        layout.FontSize,
		DisplayDuration: layout.Duration,
		TickInterval:    layout.Interval,
		ScriptOpts:      "~~/script-opts/danmaku.conf",
		API: APIConfig{
			BaseURL:  api.BaseURL,
			Timeout:  api.Timeout,
			CacheTTL: api.CacheTTL,
		},
		Log: LogConfig{
			Level: "debug",
		},
		Tracing: TracingConfig{
			Exporter:     tracing.ExporterFile,
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// SetDefaults registers every default with v so config files only need the
// keys they change.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("socket", d.Socket)
	v.SetDefault("font_size", d.FontSize)
	v.SetDefault("display_duration", d.DisplayDuration)
	v.SetDefault("tick_interval", d.TickInterval)
	v.SetDefault("script_opts", d.ScriptOpts)
	v.SetDefault("skip_patterns", d.SkipPatterns)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.cache_ttl", d.API.CacheTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func Validate(cfg Config) error {
	if cfg.FontSize <= 0 {
		return fmt.Errorf("%w: font_size must be positive, got %v", ErrInvalid, cfg.FontSize)
	}
	if cfg.DisplayDuration <= 0 {
		return fmt.Errorf("%w: display_duration must be positive, got %s", ErrInvalid, cfg.DisplayDuration)
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive, got %s", ErrInvalid, cfg.TickInterval)
	}
	if err := ValidateSkipPatterns(cfg.SkipPatterns); err != nil {
		return err
	}
	if err := ValidateAPI(cfg.API); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateSkipPatterns rejects malformed globs.
func ValidateSkipPatterns(patterns []string) error {
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: skip_patterns[%d] is empty", ErrInvalid, i)
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return fmt.Errorf("%w: skip_patterns[%d] %q is not a valid glob", ErrInvalid, i, p)
		}
	}
	return nil
}

// ValidateAPI checks the dandanplay settings.
func ValidateAPI(api APIConfig) error {
	if api.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalid)
	}
	if !strings.HasPrefix(api.BaseURL, "http://") && !strings.HasPrefix(api.BaseURL, "https://") {
		return fmt.Errorf("%w: api.base_url must be an http(s) URL, got %q", ErrInvalid, api.BaseURL)
	}
	if api.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive, got %s", ErrInvalid, api.Timeout)
	}
	if (api.AppID == "") != (api.AppSecret == "") {
		return fmt.Errorf("%w: api.app_id and api.app_secret must be set together", ErrInvalid)
	}
	return nil
}

// ValidateTracing checks tracing configuration. Paths are only required when
// tracing is enabled.
func ValidateTracing(t TracingConfig) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("%w: tracing.sample_rate must be between 0.0 and 1.0, got %v", ErrInvalid, t.SampleRate)
	}
	switch t.Exporter {
	case "", tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
	default:
		return fmt.Errorf("%w: tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", ErrInvalid, t.Exporter)
	}
	if !t.Enabled {
		return nil
	}
	if t.Exporter == tracing.ExporterFile && t.FilePath == "" {
		return fmt.Errorf("%w: tracing.file_path is required when exporter is \"file\"", ErrInvalid)
	}
	if t.Exporter == tracing.ExporterOTLP && t.OTLPEndpoint == "" {
		return fmt.Errorf("%w: tracing.otlp_endpoint is required when exporter is \"otlp\"", ErrInvalid)
	}
	return nil
}
