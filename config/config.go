// Package config loads client settings from the environment or a YAML
// file and validates them.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/oneshot/client/throttle"
)

// Prefix is prepended to every environment variable, e.g. ONESHOT_READ_TIMEOUT.
const Prefix = "ONESHOT"

// Default request settings, shared with the client package.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Linux; Android 4.4; Nexus 5 Build/_BuildID_) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/30.0.0.0 Mobile Safari/537.36"
	DefaultConnectTimeout = 60 * time.Second
	DefaultReadTimeout    = 60 * time.Second
)

// Config holds the settings a client is built from.
type Config struct {
	UserAgent      string        `yaml:"user_agent"      envconfig:"USER_AGENT"      validate:"required"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" validate:"gt=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout"    envconfig:"READ_TIMEOUT"    validate:"gt=0"`
	UsesCache      bool          `yaml:"uses_cache"      envconfig:"USES_CACHE"`

	// KeepAlive enables connection reuse in the process-wide transport.
	KeepAlive       bool `yaml:"keep_alive"       envconfig:"KEEP_ALIVE"`
	FollowRedirects bool `yaml:"follow_redirects" envconfig:"FOLLOW_REDIRECTS"`

	// PoolSize is the worker count of a client-owned pool. Zero means the
	// shared pool is used.
	PoolSize int `yaml:"pool_size" envconfig:"POOL_SIZE" validate:"gte=0,lte=1024"`

	Throttle throttle.Config `yaml:"throttle" envconfig:"THROTTLE"`
	Log      Log             `yaml:"log"      envconfig:"LOG"`
}

type Log struct {
	Level  string `yaml:"level"  envconfig:"LEVEL"  validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		UserAgent:       DefaultUserAgent,
		ConnectTimeout:  DefaultConnectTimeout,
		ReadTimeout:     DefaultReadTimeout,
		KeepAlive:       true,
		FollowRedirects: true,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load overlays environment variables named with prefix onto [Default]
// and validates the result. An empty prefix means [Prefix].
func Load(prefix string) (Config, error) {
	if prefix == "" {
		prefix = Prefix
	}

	cfg := Default()
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile overlays the YAML document at path onto [Default] and
// validates the result.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode is [LoadFile] for an already open YAML stream. An empty stream
// yields the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Logger builds a slog.Logger writing to w at the configured level and
// format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
