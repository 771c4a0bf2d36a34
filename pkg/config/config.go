package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

// Config captures every knob the server, the client stores and the CLI read.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" json:"database" yaml:"database"`
	Auth     AuthConfig     `mapstructure:"auth" json:"auth" yaml:"auth"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache" yaml:"cache"`
	Poller   PollerConfig   `mapstructure:"poller" json:"poller" yaml:"poller"`
	Client   ClientConfig   `mapstructure:"client" json:"client" yaml:"client"`
}

// ServerConfig controls the REST listener.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" json:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
}

// DatabaseConfig points bun at a SQLite file or in-memory database.
type DatabaseConfig struct {
	DSN   string `mapstructure:"dsn" json:"dsn" yaml:"dsn"`
	Debug bool   `mapstructure:"debug" json:"debug" yaml:"debug"`
}

// AuthConfig signs session tokens.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret" json:"secret" yaml:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl" json:"token_ttl" yaml:"token_ttl"`
}

// CacheConfig tunes the client-side stores.
type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`
	Coalesce bool          `mapstructure:"coalesce" json:"coalesce" yaml:"coalesce"`
}

// PollerConfig drives the unread-count refresher.
type PollerConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`
}

// ClientConfig is used by the API client.
type ClientConfig struct {
	BaseURL    string        `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "file:timeoff.db?cache=shared",
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Cache: CacheConfig{
			TTL: 30 * time.Second,
		},
		Poller: PollerConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		Client: ClientConfig{
			BaseURL:    "http://localhost:8080",
			Timeout:    15 * time.Second,
			MaxRetries: 2,
		},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	if c.Poller.Enabled && c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be > 0 when the poller is enabled")
	}
	if c.Client.MaxRetries < 0 {
		return fmt.Errorf("client.max_retries must be >= 0")
	}
	if u, err := url.Parse(c.Client.BaseURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("client.base_url must be an absolute url")
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// Duration strings such as "30s" in map input are converted first. When
// cfgx.Build returns zero values we fall back to a lightweight decoder.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	if m, ok := input.(map[string]any); ok {
		normalized, err := normalizeDurations(m)
		if err != nil {
			return Config{}, err
		}
		input = normalized
	}

	var cfg Config
	if input != nil {
		built, err := cfgx.Build(input, settings.buildOpts...)
		if err != nil {
			return Config{}, err
		}
		cfg = built
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

// withDefaults fills zero values. Booleans are left alone so an explicit
// false survives; a config with nothing set gets Defaults wholesale.
func (c Config) withDefaults() Config {
	defaults := Defaults()
	if isZero(c) {
		return defaults
	}

	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Database.DSN == "" {
		c.Database.DSN = defaults.Database.DSN
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = defaults.Auth.TokenTTL
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaults.Cache.TTL
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = defaults.Poller.Interval
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = defaults.Client.BaseURL
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = defaults.Client.Timeout
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}

// durationKeys are the leaf names holding time.Duration values.
var durationKeys = map[string]struct{}{
	"read_timeout":  {},
	"write_timeout": {},
	"token_ttl":     {},
	"ttl":           {},
	"interval":      {},
	"timeout":       {},
}

// normalizeDurations rewrites duration strings into nanosecond counts so the
// JSON decoder can fill time.Duration fields. YAML maps decode nested
// sections as map[string]any as well.
func normalizeDurations(input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for key, value := range input {
		switch v := value.(type) {
		case map[string]any:
			nested, err := normalizeDurations(v)
			if err != nil {
				return nil, err
			}
			out[key] = nested
		case string:
			if _, ok := durationKeys[strings.ToLower(key)]; ok {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, fmt.Errorf("config: %s: %w", key, err)
				}
				out[key] = int64(d)
				continue
			}
			out[key] = v
		default:
			out[key] = v
		}
	}
	return out, nil
}
