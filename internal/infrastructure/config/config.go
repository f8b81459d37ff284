package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/tablesearch/internal/domain/reservation"
)

const envPrefix = "TABLESEARCH"

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	MarketplaceID string        `mapstructure:"marketplace_id"`
	Locale        string        `mapstructure:"locale"`
	Geocode       string        `mapstructure:"geocode"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimit     float64       `mapstructure:"rate_limit"`
}

func (a APIConfig) Market() reservation.Market {
	return reservation.Market{MarketplaceID: a.MarketplaceID, Locale: a.Locale, Geocode: a.Geocode}
}

type DatabaseConfig struct {
	// URL is optional; search history is off without it.
	URL string `mapstructure:"url"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	SessionHashKey  string        `mapstructure:"session_hash_key"`  // base64
	SessionBlockKey string        `mapstructure:"session_block_key"` // base64
	SessionIdleTTL  time.Duration `mapstructure:"session_idle_ttl"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults registers every key so env overrides work without a file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.marketplace_id", "")
	v.SetDefault("api.locale", "en-US")
	v.SetDefault("api.geocode", "")
	v.SetDefault("api.timeout", "0s")
	v.SetDefault("api.rate_limit", 0.0)

	v.SetDefault("database.url", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.session_hash_key", "")
	v.SetDefault("http.session_block_key", "")
	v.SetDefault("http.session_idle_ttl", "30m")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// NewViper returns a viper instance with defaults, env binding and, when
// file is set, that config file loaded.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load is NewViper followed by FromViper.
func Load(file string) (Config, error) {
	v, err := NewViper(file)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.MarketplaceID == "" {
		errs = append(errs, errors.New("api.marketplace_id is required"))
	}
	if c.API.Geocode == "" {
		errs = append(errs, errors.New("api.geocode is required"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}

// SessionKeys decodes the cookie keys the HTTP server needs.
func (h HTTPConfig) SessionKeys() (hashKey, blockKey []byte, err error) {
	hashKey, err = decodeB64("http.session_hash_key", h.SessionHashKey)
	if err != nil {
		return nil, nil, err
	}
	blockKey, err = decodeB64("http.session_block_key", h.SessionBlockKey)
	if err != nil {
		return nil, nil, err
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, nil, fmt.Errorf("http.session_block_key must decode to 16, 24 or 32 bytes (got %d)", len(blockKey))
	}
	return hashKey, blockKey, nil
}

// decodeB64 accepts the value itself or a path to a file holding it, for
// secret mounts.
func decodeB64(k, v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("%s is required (base64)", k)
	}
	if b, err := os.ReadFile(v); err == nil {
		v = strings.TrimSpace(string(b))
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
