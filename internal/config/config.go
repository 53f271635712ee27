package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Presence transports.
const (
	TransportBackend  = "backend"
	TransportWhatsApp = "whatsapp"
)

// Config represents the global ~/.candle/config.toml.
type Config struct {
	DefaultProfile string         `toml:"default_profile"`
	Backend        BackendConfig  `toml:"backend"`
	Presence       PresenceConfig `toml:"presence"`
	Debts          DebtsConfig    `toml:"debts"`
	HTTP           HTTPConfig     `toml:"http"`
	Auth           AuthConfig     `toml:"auth"`
}

type BackendConfig struct {
	Driver      string `toml:"driver"`
	DatabaseURL string `toml:"database_url"`
}

type PresenceConfig struct {
	Transport string   `toml:"transport"`
	Decay     Duration `toml:"decay"`
}

type DebtsConfig struct {
	Window    Duration `toml:"window"`
	Freshness Duration `toml:"freshness"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	Issuer    string `toml:"issuer"`
	Audience  string `toml:"audience"`
}

// Duration is a time.Duration written as a Go duration string ("2m", "3s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Backend.Driver == "" {
		c.Backend.Driver = DriverSQLite
	}
	if c.Presence.Transport == "" {
		c.Presence.Transport = TransportBackend
	}
	if c.Presence.Decay.Duration <= 0 {
		c.Presence.Decay.Duration = 3 * time.Second
	}
	if c.Debts.Window.Duration <= 0 {
		c.Debts.Window.Duration = 30 * 24 * time.Hour
	}
	if c.Debts.Freshness.Duration <= 0 {
		c.Debts.Freshness.Duration = 2 * time.Minute
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8787"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CANDLE_DATABASE_URL"); v != "" {
		c.Backend.DatabaseURL = v
	}
	if v := os.Getenv("CANDLE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}

// Validate checks the combinations the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Backend.DatabaseURL == "" {
			return fmt.Errorf("backend.database_url is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown backend.driver %q", c.Backend.Driver)
	}
	switch c.Presence.Transport {
	case TransportBackend, TransportWhatsApp:
	default:
		return fmt.Errorf("unknown presence.transport %q", c.Presence.Transport)
	}
	return nil
}

// Load reads config from the given path. Returns nil config and error if file missing.
// Missing fields get defaults and environment overrides are applied.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return nil, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
