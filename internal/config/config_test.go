package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Presence.Decay = Duration{5 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Presence.Decay.Duration != 5*time.Second {
		t.Errorf("Presence.Decay = %v, want 5s", loaded.Presence.Decay)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadOrDefaultMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Backend.Driver != DriverSQLite {
		t.Errorf("Backend.Driver = %q, want %q", cfg.Backend.Driver, DriverSQLite)
	}
}

func TestDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("default_profile = \"main\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Debts.Window.Duration != 30*24*time.Hour {
		t.Errorf("Debts.Window = %v, want 720h", cfg.Debts.Window)
	}
	if cfg.Debts.Freshness.Duration != 2*time.Minute {
		t.Errorf("Debts.Freshness = %v, want 2m", cfg.Debts.Freshness)
	}
	if cfg.Presence.Decay.Duration != 3*time.Second {
		t.Errorf("Presence.Decay = %v, want 3s", cfg.Presence.Decay)
	}
	if cfg.Presence.Transport != TransportBackend {
		t.Errorf("Presence.Transport = %q, want %q", cfg.Presence.Transport, TransportBackend)
	}
}

func TestDurationStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[debts]\nwindow = \"240h\"\nfreshness = \"30s\"\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Debts.Window.Duration != 240*time.Hour {
		t.Errorf("Debts.Window = %v, want 240h", cfg.Debts.Window)
	}
	if cfg.Debts.Freshness.Duration != 30*time.Second {
		t.Errorf("Debts.Freshness = %v, want 30s", cfg.Debts.Freshness)
	}
}

func TestBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[presence]\ndecay = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for unparsable duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CANDLE_DATABASE_URL", "postgres://env")
	t.Setenv("CANDLE_JWT_SECRET", "s3cret")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.DatabaseURL != "postgres://env" {
		t.Errorf("DatabaseURL = %q, want env override", cfg.Backend.DatabaseURL)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q, want env override", cfg.Auth.JWTSecret)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.Backend.Driver = DriverPostgres }, true},
		{"postgres with url", func(c *Config) {
			c.Backend.Driver = DriverPostgres
			c.Backend.DatabaseURL = "postgres://x"
		}, false},
		{"unknown driver", func(c *Config) { c.Backend.Driver = "mysql" }, true},
		{"whatsapp transport", func(c *Config) { c.Presence.Transport = TransportWhatsApp }, false},
		{"unknown transport", func(c *Config) { c.Presence.Transport = "carrier-pigeon" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
