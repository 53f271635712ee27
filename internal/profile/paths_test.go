package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/candlelife/candle/internal/config"
)

func TestDirHonoursCandleHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CANDLE_HOME", home)

	got := Dir("main")
	want := filepath.Join(home, "profiles", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestDirDefaultsToHome(t *testing.T) {
	t.Setenv("CANDLE_HOME", "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".candle", "profiles", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestPathSuffixes(t *testing.T) {
	tests := []struct {
		got    string
		suffix string
	}{
		{SocketPath("test"), filepath.Join("profiles", "test", "candled.sock")},
		{LockPath("test"), filepath.Join("profiles", "test", "LOCK")},
		{AppDBPath("test"), filepath.Join("profiles", "test", "candle.db")},
		{WhatsAppDBPath("test"), filepath.Join("profiles", "test", "whatsapp.db")},
		{LogPath("test"), filepath.Join("profiles", "test", "logs", "candled.log")},
	}
	for _, tt := range tests {
		if !strings.HasSuffix(tt.got, tt.suffix) {
			t.Errorf("%q does not end with %q", tt.got, tt.suffix)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("CANDLE_HOME", t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{Dir("test"), LogDir("test")} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("%s not created: %v", d, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("%s permission = %o, want 0700", d, perm)
		}
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("CANDLE_HOME", t.TempDir())

	if got := Resolve("flag"); got != "flag" {
		t.Errorf("Resolve(flag) = %q, want flag", got)
	}
	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}

	cfg := config.Default()
	cfg.DefaultProfile = "work"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() with config = %q, want work", got)
	}
}
