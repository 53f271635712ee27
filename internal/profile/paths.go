package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.candle, or $CANDLE_HOME when set.
func BaseDir() string {
	if v := os.Getenv("CANDLE_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".candle")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// SocketPath returns the UDS socket path for a profile daemon.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "candled.sock")
}

// LockPath returns the lock file path for a profile.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// AppDBPath returns the local backend database path.
func AppDBPath(name string) string {
	return filepath.Join(Dir(name), "candle.db")
}

// WhatsAppDBPath returns the whatsmeow device store path.
func WhatsAppDBPath(name string) string {
	return filepath.Join(Dir(name), "whatsapp.db")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "candled.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
