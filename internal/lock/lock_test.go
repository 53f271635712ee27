package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	tmpDir := t.TempDir()

	l, err := Acquire(tmpDir, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	holder, err := ReadHolder(tmpDir)
	if err != nil {
		t.Fatalf("ReadHolder() error = %v", err)
	}
	if holder.PID != os.Getpid() {
		t.Errorf("holder PID = %d, want %d", holder.PID, os.Getpid())
	}
	if holder.Profile != "main" {
		t.Errorf("holder profile = %q, want main", holder.Profile)
	}
	if holder.Since.IsZero() {
		t.Error("holder time not recorded")
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "LOCK")); !os.IsNotExist(err) {
		t.Errorf("lock file still present after Release (err = %v)", err)
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	tmpDir := t.TempDir()

	l1, err := Acquire(tmpDir, "main")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(tmpDir, "main")
	if err == nil {
		t.Fatal("second Acquire() should fail")
	}

	var lockErr *LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockHeldError, got %T: %v", err, err)
	}
	if lockErr.Holder.PID != os.Getpid() {
		t.Errorf("LockHeldError PID = %d, want %d", lockErr.Holder.PID, os.Getpid())
	}
}

func TestAcquireCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles", "new")
	l, err := Acquire(dir, "new")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = l.Release() }()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("profile dir not created: %v", err)
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l, err := Acquire(t.TempDir(), "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestParseHolderIgnoresGarbage(t *testing.T) {
	h := parseHolder("garbage\npid=abc\nprofile=work\n")
	if h.PID != 0 {
		t.Errorf("PID = %d, want 0 for unparsable value", h.PID)
	}
	if h.Profile != "work" {
		t.Errorf("Profile = %q, want work", h.Profile)
	}
}
