package launch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndReleaseLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge-8065.lock.json")

	rec, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if rec.PID != os.Getpid() {
		t.Fatalf("got pid %d, want %d", rec.PID, os.Getpid())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lockfile: %v", err)
	}
	var onDisk LockRecord
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal lockfile: %v", err)
	}
	if onDisk.PID != os.Getpid() {
		t.Fatalf("on-disk pid %d, want %d", onDisk.PID, os.Getpid())
	}

	ReleaseLock(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lockfile removed, stat err=%v", err)
	}
}

func TestAcquireLockRejectsLiveOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge-8065.lock.json")

	if _, err := AcquireLock(path); err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	defer ReleaseLock(path)

	_, err := AcquireLock(path)
	if err == nil {
		t.Fatal("expected second AcquireLock to fail while this process still owns the lock")
	}
	launchErr, ok := err.(*Error)
	if !ok || launchErr.Code != ErrStartupLocked {
		t.Fatalf("got %v, want %s", err, ErrStartupLocked)
	}
}

func TestAcquireLockReplacesStaleOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge-8065.lock.json")

	stale := LockRecord{PID: 999999999, CreatedAt: "2020-01-01T00:00:00Z", Command: "bridge"}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatalf("marshal stale record: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write stale lockfile: %v", err)
	}

	rec, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock over stale lock: %v", err)
	}
	if rec.PID != os.Getpid() {
		t.Fatalf("got pid %d, want %d", rec.PID, os.Getpid())
	}
	ReleaseLock(path)
}

func TestReleaseLockIgnoresForeignOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge-8065.lock.json")

	foreign := LockRecord{PID: os.Getpid() + 1, CreatedAt: "2026-01-01T00:00:00Z", Command: "bridge"}
	data, _ := json.Marshal(foreign)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}

	ReleaseLock(path)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected foreign-owned lockfile to survive ReleaseLock, stat err=%v", err)
	}
}
