package state

import (
	"path/filepath"
	"testing"
)

func TestRootDirHonorsDataDirEnv(t *testing.T) {
	t.Setenv(DataDirEnv, "/tmp/bridge-test-root")
	root, err := RootDir()
	if err != nil {
		t.Fatalf("RootDir: %v", err)
	}
	if root != "/tmp/bridge-test-root" {
		t.Fatalf("got %q, want /tmp/bridge-test-root", root)
	}
}

func TestRootDirFallsBackToXDGStateHome(t *testing.T) {
	t.Setenv(DataDirEnv, "")
	t.Setenv(xdgStateHomeEnv, "/tmp/xdg-state")
	root, err := RootDir()
	if err != nil {
		t.Fatalf("RootDir: %v", err)
	}
	want := filepath.Join("/tmp/xdg-state", appName)
	if root != want {
		t.Fatalf("got %q, want %q", root, want)
	}
}

func TestInRootJoinsUnderRootDir(t *testing.T) {
	t.Setenv(DataDirEnv, "/tmp/bridge-test-root")
	got, err := InRoot("run", "bridge-8065.lock.json")
	if err != nil {
		t.Fatalf("InRoot: %v", err)
	}
	want := filepath.Join("/tmp/bridge-test-root", "run", "bridge-8065.lock.json")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLockFileAndPIDFileNamePerPort(t *testing.T) {
	t.Setenv(DataDirEnv, "/tmp/bridge-test-root")
	lock, err := LockFile(8065)
	if err != nil {
		t.Fatalf("LockFile: %v", err)
	}
	if filepath.Base(lock) != "bridge-8065.lock.json" {
		t.Fatalf("unexpected lock file name: %s", lock)
	}
	pid, err := PIDFile(8066)
	if err != nil {
		t.Fatalf("PIDFile: %v", err)
	}
	if filepath.Base(pid) != "bridge-8066.pid" {
		t.Fatalf("unexpected pid file name: %s", pid)
	}
}

func TestDBFileName(t *testing.T) {
	t.Setenv(DataDirEnv, "/tmp/bridge-test-root")
	db, err := DBFile()
	if err != nil {
		t.Fatalf("DBFile: %v", err)
	}
	if filepath.Base(db) != "bridge.db" {
		t.Fatalf("unexpected db file name: %s", db)
	}
}

func TestNormalizePathRejectsEmpty(t *testing.T) {
	if _, err := normalizePath(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
