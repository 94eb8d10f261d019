// Package state centralizes filesystem locations for bridge runtime artifacts
// (the sqlite database, lockfile, PID files, and logs).
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DataDirEnv overrides the default runtime data root (SPEC_FULL §8 DATA_DIR).
	DataDirEnv = "DATA_DIR"

	xdgStateHomeEnv = "XDG_STATE_HOME"
	appName         = "browser-debug-bridge"
)

// RootDir returns the runtime data root. Resolution order:
//  1. DATA_DIR (if set)
//  2. XDG_STATE_HOME/browser-debug-bridge (if XDG_STATE_HOME is set)
//  3. os.UserConfigDir()/browser-debug-bridge (cross-platform fallback)
func RootDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(DataDirEnv)); override != "" {
		return normalizePath(override)
	}

	if xdg := strings.TrimSpace(os.Getenv(xdgStateHomeEnv)); xdg != "" {
		root, err := normalizePath(xdg)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, appName), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	root, err := normalizePath(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, appName), nil
}

// LogsDir returns the logs directory under RootDir.
func LogsDir() (string, error) {
	return InRoot("logs")
}

// DefaultLogFile returns the default structured log file path.
func DefaultLogFile() (string, error) {
	return InRoot("logs", "bridge.jsonl")
}

// CrashLogFile returns the panic crash log file path.
func CrashLogFile() (string, error) {
	return InRoot("logs", "crash.log")
}

// DBFile returns the sqlite database file path.
func DBFile() (string, error) {
	return InRoot("bridge.db")
}

// LockFile returns the startup lockfile path for the given port (§8:
// "an exclusive-create lockfile records {pid, created_at, command}").
func LockFile(port int) (string, error) {
	return InRoot("run", "bridge-"+strconv.Itoa(port)+".lock.json")
}

// PIDFile returns the PID file path for the given server port.
func PIDFile(port int) (string, error) {
	return InRoot("run", "bridge-"+strconv.Itoa(port)+".pid")
}

// InRoot returns a path rooted under RootDir with additional path elements.
func InRoot(parts ...string) (string, error) {
	root, err := RootDir()
	if err != nil {
		return "", err
	}
	all := make([]string, 0, len(parts)+1)
	all = append(all, root)
	all = append(all, parts...)
	return filepath.Join(all...), nil
}

func normalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %q: %w", path, err)
	}
	return filepath.Clean(absPath), nil
}
