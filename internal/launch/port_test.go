package launch

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/devbridge/browser-debug-bridge/internal/state"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestPreflightCheckPassesOnFreePort(t *testing.T) {
	port := freePort(t)
	if err := PreflightCheck(port, "browser-debug-bridge"); err != nil {
		t.Fatalf("PreflightCheck on free port: %v", err)
	}
}

func TestIsHealthyAndOccupant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"service_name": "browser-debug-bridge"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u := srv.Listener.Addr().(*net.TCPAddr)
	if !IsHealthy(u.Port) {
		t.Fatal("expected IsHealthy to report true")
	}
	name, occupied := Occupant(u.Port)
	if !occupied || name != "browser-debug-bridge" {
		t.Fatalf("got occupant=%q occupied=%v", name, occupied)
	}
	if !IsOurs(u.Port, "browser-debug-bridge") {
		t.Fatal("expected IsOurs to report true for matching service_name")
	}
	if IsOurs(u.Port, "some-other-service") {
		t.Fatal("expected IsOurs to report false for mismatched service_name")
	}
}

func TestPreflightCheckReportsOccupant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"service_name": "browser-debug-bridge"})
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	err = PreflightCheck(port, "some-unrelated-service")
	if err == nil {
		t.Fatal("expected PreflightCheck to fail on occupied port")
	}
	launchErr, ok := err.(*Error)
	if !ok || launchErr.Code != ErrStartupPortInUse {
		t.Fatalf("got %v, want %s", err, ErrStartupPortInUse)
	}
}

// TestPreflightCheckAttemptsRecoveryOnSelfIdentifiedOccupant covers §4.6's
// recovery path: the occupant self-identifies as serviceName, so
// PreflightCheck looks up its startup lockfile to terminate it. With no
// live process behind the recorded PID, the signal fails and it falls back
// to ErrStartupPortInUse rather than hanging or panicking.
func TestPreflightCheckAttemptsRecoveryOnSelfIdentifiedOccupant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"service_name": "browser-debug-bridge"})
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv(state.DataDirEnv, dir)
	lockPath, err := state.LockFile(port)
	if err != nil {
		t.Fatalf("LockFile: %v", err)
	}
	if _, err := AcquireLock(lockPath); err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	rec, err := ReadLockRecord(lockPath)
	if err != nil || rec == nil {
		t.Fatalf("ReadLockRecord: %v", err)
	}
	rec.PID = 999999998 // unlikely to be a live process; signaling it must fail
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal lock record: %v", err)
	}
	if err := os.WriteFile(lockPath, data, 0o600); err != nil {
		t.Fatalf("rewrite lockfile: %v", err)
	}

	err = PreflightCheck(port, "browser-debug-bridge")
	if err == nil {
		t.Fatal("expected PreflightCheck to fail once recovery's signal fails")
	}
	launchErr, ok := err.(*Error)
	if !ok || launchErr.Code != ErrStartupPortInUse {
		t.Fatalf("got %v, want %s", err, ErrStartupPortInUse)
	}
}

func TestIsHealthyFalseWhenNothingListening(t *testing.T) {
	port := freePort(t)
	if IsHealthy(port) {
		t.Fatal("expected IsHealthy to report false for a closed port")
	}
}

func TestOccupantUnidentified(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	port, err := strconv.Atoi(srv.Listener.Addr().(*net.TCPAddr).String()[len("127.0.0.1:"):])
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	name, occupied := Occupant(port)
	if !occupied || name != "" {
		t.Fatalf("got occupant=%q occupied=%v, want empty name", name, occupied)
	}
}
