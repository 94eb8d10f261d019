// main.go — bridge entrypoint: wires logger -> store -> redactor ->
// transport -> dispatcher -> MCP runtime, then serves the ingest transport
// and the MCP stdio protocol side by side in one process, the way the
// teacher's runMCPMode runs an HTTP server goroutine alongside a foreground
// MCP stdio loop (cmd/dev-console/main_connection_mcp.go). --standalone
// detaches that whole process into the background instead of tying its
// life to the calling MCP client's stdin, mirroring trySpawnServer /
// awaitShutdownSignal from cmd/dev-console/main_connection.go.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/devbridge/browser-debug-bridge/internal/dispatch"
	"github.com/devbridge/browser-debug-bridge/internal/launch"
	"github.com/devbridge/browser-debug-bridge/internal/logging"
	"github.com/devbridge/browser-debug-bridge/internal/mcp"
	"github.com/devbridge/browser-debug-bridge/internal/redact"
	"github.com/devbridge/browser-debug-bridge/internal/state"
	"github.com/devbridge/browser-debug-bridge/internal/store"
	"github.com/devbridge/browser-debug-bridge/internal/tools"
	"github.com/devbridge/browser-debug-bridge/internal/transport"
	"github.com/devbridge/browser-debug-bridge/internal/util"
)

const serviceName = "browser-debug-bridge"

// version is stamped at build time via -ldflags "-X main.version=...";
// defaults to "dev" for local builds.
var version = "dev"

const daemonFlag = "BRIDGE_DAEMON_CHILD"

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(1) // go-flags already printed usage/error
	}

	if opts.DataDir != "" {
		os.Setenv(state.DataDirEnv, opts.DataDir)
	}

	log := logging.New(opts.Debug, true)
	defer log.Sync()

	switch {
	case opts.Stop:
		os.Exit(runStop(log, opts.Port))
	case opts.DryRun:
		os.Exit(runDryRun(log, opts))
	case opts.Standalone && os.Getenv(daemonFlag) == "":
		os.Exit(runStandaloneLauncher(log, opts))
	default:
		os.Exit(runServer(log, opts))
	}
}

// runDryRun validates configuration (data dir resolvable, port free) and
// exits without binding anything.
func runDryRun(log *zap.Logger, opts *Options) int {
	root, err := state.RootDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot resolve data dir: %v\n", launch.ErrStartupFailed, err)
		return 1
	}
	if err := launch.PreflightCheck(opts.Port, serviceName); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Printf("ok: data_dir=%s port=%d mode=%s\n", root, opts.Port, opts.Mode)
	return 0
}

// runStop sends SIGTERM to the process owning the lockfile for opts.Port
// and waits for the port to be released.
func runStop(log *zap.Logger, port int) int {
	lockPath, err := state.LockFile(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", launch.ErrStopFailed, err)
		return 1
	}
	rec, err := launch.ReadLockRecord(lockPath)
	if err != nil || rec == nil {
		fmt.Fprintf(os.Stderr, "%s: no running instance recorded on port %d\n", launch.ErrStopNotRunning, port)
		return 1
	}
	proc, err := os.FindProcess(rec.PID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", launch.ErrStopFailed, err)
		return 1
	}
	_ = proc.Signal(syscall.SIGTERM)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !launch.IsHealthy(port) {
			launch.ReleaseLock(lockPath)
			fmt.Printf("stopped pid %d on port %d\n", rec.PID, port)
			return 0
		}
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Fprintf(os.Stderr, "%s: pid %d did not exit within timeout\n", launch.ErrStopFailed, rec.PID)
	return 1
}

// runStandaloneLauncher spawns a detached daemon child (this same binary,
// re-invoked with daemonFlag set) and waits for it to become healthy, then
// returns — it does not itself serve MCP traffic. Pair with --stop to tear
// the daemon down later.
func runStandaloneLauncher(log *zap.Logger, opts *Options) int {
	if launch.IsOurs(opts.Port, serviceName) {
		fmt.Printf("already running on port %d\n", opts.Port)
		return 0
	}
	if err := launch.PreflightCheck(opts.Port, serviceName); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	args := []string{"--port", strconv.Itoa(opts.Port), "--mode", opts.Mode}
	if opts.DataDir != "" {
		args = append(args, "--data-dir", opts.DataDir)
	}
	if opts.Debug {
		args = append(args, "--debug")
	}

	timeout := startupTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	proc, err := launch.Spawn(ctx, launch.SpawnOptions{
		Port:           opts.Port,
		Args:           args,
		Env:            []string{daemonFlag + "=1"},
		ReadinessEvery: 200 * time.Millisecond,
		Timeout:        timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Printf("started pid %d on port %d\n", proc.Pid, opts.Port)
	return 0
}

// runServer runs the ingest transport and the MCP stdio runtime together in
// this process, as described in this file's header comment.
func runServer(log *zap.Logger, opts *Options) int {
	lockPath, err := state.LockFile(opts.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", launch.ErrStartupFailed, err)
		return 1
	}
	if _, err := launch.AcquireLock(lockPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer launch.ReleaseLock(lockPath)

	if err := launch.PreflightCheck(opts.Port, serviceName); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	dbPath, err := state.DBFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", launch.ErrStartupFailed, err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, dbPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot open store: %v\n", launch.ErrStartupFailed, err)
		return 1
	}
	defer st.Close()

	redactor := redact.Adapter{}
	srv := transport.New(log, st, redactor, transport.Config{MaxDOMBytes: store.MaxDOMBytes})
	disp := dispatch.New(srv)
	srv.SetDispatcher(disp)

	addr := fmt.Sprintf("127.0.0.1:%d", opts.Port)
	util.SafeGo(func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			log.Error("ingest transport exited", zap.Error(err))
		}
	})
	if !launch.WaitHealthy(ctx, opts.Port) {
		fmt.Fprintf(os.Stderr, "%s: ingest transport did not become healthy on port %d\n", launch.ErrStartupFailed, opts.Port)
		return 1
	}
	log.Info("bridge started", zap.Int("port", opts.Port), zap.String("mode", opts.Mode), zap.String("version", version))

	deps := bridgeDeps{Store: st, Dispatcher: disp, Adapter: redactor}
	registry := mcp.NewRegistry()
	tools.RegisterAll(registry, deps)
	runtime := mcp.NewRuntime(log, registry, version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- runtime.Run(ctx, os.Stdin, os.Stdout) }()

	if opts.Standalone {
		// Daemon child: ignore stdin closing, only a signal ends the process.
		<-sigCh
	} else {
		select {
		case <-done:
		case <-sigCh:
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	_ = srv.ListenAndServe(shutdownCtx, addr) // no-op; ctx already cancelled, present for symmetry with awaitShutdownSignal's explicit Shutdown call
	log.Info("bridge stopped", zap.Int("port", opts.Port))
	return 0
}

func startupTimeout() time.Duration {
	raw := os.Getenv("MCP_STARTUP_TIMEOUT_MS")
	if raw == "" {
		return 15 * time.Second
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 1000 {
		return 15 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// bridgeDeps satisfies tools.Deps by embedding the three concrete
// implementations wired above.
type bridgeDeps struct {
	*store.Store
	*dispatch.Dispatcher
	redact.Adapter
}
