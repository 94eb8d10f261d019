// supervisor.go — standalone-mode process spawn and readiness polling,
// adapted from the teacher's trySpawnServer/respawnDaemon/waitForServer
// (cmd/dev-console/main_connection.go, bridge.go) and its stdin-close
// shutdown handling in awaitShutdownSignal (main_connection_mcp.go).
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/devbridge/browser-debug-bridge/internal/util"
)

// SpawnOptions configures a standalone background server spawn.
type SpawnOptions struct {
	Port           int
	Args           []string
	Env            []string
	ReadinessEvery time.Duration
	Timeout        time.Duration
}

// Spawn launches a detached copy of the current executable with args, then
// polls /health every ReadinessEvery until the server answers or Timeout
// elapses. Returns the child process on success.
func Spawn(ctx context.Context, opts SpawnOptions) (*os.Process, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, newError(ErrStartupFailed, "cannot resolve executable path: "+err.Error())
	}

	cmd := exec.Command(exe, opts.Args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	util.SetDetachedProcess(cmd)

	if err := cmd.Start(); err != nil {
		return nil, newError(ErrStartupFailed, "failed to spawn background process: "+err.Error())
	}

	every := opts.ReadinessEvery
	if every <= 0 {
		every = 200 * time.Millisecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !waitHealthyEvery(waitCtx, opts.Port, every) {
		_ = cmd.Process.Kill()
		return nil, newError(ErrStartupFailed, fmt.Sprintf("server did not become healthy on port %d within %s", opts.Port, timeout))
	}
	return cmd.Process, nil
}

func waitHealthyEvery(ctx context.Context, port int, every time.Duration) bool {
	if IsHealthy(port) {
		return true
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if IsHealthy(port) {
				return true
			}
		}
	}
}

// AwaitStdinClose blocks until r reaches EOF (the MCP client closed its
// pipe), then sends SIGTERM to this process so the server's own
// signal-handling shutdown path runs, matching SPEC_FULL §8's "closing
// stdin begins graceful shutdown" contract.
func AwaitStdinClose(r *os.File) {
	buf := make([]byte, 1)
	for {
		_, err := r.Read(buf)
		if err != nil {
			proc, findErr := os.FindProcess(os.Getpid())
			if findErr == nil {
				_ = proc.Signal(syscall.SIGTERM)
			}
			return
		}
	}
}
