// dispatch.go — Capture Dispatcher, SPEC_FULL §4.4. Correlates outbound
// capture_command messages with inbound capture_result messages per bound
// session, adapted from the teacher's internal/queries.QueryDispatcher
// (correlation-ID command tracking via a per-command channel rather than the
// teacher's single shared commandNotify broadcast channel, since capture
// commands here are addressed one-to-one rather than polled).
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNoLiveConnection is returned by RequestCapture when session_id has no
// bound outbound connection.
var ErrNoLiveConnection = errors.New("no_live_connection")

// ErrCaptureTimeout is returned when timeout_ms elapses before a result
// arrives.
var ErrCaptureTimeout = errors.New("timeout")

// ErrCaptureCancelled is returned when the calling context is cancelled
// before a result arrives.
var ErrCaptureCancelled = errors.New("cancelled")

// Result is the payload of a completed capture_result.
type Result struct {
	OK   bool
	Data json.RawMessage
	Err  string

	// connLost distinguishes a dispatcher-synthesized failure (the
	// connection dropped while this waiter was outstanding) from a real
	// capture_result the browser agent sent with OK:false. RequestCapture
	// turns this into a returned error instead of reporting success.
	connLost bool
}

// Sender enqueues an outbound capture_command on a session's connection.
// Implemented by internal/transport.
type Sender interface {
	// SendCaptureCommand enqueues the command for session_id and reports
	// whether a live connection is currently bound to it.
	SendCaptureCommand(sessionID, commandID, kind string, payload any) (bound bool, err error)
}

type waiter struct {
	sessionID string
	ch        chan Result
}

// Dispatcher maintains a command_id -> waiter table per session and routes
// inbound capture_result messages to the right waiter.
type Dispatcher struct {
	sender Sender

	mu          sync.Mutex
	waiters     map[string]*waiter            // command_id -> waiter
	bySession   map[string]map[string]struct{} // session_id -> set of command_id
	lateResults int
	drops       int
}

// New constructs a Dispatcher that sends outbound commands via sender.
func New(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		waiters:   make(map[string]*waiter),
		bySession: make(map[string]map[string]struct{}),
	}
}

// RequestCapture implements §4.4's request_capture operation: it fails fast
// if no connection is bound to sessionID, otherwise installs a waiter, sends
// the command, and blocks until a matching capture_result arrives, ctx is
// cancelled, or timeout elapses — whichever comes first.
func (d *Dispatcher) RequestCapture(ctx context.Context, sessionID, kind string, payload any) (Result, error) {
	commandID := uuid.NewString()

	w := &waiter{sessionID: sessionID, ch: make(chan Result, 1)}
	d.mu.Lock()
	d.waiters[commandID] = w
	if d.bySession[sessionID] == nil {
		d.bySession[sessionID] = make(map[string]struct{})
	}
	d.bySession[sessionID][commandID] = struct{}{}
	d.mu.Unlock()

	bound, err := d.sender.SendCaptureCommand(sessionID, commandID, kind, payload)
	if err != nil || !bound {
		d.removeWaiter(commandID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrNoLiveConnection, err)
		}
		return Result{}, ErrNoLiveConnection
	}

	select {
	case res := <-w.ch:
		if res.connLost {
			return Result{}, ErrNoLiveConnection
		}
		return res, nil
	case <-ctx.Done():
		d.removeWaiter(commandID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, ErrCaptureTimeout
		}
		return Result{}, ErrCaptureCancelled
	}
}

// CompleteCapture delivers an inbound capture_result to its waiter, if one
// is still installed. A result for an unknown or already-timed-out
// command_id is dropped and counted (§4.4 step 4).
func (d *Dispatcher) CompleteCapture(commandID string, res Result) {
	d.mu.Lock()
	w, ok := d.waiters[commandID]
	if ok {
		delete(d.waiters, commandID)
		if set := d.bySession[w.sessionID]; set != nil {
			delete(set, commandID)
			if len(set) == 0 {
				delete(d.bySession, w.sessionID)
			}
		}
	} else {
		d.lateResults++
	}
	d.mu.Unlock()

	if ok {
		w.ch <- res
	}
}

// DropSessionConnection is called when a session's connection is lost: every
// outstanding waiter for that session resolves with ErrNoLiveConnection so
// blocked RequestCapture calls return promptly instead of waiting out their
// full timeout.
func (d *Dispatcher) DropSessionConnection(sessionID string) {
	d.mu.Lock()
	ids := d.bySession[sessionID]
	delete(d.bySession, sessionID)
	var waiters []*waiter
	for id := range ids {
		if w, ok := d.waiters[id]; ok {
			waiters = append(waiters, w)
			delete(d.waiters, id)
		}
	}
	d.drops += len(waiters)
	d.mu.Unlock()

	for _, w := range waiters {
		w.ch <- Result{OK: false, Err: ErrNoLiveConnection.Error(), connLost: true}
	}
}

func (d *Dispatcher) removeWaiter(commandID string) {
	d.mu.Lock()
	if w, ok := d.waiters[commandID]; ok {
		delete(d.waiters, commandID)
		if set := d.bySession[w.sessionID]; set != nil {
			delete(set, commandID)
			if len(set) == 0 {
				delete(d.bySession, w.sessionID)
			}
		}
	}
	d.mu.Unlock()
}

// Metrics is a point-in-time snapshot of dispatcher bookkeeping, surfaced
// via /stats per SPEC_FULL's ConnectionMetrics.
type Metrics struct {
	PendingWaiters int
	LateResults    int
	DroppedOnLoss  int
}

// Snapshot returns a thread-safe view of dispatcher state.
func (d *Dispatcher) Snapshot() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Metrics{
		PendingWaiters: len(d.waiters),
		LateResults:    d.lateResults,
		DroppedOnLoss:  d.drops,
	}
}
