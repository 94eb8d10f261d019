// server.go — the Ingest Transport component, SPEC_FULL §4.3. Grounded on
// the teacher's cmd/dev-console/server_routes.go mux wiring (setupHTTPRoutes)
// and server_middleware.go's loopback-only CORS, generalized from an
// HTTP-long-poll extension protocol to the spec's WebSocket wire protocol.
package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devbridge/browser-debug-bridge/internal/dispatch"
)

// Server owns the loopback HTTP+WebSocket listener, the per-session
// connection registry, and delegates persistence to Store.
type Server struct {
	log       *zap.Logger
	store     Store
	redactor  Redactor
	dispatch  *dispatch.Dispatcher
	upgrader  websocket.Upgrader
	startedAt time.Time
	maxDOM    int

	mu    sync.Mutex
	conns map[string]*connection // session_id -> bound connection

	batchesCommitted int64
	batchesRetried   int64
}

// Config bounds optional Server construction parameters.
type Config struct {
	MaxDOMBytes int
}

// New constructs a Server. The dispatcher is created by the caller (it
// needs a Sender, which this Server implements) and wired back in via
// SetDispatcher.
func New(log *zap.Logger, st Store, red Redactor, cfg Config) *Server {
	maxDOM := cfg.MaxDOMBytes
	if maxDOM <= 0 {
		maxDOM = 512 * 1024
	}
	return &Server{
		log:       log,
		store:     st,
		redactor:  red,
		maxDOM:    maxDOM,
		startedAt: time.Now(),
		conns:     make(map[string]*connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || isAllowedOrigin(origin)
			},
		},
	}
}

// SetDispatcher wires the Capture Dispatcher that uses this Server as its
// Sender. Must be called once before serving traffic.
func (s *Server) SetDispatcher(d *dispatch.Dispatcher) {
	s.dispatch = d
}

// Mux builds the HTTP handler tree for SPEC_FULL §6's paths.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", loopbackOnly(s.handleHealth))
	mux.HandleFunc("/stats", loopbackOnly(s.handleStats))
	mux.HandleFunc("/sessions/import", loopbackOnly(s.handleSessionsImport))
	mux.HandleFunc("/sessions/", loopbackOnly(s.handleSessionSnapshots))
	mux.HandleFunc("/ws", loopbackOnly(s.handleWS))
	return mux
}

// ListenAndServe binds addr (expected to be a loopback address) and serves
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// SendCaptureCommand implements dispatch.Sender: it looks up the bound
// connection for sessionID and enqueues a capture_command, reporting
// whether a live connection was found.
func (s *Server) SendCaptureCommand(sessionID, commandID, kind string, payload any) (bool, error) {
	s.mu.Lock()
	conn, ok := s.conns[sessionID]
	s.mu.Unlock()
	if !ok || !conn.isBound() {
		return false, nil
	}
	conn.enqueue(outboundMessage{kind: kindCaptureCommand, body: CaptureCommand{
		CommandID: commandID,
		SessionID: sessionID,
		Kind:      kind,
		Payload:   payload,
	}})
	return true, nil
}

// ActiveSessionCount reports how many sessions currently have a bound
// connection, for GET /health.
func (s *Server) ActiveSessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) bindConnection(sessionID string, conn *connection) {
	s.mu.Lock()
	if existing, ok := s.conns[sessionID]; ok && existing != conn {
		// At most one active transport binding per session_id (SPEC §3):
		// the newcomer replaces the stale binding.
		existing.markClosed()
	}
	s.conns[sessionID] = conn
	s.mu.Unlock()
}

func (s *Server) unbindConnection(sessionID string, conn *connection) {
	s.mu.Lock()
	if existing, ok := s.conns[sessionID]; ok && existing == conn {
		delete(s.conns, sessionID)
	}
	s.mu.Unlock()
	if s.dispatch != nil {
		s.dispatch.DropSessionConnection(sessionID)
	}
}

// Metrics aggregates per-connection backpressure counters for GET /stats.
func (s *Server) Metrics() ConnectionMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := ConnectionMetrics{}
	for _, c := range s.conns {
		m.QueueDrops += c.queueDropCount()
	}
	if s.dispatch != nil {
		snap := s.dispatch.Snapshot()
		m.LateResults = int64(snap.LateResults)
		m.PendingCaptures = int64(snap.PendingWaiters)
	}
	m.BatchesCommitted = atomic.LoadInt64(&s.batchesCommitted)
	m.BatchesRetried = atomic.LoadInt64(&s.batchesRetried)
	return m
}

// ConnectionMetrics is the supplemented entity from SPEC_FULL surfaced via
// /stats: queue_drops, late_results, batches_committed, batches_retried.
type ConnectionMetrics struct {
	QueueDrops       int64 `json:"queue_drops"`
	LateResults      int64 `json:"late_results"`
	PendingCaptures  int64 `json:"pending_captures"`
	BatchesCommitted int64 `json:"batches_committed"`
	BatchesRetried   int64 `json:"batches_retried"`
}
