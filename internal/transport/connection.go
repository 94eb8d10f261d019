// connection.go — per-connection state machine and bounded outbound queue,
// SPEC_FULL §4.3. Grounded on the teacher's cmd/dev-console/websocket.go
// connection tracking and on estuary-flow's go/ingest/ws_api.go read/write
// pump split (a dedicated goroutine owns conn.NextReader/WriteJSON so the
// gorilla/websocket connection is never touched concurrently from two
// goroutines).
package transport

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type connState int

const (
	stateHandshake connState = iota
	stateBound
	stateClosing
	stateClosed
)

// outboundQueueSize is the bounded per-connection outbound queue from
// SPEC_FULL §4.3 backpressure: on overflow the oldest queued message is
// dropped and a counter incremented.
const outboundQueueSize = 1024

const (
	heartbeatInterval = 30 * time.Second
	maxMissedPongs    = 2
)

// outboundMessage is anything queued to a connection's writer goroutine.
type outboundMessage struct {
	kind string
	body any
}

// connection tracks one bound (or not-yet-bound) WebSocket session.
type connection struct {
	log *zap.Logger

	mu          sync.Mutex
	state       connState
	sessionID   string
	outbound    []outboundMessage
	queueDrops  int64
	missedPongs int
	closeCh     chan struct{}
	sendSignal  chan struct{}
}

func newConnection(log *zap.Logger) *connection {
	return &connection{
		log:        log,
		state:      stateHandshake,
		closeCh:    make(chan struct{}),
		sendSignal: make(chan struct{}, 1),
	}
}

// bind transitions Handshake -> Bound once a valid session_start arrives.
func (c *connection) bind(sessionID string) {
	c.mu.Lock()
	c.state = stateBound
	c.sessionID = sessionID
	c.mu.Unlock()
}

func (c *connection) isBound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateBound
}

func (c *connection) boundSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// enqueue appends a message to the outbound queue, dropping the oldest
// entry on overflow (SPEC_FULL §4.3 backpressure policy).
func (c *connection) enqueue(msg outboundMessage) {
	c.mu.Lock()
	if len(c.outbound) >= outboundQueueSize {
		c.outbound = c.outbound[1:]
		c.queueDrops++
	}
	c.outbound = append(c.outbound, msg)
	c.mu.Unlock()

	select {
	case c.sendSignal <- struct{}{}:
	default:
	}
}

// drain pops every currently queued message, preserving enqueue order.
func (c *connection) drain() []outboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.outbound) == 0 {
		return nil
	}
	out := c.outbound
	c.outbound = nil
	return out
}

func (c *connection) recordPong() {
	c.mu.Lock()
	c.missedPongs = 0
	c.mu.Unlock()
}

// notePingSent returns true if the connection should be closed for having
// missed too many pongs.
func (c *connection) notePingSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missedPongs++
	return c.missedPongs > maxMissedPongs
}

func (c *connection) markClosing() {
	c.mu.Lock()
	if c.state != stateClosed {
		c.state = stateClosing
	}
	c.mu.Unlock()
}

func (c *connection) markClosed() {
	c.mu.Lock()
	alreadyClosed := c.state == stateClosed
	c.state = stateClosed
	c.mu.Unlock()
	if !alreadyClosed {
		close(c.closeCh)
	}
}

func (c *connection) queueDropCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queueDrops
}
