// ws.go — the /ws upgrade endpoint and the per-connection read/write pumps.
// Grounded on estuary-flow's go/ingest/ws_api.go newWSReadPump: a single
// goroutine owns conn.NextReader, a single (different) goroutine owns
// conn.WriteJSON/WriteControl, and the two communicate only via channels —
// gorilla/websocket connections are not safe for concurrent use by more
// than one reader or more than one writer.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devbridge/browser-debug-bridge/internal/dispatch"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConnection(s.log)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.writePump(ctx, wsConn, conn)
	s.readPump(ctx, wsConn, conn)
}

func (s *Server) readPump(ctx context.Context, wsConn *websocket.Conn, conn *connection) {
	defer func() {
		conn.markClosing()
		if sid := conn.boundSessionID(); sid != "" {
			s.unbindConnection(sid, conn)
		}
		conn.markClosed()
		_ = wsConn.Close()
	}()

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.handleInbound(ctx, conn, data)
	}
}

func (s *Server) handleInbound(ctx context.Context, conn *connection, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Debug("dropping malformed wire message", zap.Error(err))
		return
	}

	if env.Type != kindSessionStart && !conn.isBound() {
		s.log.Debug("rejecting message before session_start", zap.String("kind", env.Type))
		return
	}

	switch env.Type {
	case kindSessionStart:
		var msg SessionStart
		if err := json.Unmarshal(data, &msg); err != nil || msg.SessionID == "" {
			return
		}
		sess := store.Session{
			SessionID: msg.SessionID,
			CreatedAt: msg.CreatedAt,
			URL:       msg.URL,
			SafeMode:  msg.SafeMode,
			Allowlist: msg.Allowlist,
			Status:    store.SessionActive,
		}
		if err := s.store.UpsertSession(ctx, sess); err != nil {
			s.log.Warn("upsert session failed", zap.Error(err))
			return
		}
		conn.bind(msg.SessionID)
		s.bindConnection(msg.SessionID, conn)

	case kindEventBatch:
		var batch EventBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			return
		}
		s.ingestEventBatch(ctx, batch)

	case kindNetworkBatch:
		var batch NetworkBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			return
		}
		s.ingestNetworkBatch(ctx, batch)

	case kindSnapshot:
		var snap WireSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return
		}
		if _, err := s.ingestSnapshot(ctx, snap); err != nil {
			s.log.Warn("snapshot ingest failed", zap.Error(err))
		}

	case kindCaptureResult:
		var res CaptureResult
		if err := json.Unmarshal(data, &res); err != nil {
			return
		}
		if s.dispatch != nil {
			s.dispatch.CompleteCapture(res.CommandID, resultFromWire(res))
		}

	case kindPong:
		conn.recordPong()

	default:
		s.log.Debug("ignoring unknown wire message kind", zap.String("kind", env.Type))
	}
}

func (s *Server) writePump(ctx context.Context, wsConn *websocket.Conn, conn *connection) {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.closeCh:
			return
		case <-heartbeat.C:
			if conn.notePingSent() {
				s.log.Debug("closing connection after missed pongs")
				_ = wsConn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "missed heartbeat"),
					time.Now().Add(time.Second))
				return
			}
			_ = wsConn.WriteJSON(map[string]string{"type": kindPing})
		case <-conn.sendSignal:
			for _, msg := range conn.drain() {
				if err := wsConn.WriteJSON(withKind(msg.kind, msg.body)); err != nil {
					s.log.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	}
}

func withKind(kind string, body any) map[string]any {
	raw, _ := json.Marshal(body)
	out := map[string]any{"type": kind}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		for k, v := range fields {
			out[k] = v
		}
	}
	return out
}

func resultFromWire(res CaptureResult) dispatch.Result {
	return dispatch.Result{OK: res.OK, Data: res.Data, Err: res.Error}
}
