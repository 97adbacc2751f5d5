// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/coastlinkr/fighting-game-server/internal/lobby"
	"github.com/coastlinkr/fighting-game-server/internal/middleware"
)

// Custom WebSocket close codes. These provide more specific reasons for
// closure than the standard set.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
)

// WSHandler upgrades the HTTP connection to WebSocket and runs the
// per-connection session: mint an id, register it, pump messages both ways,
// and on exit run the disconnect cascade.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"fight"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "fight" {
			c.Close(BadSubprotocolError, "client must speak the fight subprotocol")
			return
		}

		connID := uuid.New()
		s.Conns.Add(connID)
		middleware.LogWebSocketConnect(s.Logger, remoteAddr, connID.String())

		ctx, cancel := context.WithCancel(r.Context())
		conn := &lobby.MemberConn{
			ConnID:  connID,
			Cancel:  cancel,
			OutChan: make(chan map[string]interface{}, 16),
		}

		go s.writePump(ctx, c, conn)

		readErr := s.readPump(ctx, c, conn)

		// ---- Cleanup after readPump exits ----
		s.handleDisconnect(conn)
		cancel()
		middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, connID.String(), readErr)
	}
}

// readPump reads inbound packets and dispatches them until the connection
// closes. Each packet is handled to completion before the next is read, so
// events from one connection never race themselves.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, conn *lobby.MemberConn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			s.Logger.Warnf("Conn %s: non-text message type %d, ignoring", conn.ConnID, typ)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			s.Logger.Warnf("Conn %s: invalid json: %v", conn.ConnID, err)
			conn.Write(map[string]interface{}{
				"type":    "lobby_error",
				"reason":  "bad_payload",
				"message": "invalid JSON",
			})
			continue
		}

		s.handleEvent(conn, packet)
	}
}

// writePump drains the connection's OutChan onto the wire and keeps the
// transport alive with periodic pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *lobby.MemberConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Warnf("Conn %s: failed to marshal outgoing msg: %v", conn.ConnID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.Warnf("Conn %s: websocket write failed: %v", conn.ConnID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("Conn %s: ping failed, assuming disconnect: %v", conn.ConnID, err)
				return
			}
		}
	}
}
