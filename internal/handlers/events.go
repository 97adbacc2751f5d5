// internal/handlers/events.go
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coastlinkr/fighting-game-server/internal/history"
	"github.com/coastlinkr/fighting-game-server/internal/lobby"
)

// handleEvent interprets one inbound packet from a connection and drives the
// lobby/registry operations it implies. Malformed or out-of-place events are
// ignored rather than surfaced; a single bad event must never take down the
// session or anyone else's lobby.
func (s *Server) handleEvent(conn *lobby.MemberConn, packet map[string]interface{}) {
	action, _ := packet["type"].(string)

	switch action {
	case "create_lobby":
		s.handleCreateLobby(conn)
	case "join_lobby":
		s.handleJoinLobby(conn, packet)
	case "player_ready":
		s.handlePlayerReady(conn, packet)
	case "game_input", "game_update":
		s.handleRelay(conn, packet)
	case "game_over":
		s.handleGameOver(conn, packet)
	case "ping":
		s.Conns.Touch(conn.ConnID, time.Now())
		conn.Write(map[string]interface{}{"type": "pong"})
	default:
		s.Logger.Warnf("Conn %s: unknown event type %q, ignoring", conn.ConnID, action)
	}
}

func (s *Server) handleCreateLobby(conn *lobby.MemberConn) {
	if cur := s.currentLobby(conn); cur != nil {
		s.Logger.Warnf("Conn %s: create_lobby while already in lobby %s, ignoring", conn.ConnID, cur.Code)
		return
	}

	l := s.Lobbies.CreateLobby(conn.ConnID, conn)
	s.Conns.SetLobby(conn.ConnID, l.Code)
	s.Logger.Infof("Conn %s created lobby %s", conn.ConnID, l.Code)

	conn.Write(map[string]interface{}{
		"type":   "lobby_created",
		"code":   l.Code,
		"isHost": true,
		"lobby":  l.Snapshot(),
	})
}

func (s *Server) handleJoinLobby(conn *lobby.MemberConn, packet map[string]interface{}) {
	if cur := s.currentLobby(conn); cur != nil {
		s.Logger.Warnf("Conn %s: join_lobby while already in lobby %s, ignoring", conn.ConnID, cur.Code)
		return
	}

	code, _ := packet["code"].(string)
	l, err := s.Lobbies.JoinLobby(code, conn.ConnID, conn)
	if err != nil {
		reason := "lobby_not_found"
		if errors.Is(err, lobby.ErrLobbyFull) {
			reason = "lobby_full"
		}
		s.Logger.Infof("Conn %s failed to join lobby %q: %v", conn.ConnID, code, err)
		conn.Write(map[string]interface{}{
			"type":   "lobby_error",
			"reason": reason,
		})
		return
	}

	s.Conns.SetLobby(conn.ConnID, code)
	s.Logger.Infof("Conn %s joined lobby %s", conn.ConnID, code)

	view := l.Snapshot()
	conn.Write(map[string]interface{}{
		"type":   "lobby_joined",
		"code":   code,
		"isHost": false,
		"lobby":  view,
	})
	l.Broadcast(map[string]interface{}{
		"type":  "lobby_updated",
		"lobby": view,
	}, conn.ConnID)
}

func (s *Server) handlePlayerReady(conn *lobby.MemberConn, packet map[string]interface{}) {
	l := s.currentLobby(conn)
	if l == nil {
		return
	}

	ready, _ := packet["ready"].(bool)
	l.SetReady(conn.ConnID, ready)

	l.Broadcast(map[string]interface{}{
		"type":  "lobby_updated",
		"lobby": l.Snapshot(),
	}, uuid.Nil)

	// BeginMatch only fires on the waiting → fighting edge, so a repeated
	// ready can never emit a second game_start.
	if l.BeginMatch() {
		ids := l.MemberIDs()
		memberIDs := make([]string, 0, len(ids))
		for _, id := range ids {
			memberIDs = append(memberIDs, id.String())
		}
		s.Logger.Infof("Lobby %s: both players ready, starting match", l.Code)
		l.Broadcast(map[string]interface{}{
			"type":      "game_start",
			"memberIds": memberIDs,
			"gameData":  l.GameData(),
		}, uuid.Nil)
	}
}

// handleRelay forwards game_input and game_update payloads to the other
// member without interpreting them, tagging sender and server time. Dropped
// entirely outside the fighting state. game_update may additionally carry a
// health report, which is recorded into the lobby's scratch map.
func (s *Server) handleRelay(conn *lobby.MemberConn, packet map[string]interface{}) {
	l := s.currentLobby(conn)
	if l == nil {
		return
	}

	out := make(map[string]interface{}, len(packet)+2)
	for k, v := range packet {
		out[k] = v
	}
	out["senderId"] = conn.ConnID.String()
	out["serverTimestamp"] = time.Now().UnixMilli()

	if !l.Relay(conn.ConnID, out) {
		// Dropped outside a fight; the lobby's scratch data stays untouched.
		return
	}

	if action, _ := packet["type"].(string); action == "game_update" {
		if h, ok := packet["health"].(float64); ok {
			l.RecordHealth(conn.ConnID, h)
		}
	}
}

func (s *Server) handleGameOver(conn *lobby.MemberConn, packet map[string]interface{}) {
	l := s.currentLobby(conn)
	if l == nil {
		return
	}
	if !l.FinishMatch() {
		s.Logger.Warnf("Lobby %s: game_over outside a fight, ignoring", l.Code)
		return
	}

	winner, _ := packet["winner"].(string)
	stats, _ := packet["stats"].(map[string]interface{})
	if id, err := uuid.Parse(winner); err == nil {
		l.AddWin(id)
	}

	s.Logger.Infof("Lobby %s: match over, winner %q", l.Code, winner)
	l.Broadcast(map[string]interface{}{
		"type":            "game_over",
		"winner":          winner,
		"stats":           stats,
		"serverTimestamp": time.Now().UnixMilli(),
	}, uuid.Nil)

	s.publishResult(l, winner, stats)

	l.ScheduleReset(s.ResetDelay, func(reset *lobby.Lobby) {
		// Guard on lobby identity, not code: the code may have been
		// freed and reissued to a different lobby in the interim.
		if cur, ok := s.Lobbies.Get(reset.Code); !ok || cur != reset {
			return
		}
		reset.Broadcast(map[string]interface{}{
			"type":  "lobby_updated",
			"lobby": reset.Snapshot(),
		}, uuid.Nil)
	})
}

// publishResult fires the finished match off to the history queue, if one is
// configured. Failures are logged and forgotten.
func (s *Server) publishResult(l *lobby.Lobby, winner string, stats map[string]interface{}) {
	if s.History == nil {
		return
	}

	rec := history.MatchRecord{
		Code:    l.Code,
		Winner:  winner,
		Stats:   stats,
		EndedAt: time.Now().UnixMilli(),
	}
	rec.Scores = make(map[string]int)
	l.Mu.Lock()
	for id, score := range l.Scores {
		rec.Scores[id.String()] = score
	}
	l.Mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.History.PublishMatchResult(ctx, rec); err != nil {
			s.Logger.Warnf("Lobby %s: failed to publish match result: %v", l.Code, err)
		}
	}()
}

// handleDisconnect runs the full disconnect cascade for a connection:
// membership removal (with host migration inside the lobby), lobby deletion
// when it empties, notification of the remaining member, and finally removal
// of the connection record itself.
func (s *Server) handleDisconnect(conn *lobby.MemberConn) {
	if l := s.currentLobby(conn); l != nil {
		l.MarkDisconnected(conn.ConnID) // stop broadcasts from writing to the dead channel
		l.RemoveMember(conn.ConnID)     // OnEmpty unregisters the code if this was the last member
		if l.MemberCount() > 0 {
			l.Broadcast(map[string]interface{}{
				"type":   "player_disconnected",
				"connId": conn.ConnID.String(),
				"lobby":  l.Snapshot(),
			}, uuid.Nil)
		}
	}
	s.Conns.Remove(conn.ConnID)
}
