// internal/handlers/server.go
package handlers

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coastlinkr/fighting-game-server/internal/history"
	"github.com/coastlinkr/fighting-game-server/internal/lobby"
	"github.com/coastlinkr/fighting-game-server/internal/session"
)

// Server aggregates the shared registries the protocol handlers operate
// against: the connection registry, the lobby store, and the optional match
// history publisher.
type Server struct {
	Conns   *session.Registry
	Lobbies *lobby.Store
	History *history.Publisher
	Logger  *logrus.Logger

	// ResetDelay is the grace period between game_over and the lobby
	// returning to the waiting state.
	ResetDelay time.Duration
}

// NewServer constructs a Server with fresh registries. History stays nil
// (and therefore disabled) until the caller attaches a publisher.
func NewServer(logger *logrus.Logger) *Server {
	return &Server{
		Conns:      session.NewRegistry(),
		Lobbies:    lobby.NewStore(),
		Logger:     logger,
		ResetDelay: 5 * time.Second,
	}
}

// currentLobby resolves the lobby the connection currently belongs to, or
// nil when the connection is unknown, lobbyless, or its lobby is gone.
// Lobby-scoped events from such connections are silently ignored. A
// back-reference to a code that no longer resolves is dropped on the spot so
// the connection can create or join again instead of staying wedged.
func (s *Server) currentLobby(conn *lobby.MemberConn) *lobby.Lobby {
	info, ok := s.Conns.Get(conn.ConnID)
	if !ok || info.LobbyCode == "" {
		return nil
	}
	l, ok := s.Lobbies.Get(info.LobbyCode)
	if !ok {
		s.Conns.ClearLobby(conn.ConnID)
		return nil
	}
	return l
}
