// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
)

// LobbySummary is one row of the server-wide lobby listing.
type LobbySummary struct {
	Code        string    `json:"code"`
	PlayerCount int       `json:"playerCount"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StatsResponse is the server-wide counter payload.
type StatsResponse struct {
	Connections int            `json:"connections"`
	Lobbies     int            `json:"lobbies"`
	LobbyList   []LobbySummary `json:"lobbyList"`
}

// StatsHandler returns connected-connection and active-lobby counts plus a
// per-lobby summary. Read-only; never mutates the registries.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbies := s.Lobbies.Lobbies()

		list := make([]LobbySummary, 0, len(lobbies))
		for code, l := range lobbies {
			list = append(list, LobbySummary{
				Code:        code,
				PlayerCount: l.MemberCount(),
				State:       string(l.StateNow()),
				CreatedAt:   l.CreatedAt,
			})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })

		resp := StatsResponse{
			Connections: s.Conns.Count(),
			Lobbies:     len(list),
			LobbyList:   list,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// LobbyHandler returns one lobby's current view by code. An unregistered
// code is a 404; an empty lobby never survives long enough to be observed
// here because deletion happens when the last member leaves.
func (s *Server) LobbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]

		l, ok := s.Lobbies.Get(code)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "lobby not found"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(l.Snapshot())
	}
}
