// internal/lobby/view.go
package lobby

import "time"

// MemberView is the client-facing projection of one seat.
type MemberView struct {
	ID        string `json:"id"`
	IsHost    bool   `json:"isHost"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

// View is a read-only projection of a lobby, shared by the websocket
// protocol and the HTTP query surface.
type View struct {
	Code        string       `json:"code"`
	State       MatchState   `json:"state"`
	MaxPlayers  int          `json:"maxPlayers"`
	PlayerCount int          `json:"playerCount"`
	Players     []MemberView `json:"players"`
	CanStart    bool         `json:"canStart"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Snapshot captures the lobby's current state as a View.
func (l *Lobby) Snapshot() View {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	players := make([]MemberView, 0, len(l.Members))
	for _, m := range l.Members {
		players = append(players, MemberView{
			ID:        m.ConnID.String(),
			IsHost:    m.IsHost,
			Ready:     m.Ready,
			Connected: m.Connected,
		})
	}
	return View{
		Code:        l.Code,
		State:       l.State,
		MaxPlayers:  MaxPlayers,
		PlayerCount: len(l.Members),
		Players:     players,
		CanStart:    l.canStartLocked(),
		CreatedAt:   l.CreatedAt,
	}
}

// GameData is the scratch payload sent with game_start.
func (l *Lobby) GameData() map[string]interface{} {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	scores := make(map[string]int, len(l.Scores))
	for id, s := range l.Scores {
		scores[id.String()] = s
	}
	health := make(map[string]float64, len(l.Health))
	for id, h := range l.Health {
		health[id.String()] = h
	}
	return map[string]interface{}{
		"scores":    scores,
		"health":    health,
		"countdown": l.Countdown,
	}
}
