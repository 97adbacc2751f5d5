// internal/lobby/lobby.go
package lobby

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxPlayers is the fixed capacity of every lobby. Matches are strictly 1v1.
const MaxPlayers = 2

// CountdownSeconds is the round timer value handed to both clients at match start.
const CountdownSeconds = 99

// MatchState is the lifecycle phase of a lobby's current match.
type MatchState string

const (
	StateWaiting  MatchState = "waiting"
	StateFighting MatchState = "fighting"
	StateFinished MatchState = "finished"
)

var (
	// ErrLobbyFull is returned when a join would exceed MaxPlayers.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrLobbyNotFound is returned when a code does not resolve to a live lobby.
	ErrLobbyNotFound = errors.New("lobby not found")
)

// MemberConn is one player's outbound channel capability. The lobby holds a
// reference but never owns the underlying transport; the websocket handler
// that created it is responsible for draining OutChan and closing it.
type MemberConn struct {
	ConnID  uuid.UUID
	Cancel  func()
	OutChan chan map[string]interface{}
}

// Write pushes a message onto the connection's OutChan non-blockingly.
// Messages to a full or abandoned channel are dropped and logged.
func (conn *MemberConn) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("MemberConn %s: OutChan closed or full, dropped message type %q", conn.ConnID, msgType)
	}
}

// Member is one player's seat in a lobby. Members is kept in join order, so
// index 0 is always the oldest surviving member.
type Member struct {
	ConnID    uuid.UUID
	Conn      *MemberConn
	IsHost    bool
	Ready     bool
	Connected bool
	JoinedAt  time.Time
}

// Lobby is a single two-player match session. All mutation goes through the
// exported methods, which serialize on Mu; a lobby is the unit of
// serialization, so unrelated lobbies never contend.
type Lobby struct {
	Code      string
	HostID    uuid.UUID
	State     MatchState
	CreatedAt time.Time

	Members []*Member

	// Per-match scratch data. Scores persist across rounds; Health is
	// repopulated each round from game_update reports.
	Scores    map[uuid.UUID]int
	Health    map[uuid.UUID]float64
	Countdown int

	resetTimer *time.Timer

	// OnEmpty is called (outside the lobby lock) after the last member
	// leaves. The store assigns it at creation to unregister the code.
	OnEmpty func(code string)

	Mu sync.Mutex
}

// New constructs an empty lobby in the waiting state.
func New(code string, hostID uuid.UUID) *Lobby {
	return &Lobby{
		Code:      code,
		HostID:    hostID,
		State:     StateWaiting,
		CreatedAt: time.Now(),
		Scores:    make(map[uuid.UUID]int),
		Health:    make(map[uuid.UUID]float64),
		Countdown: CountdownSeconds,
	}
}

// AddMember seats a new member. The designated host id joins as host; the
// very first member has their score seeded to zero. Returns ErrLobbyFull at
// capacity; re-adding an existing member is a no-op.
func (l *Lobby) AddMember(connID uuid.UUID, conn *MemberConn) error {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	for _, m := range l.Members {
		if m.ConnID == connID {
			return nil
		}
	}
	if len(l.Members) >= MaxPlayers {
		return ErrLobbyFull
	}

	m := &Member{
		ConnID:    connID,
		Conn:      conn,
		IsHost:    connID == l.HostID,
		Connected: true,
		JoinedAt:  time.Now(),
	}
	if len(l.Members) == 0 {
		l.Scores[connID] = 0
	}
	l.Members = append(l.Members, m)
	return nil
}

// RemoveMember drops a member and their readiness. If the host leaves and
// others remain, the oldest-joined survivor inherits the host role. Removing
// an unknown id is a no-op. Calls OnEmpty after the lock is released if the
// lobby emptied.
func (l *Lobby) RemoveMember(connID uuid.UUID) {
	l.Mu.Lock()

	idx := -1
	for i, m := range l.Members {
		if m.ConnID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.Mu.Unlock()
		return
	}

	wasHost := l.Members[idx].IsHost
	l.Members = append(l.Members[:idx], l.Members[idx+1:]...)

	if wasHost && len(l.Members) > 0 {
		next := l.Members[0]
		next.IsHost = true
		l.HostID = next.ConnID
		log.Printf("Lobby %s: host left, migrating host to %s", l.Code, next.ConnID)
	}

	empty := len(l.Members) == 0
	onEmpty := l.OnEmpty
	if empty && l.resetTimer != nil {
		l.resetTimer.Stop()
		l.resetTimer = nil
	}
	l.Mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(l.Code)
	}
}

// MarkDisconnected flags a member's transport as gone so broadcasts and
// relays stop writing to its channel. Membership itself is unchanged; the
// disconnect cascade removes the seat afterwards.
func (l *Lobby) MarkDisconnected(connID uuid.UUID) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	for _, m := range l.Members {
		if m.ConnID == connID {
			m.Connected = false
			return
		}
	}
}

// SetReady updates a member's ready flag. Unknown ids are ignored.
func (l *Lobby) SetReady(connID uuid.UUID, ready bool) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	for _, m := range l.Members {
		if m.ConnID == connID {
			m.Ready = ready
			return
		}
	}
}

// canStartLocked reports whether both slots are filled and ready. Assumes the
// lobby lock is held.
func (l *Lobby) canStartLocked() bool {
	if len(l.Members) != MaxPlayers {
		return false
	}
	for _, m := range l.Members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// CanStart reports whether the lobby is full and everyone is ready.
func (l *Lobby) CanStart() bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.canStartLocked()
}

// BeginMatch transitions waiting → fighting, but only when the lobby can
// start. Returns whether the transition happened, so a repeated ready event
// can never start a second match. A fresh round clears stale health reports.
func (l *Lobby) BeginMatch() bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.State != StateWaiting || !l.canStartLocked() {
		return false
	}
	l.State = StateFighting
	l.Health = make(map[uuid.UUID]float64)
	return true
}

// FinishMatch transitions fighting → finished. Reports arriving in any other
// state are ignored.
func (l *Lobby) FinishMatch() bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.State != StateFighting {
		return false
	}
	l.State = StateFinished
	return true
}

// AddWin bumps a member's score. Ids that are not members are ignored so a
// malformed winner field cannot pollute the scratch map.
func (l *Lobby) AddWin(connID uuid.UUID) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	for _, m := range l.Members {
		if m.ConnID == connID {
			l.Scores[connID]++
			return
		}
	}
}

// RecordHealth stores a member's reported health value.
func (l *Lobby) RecordHealth(connID uuid.UUID, health float64) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.Health[connID] = health
}

// ScheduleReset arms the finished → waiting transition after delay. If the
// lobby empties or a newer timer replaces this one before it fires, the
// callback becomes a no-op. onReset runs outside the lock after a successful
// transition, with readiness already cleared.
func (l *Lobby) ScheduleReset(delay time.Duration, onReset func(*Lobby)) {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.resetTimer != nil {
		l.resetTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		l.Mu.Lock()
		if l.resetTimer != timer {
			// A newer timer superseded this one.
			l.Mu.Unlock()
			return
		}
		l.resetTimer = nil
		if l.State != StateFinished || len(l.Members) == 0 {
			l.Mu.Unlock()
			return
		}
		l.State = StateWaiting
		for _, m := range l.Members {
			m.Ready = false
		}
		l.Mu.Unlock()

		if onReset != nil {
			onReset(l)
		}
	})
	l.resetTimer = timer
}

// Broadcast delivers msg to every member's channel except exclude (pass
// uuid.Nil to reach everyone). Members whose transport is gone are skipped.
func (l *Lobby) Broadcast(msg map[string]interface{}, exclude uuid.UUID) {
	l.Mu.Lock()
	targets := make([]*MemberConn, 0, len(l.Members))
	for _, m := range l.Members {
		if m.ConnID == exclude || !m.Connected || m.Conn == nil {
			continue
		}
		targets = append(targets, m.Conn)
	}
	l.Mu.Unlock()

	for _, conn := range targets {
		conn.Write(msg)
	}
}

// Relay forwards a gameplay message from sender to the other member, verbatim.
// Returns false without delivering anything unless a match is in progress.
func (l *Lobby) Relay(sender uuid.UUID, msg map[string]interface{}) bool {
	l.Mu.Lock()
	if l.State != StateFighting {
		l.Mu.Unlock()
		return false
	}
	targets := make([]*MemberConn, 0, 1)
	for _, m := range l.Members {
		if m.ConnID == sender || !m.Connected || m.Conn == nil {
			continue
		}
		targets = append(targets, m.Conn)
	}
	l.Mu.Unlock()

	for _, conn := range targets {
		conn.Write(msg)
	}
	return true
}

// MemberCount returns the current number of seated members.
func (l *Lobby) MemberCount() int {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return len(l.Members)
}

// StateNow returns the current match state.
func (l *Lobby) StateNow() MatchState {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.State
}

// MemberIDs returns member ids in join order.
func (l *Lobby) MemberIDs() []uuid.UUID {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	ids := make([]uuid.UUID, 0, len(l.Members))
	for _, m := range l.Members {
		ids = append(ids, m.ConnID)
	}
	return ids
}
