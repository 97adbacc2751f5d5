// internal/lobby/lobby_store.go
package lobby

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store manages active lobbies in memory, keyed by their short join code.
// It provides thread-safe access to create, retrieve, and delete lobbies,
// and runs the idle-lobby reaper.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby
}

// NewStore initializes and returns an empty Store.
func NewStore() *Store {
	return &Store{
		lobbies: make(map[string]*Lobby),
	}
}

// generateCodeLocked picks a 4-digit code not currently registered,
// regenerating on collision. Assumes the store lock is held, which makes the
// check-then-insert in CreateLobby atomic.
func (s *Store) generateCodeLocked() string {
	for {
		code := fmt.Sprintf("%04d", 1000+rand.Intn(9000))
		if _, taken := s.lobbies[code]; !taken {
			return code
		}
	}
}

// CreateLobby generates a unique code, constructs a lobby hosted by
// hostConnID, seats the host, and registers it. The lobby's OnEmpty callback
// is wired to unregister the code when the last member leaves.
func (s *Store) CreateLobby(hostConnID uuid.UUID, conn *MemberConn) *Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateCodeLocked()
	l := New(code, hostConnID)
	l.OnEmpty = func(code string) {
		s.reapIfEmpty(code)
	}
	// Seating the host into a lobby nobody else can see yet cannot fail.
	_ = l.AddMember(hostConnID, conn)
	s.lobbies[code] = l

	log.Printf("Store: created lobby %s hosted by %s", code, hostConnID)
	return l
}

// JoinLobby seats connID in the lobby registered under code. Returns
// ErrLobbyNotFound for an unknown code and ErrLobbyFull at capacity. The
// store lock is held across the lookup and the seat, so a join can never
// land in a lobby the empty-delete path is about to unregister.
func (s *Store) JoinLobby(code string, connID uuid.UUID, conn *MemberConn) (*Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[code]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if err := l.AddMember(connID, conn); err != nil {
		return nil, err
	}
	return l, nil
}

// Get retrieves a lobby by code.
func (s *Store) Get(code string) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[code]
	return l, ok
}

// reapIfEmpty unregisters code only if its lobby is still empty. The empty
// notification arrives after the removing goroutine drops the lobby lock, so
// a join may already have reoccupied the lobby; re-checking membership under
// store-then-lobby locks (the order CreateLobby and JoinLobby use) keeps the
// delete from racing it.
func (s *Store) reapIfEmpty(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[code]
	if !ok {
		return
	}
	l.Mu.Lock()
	empty := len(l.Members) == 0
	l.Mu.Unlock()
	if empty {
		delete(s.lobbies, code)
		log.Printf("Store: deleted empty lobby %s", code)
	}
}

// Lobbies returns a copy of the registry map so callers can iterate without
// racing concurrent inserts and deletes.
func (s *Store) Lobbies() map[string]*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Lobby, len(s.lobbies))
	for code, l := range s.lobbies {
		out[code] = l
	}
	return out
}

// Count returns the number of registered lobbies.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

// ReclaimStale removes lobbies that are simultaneously empty and older than
// maxIdle. An empty lobby is already unreachable for gameplay, so this only
// reclaims memory. Emptiness is checked under store-then-lobby locks so a
// concurrent join cannot slip into a lobby mid-reclaim. Returns the number
// of lobbies removed.
func (s *Store) ReclaimStale(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := 0
	for code, l := range s.lobbies {
		l.Mu.Lock()
		stale := len(l.Members) == 0 && now.Sub(l.CreatedAt) >= maxIdle
		l.Mu.Unlock()
		if stale {
			delete(s.lobbies, code)
			reclaimed++
			log.Printf("Store: reclaimed stale lobby %s (created %s)", code, l.CreatedAt.Format(time.RFC3339))
		}
	}
	return reclaimed
}

// StartReaper runs the periodic stale-lobby sweep until ctx is cancelled.
func (s *Store) StartReaper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.ReclaimStale(now, maxIdle)
			}
		}
	}()
}
