// internal/session/registry.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Info is the per-connection metadata the server tracks: which lobby the
// connection currently belongs to (empty when none) and when it was last
// heard from. The registry never owns the lobby, only the back-reference.
type Info struct {
	ID        uuid.UUID
	LobbyCode string
	LastSeen  time.Time
}

// Registry maps live connection ids to their metadata. All access is
// serialized on an internal mutex.
type Registry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Info
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]*Info),
	}
}

// Add records a freshly connected id.
func (r *Registry) Add(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &Info{ID: id, LastSeen: time.Now()}
}

// Get returns a copy of the connection's metadata.
func (r *Registry) Get(id uuid.UUID) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.conns[id]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

// Remove forgets a connection. Unknown ids are a no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Touch refreshes the connection's last-seen timestamp.
func (r *Registry) Touch(id uuid.UUID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.conns[id]; ok {
		info.LastSeen = now
	}
}

// SetLobby records which lobby the connection belongs to.
func (r *Registry) SetLobby(id uuid.UUID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.conns[id]; ok {
		info.LobbyCode = code
	}
}

// ClearLobby drops the connection's lobby back-reference.
func (r *Registry) ClearLobby(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.conns[id]; ok {
		info.LobbyCode = ""
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
