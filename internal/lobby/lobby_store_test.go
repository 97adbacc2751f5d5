// internal/lobby/lobby_store_test.go
package lobby

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeRe = regexp.MustCompile(`^\d{4}$`)

func TestCreateLobbyRegistersHost(t *testing.T) {
	s := NewStore()
	host := newTestConn()

	l := s.CreateLobby(host.ConnID, host)
	require.NotNil(t, l)
	assert.Regexp(t, codeRe, l.Code)
	assert.Equal(t, 1, l.MemberCount())
	assert.Equal(t, host.ConnID, l.HostID)

	got, ok := s.Get(l.Code)
	require.True(t, ok)
	assert.Same(t, l, got)
}

func TestCreateLobbyCodesUnique(t *testing.T) {
	s := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		host := newTestConn()
		l := s.CreateLobby(host.ConnID, host)
		assert.False(t, seen[l.Code], "code %s issued twice", l.Code)
		seen[l.Code] = true
	}
	assert.Equal(t, 100, s.Count())
}

func TestJoinLobby(t *testing.T) {
	s := NewStore()
	host := newTestConn()
	l := s.CreateLobby(host.ConnID, host)

	guest := newTestConn()
	joined, err := s.JoinLobby(l.Code, guest.ConnID, guest)
	require.NoError(t, err)
	assert.Same(t, l, joined)
	assert.Equal(t, 2, l.MemberCount())
}

func TestJoinLobbyNotFound(t *testing.T) {
	s := NewStore()
	guest := newTestConn()
	_, err := s.JoinLobby("0000", guest.ConnID, guest)
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestJoinLobbyFull(t *testing.T) {
	s := NewStore()
	host := newTestConn()
	l := s.CreateLobby(host.ConnID, host)

	guest := newTestConn()
	_, err := s.JoinLobby(l.Code, guest.ConnID, guest)
	require.NoError(t, err)

	third := newTestConn()
	_, err = s.JoinLobby(l.Code, third.ConnID, third)
	assert.ErrorIs(t, err, ErrLobbyFull)
	assert.Equal(t, 2, l.MemberCount())
}

func TestLobbyRemovedWhenEmptied(t *testing.T) {
	s := NewStore()
	host := newTestConn()
	guest := newTestConn()
	l := s.CreateLobby(host.ConnID, host)
	_, err := s.JoinLobby(l.Code, guest.ConnID, guest)
	require.NoError(t, err)

	l.RemoveMember(guest.ConnID)
	_, ok := s.Get(l.Code)
	assert.True(t, ok, "lobby with a remaining member must survive")

	l.RemoveMember(host.ConnID)
	_, ok = s.Get(l.Code)
	assert.False(t, ok, "emptied lobby must be unregistered")
	assert.Equal(t, 0, s.Count())
}

func TestEmptyDeleteAbortsWhenRejoined(t *testing.T) {
	s := NewStore()
	host := newTestConn()
	l := s.CreateLobby(host.ConnID, host)
	code := l.Code

	// Capture the store's empty callback and replay it only after a guest
	// has joined, modeling the removal goroutine being paused between
	// emptying the lobby and unregistering the code.
	onEmpty := l.OnEmpty
	l.OnEmpty = nil
	l.RemoveMember(host.ConnID)
	require.Equal(t, 0, l.MemberCount())

	guest := newTestConn()
	_, err := s.JoinLobby(code, guest.ConnID, guest)
	require.NoError(t, err)

	onEmpty(code)

	got, ok := s.Get(code)
	require.True(t, ok, "late empty notification must not unregister an occupied lobby")
	assert.Same(t, l, got)
	assert.Equal(t, 1, l.MemberCount())
}

func TestReclaimStale(t *testing.T) {
	s := NewStore()

	// An empty lobby normally unregisters itself; detach OnEmpty to get one
	// stuck in the registry, the way a missed callback would.
	host := newTestConn()
	stale := s.CreateLobby(host.ConnID, host)
	stale.OnEmpty = nil
	stale.RemoveMember(host.ConnID)
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)

	// A fresh empty lobby inside the retention window stays.
	host2 := newTestConn()
	young := s.CreateLobby(host2.ConnID, host2)
	young.OnEmpty = nil
	young.RemoveMember(host2.ConnID)

	// An old but occupied lobby stays.
	host3 := newTestConn()
	occupied := s.CreateLobby(host3.ConnID, host3)
	occupied.CreatedAt = time.Now().Add(-2 * time.Hour)

	reclaimed := s.ReclaimStale(time.Now(), time.Hour)
	assert.Equal(t, 1, reclaimed)

	_, ok := s.Get(stale.Code)
	assert.False(t, ok)
	_, ok = s.Get(young.Code)
	assert.True(t, ok)
	_, ok = s.Get(occupied.Code)
	assert.True(t, ok)
}
