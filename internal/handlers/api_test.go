// internal/handlers/api_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastlinkr/fighting-game-server/internal/lobby"
)

func newTestRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/stats", s.StatsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/lobbies/{code}", s.LobbyHandler()).Methods(http.MethodGet)
	return r
}

func TestStatsEmpty(t *testing.T) {
	s := newTestServer()
	r := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Connections)
	assert.Equal(t, 0, resp.Lobbies)
	assert.Empty(t, resp.LobbyList)
}

func TestStatsReflectsLobbies(t *testing.T) {
	s := newTestServer()
	r := newTestRouter(s)

	x := connect(s)
	y := connect(s)
	s.handleEvent(x, map[string]interface{}{"type": "create_lobby"})
	code := recv(t, x)["code"].(string)
	s.handleEvent(y, map[string]interface{}{"type": "join_lobby", "code": code})
	recv(t, y)
	recv(t, x)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Connections)
	assert.Equal(t, 1, resp.Lobbies)
	require.Len(t, resp.LobbyList, 1)
	assert.Equal(t, code, resp.LobbyList[0].Code)
	assert.Equal(t, 2, resp.LobbyList[0].PlayerCount)
	assert.Equal(t, string(lobby.StateWaiting), resp.LobbyList[0].State)
	assert.False(t, resp.LobbyList[0].CreatedAt.IsZero())
}

func TestFetchLobbyByCode(t *testing.T) {
	s := newTestServer()
	r := newTestRouter(s)

	x := connect(s)
	s.handleEvent(x, map[string]interface{}{"type": "create_lobby"})
	code := recv(t, x)["code"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/lobbies/"+code, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var view lobby.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, code, view.Code)
	assert.Equal(t, 1, view.PlayerCount)
	assert.Equal(t, lobby.StateWaiting, view.State)
}

func TestFetchLobbyNotFound(t *testing.T) {
	s := newTestServer()
	r := newTestRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/api/lobbies/0000", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "lobby not found", body["error"])
}
