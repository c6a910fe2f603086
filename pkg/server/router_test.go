package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
)

func newTestHost(t *testing.T, gameDir string) *host.Context {
	t.Helper()

	hc, err := host.NewContext("1.0.0", nil)
	require.NoError(t, err)

	require.NoError(t, hc.RegisterGame(game.GameDescriptor{
		ID:            "testgame",
		Name:          "Test Game",
		RequiredFiles: []string{"game.exe"},
		QueryPath: func(context.Context) (game.DiscoveryResult, error) {
			return game.DiscoveryResult{Path: gameDir}, nil
		},
		Setup: func(_ context.Context, discovery game.DiscoveryResult) error {
			return os.MkdirAll(filepath.Join(discovery.Path, "mods"), 0o755)
		},
	}))

	require.NoError(t, hc.RegisterInstaller("paks", 10,
		func(files []string, gameID string) game.SupportResult {
			supported := gameID == "testgame"
			return game.SupportResult{Supported: supported, RequiredFiles: []string{}}
		},
		func(files []string) ([]game.InstallInstruction, error) {
			result := []game.InstallInstruction{}
			for _, file := range files {
				result = append(result, game.InstallInstruction{Type: game.InstructionCopy, Source: file, Destination: "mods/" + file})
			}
			return result, nil
		},
	))

	return hc
}

func do(t *testing.T, handler http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, url, &payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGames(t *testing.T) {
	handler := NewRouter(newTestHost(t, t.TempDir()), api.CtxParams{}, nil)

	rec := do(t, handler, http.MethodGet, "/games", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var games []game.GameDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &games))
	require.Len(t, games, 1)
	assert.Equal(t, "testgame", games[0].ID)

	rec = do(t, handler, http.MethodGet, "/games/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscoverAndSetup(t *testing.T) {
	gameDir := t.TempDir()
	handler := NewRouter(newTestHost(t, gameDir), api.CtxParams{}, nil)

	rec := do(t, handler, http.MethodPost, "/games/testgame/discover", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "game.exe is still missing")

	require.NoError(t, os.WriteFile(filepath.Join(gameDir, "game.exe"), nil, 0o644))
	rec = do(t, handler, http.MethodPost, "/games/testgame/discover", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result game.DiscoveryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, gameDir, result.Path)

	rec = do(t, handler, http.MethodPost, "/games/testgame/setup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info, err := os.Stat(filepath.Join(gameDir, "mods"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestTestAndInstall(t *testing.T) {
	handler := NewRouter(newTestHost(t, t.TempDir()), api.CtxParams{}, nil)

	rec := do(t, handler, http.MethodPost, "/installers/test", testRequest{Files: []string{"a.pak"}, GameID: "testgame"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tested testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tested))
	assert.True(t, tested.Supported)
	assert.Equal(t, "paks", tested.Installer)

	rec = do(t, handler, http.MethodPost, "/installers/test", testRequest{Files: []string{"a.pak"}, GameID: "other"})
	require.Equal(t, http.StatusOK, rec.Code)
	tested = testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tested))
	assert.False(t, tested.Supported)
	assert.Empty(t, tested.Installer)

	rec = do(t, handler, http.MethodPost, "/installers/paks/install", installRequest{Files: []string{"a.pak"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var installed installResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &installed))
	assert.Equal(t, []game.InstallInstruction{{Type: "copy", Source: "a.pak", Destination: "mods/a.pak"}}, installed.Instructions)

	rec = do(t, handler, http.MethodPost, "/installers/missing/install", installRequest{Files: []string{"a.pak"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/installers/test", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogStream(t *testing.T) {
	hub := NewLogHub()
	var forwarded int32
	handler := NewRouter(newTestHost(t, t.TempDir()), api.CtxParams{
		LogCallback: func(api.LogLevel, string, ...interface{}) { atomic.AddInt32(&forwarded, 1) },
	}, hub)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	// unknown games are logged as errors
	resp, err := http.Get(srv.URL + "/games/unknown")
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg LogMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Level)
	assert.Contains(t, msg.Message, "/games/unknown")
	assert.Equal(t, int32(1), atomic.LoadInt32(&forwarded))
}

func TestLogStreamDropsStalledClient(t *testing.T) {
	oldWait := writeWait
	writeWait = 50 * time.Millisecond
	t.Cleanup(func() { writeWait = oldWait })

	hub := NewLogHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	// this client never reads so the socket buffers eventually fill up
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	msg := LogMessage{Level: "info", Message: strings.Repeat("x", 256*1024), Time: time.Now()}
	deadline := time.Now().Add(10 * time.Second)
	for hub.Clients() > 0 {
		require.True(t, time.Now().Before(deadline), "stalled client was never dropped")
		hub.Broadcast(msg)
	}
}
