package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/internal/protocol"
	"github.com/sharetube/jam/internal/service/room"
	"github.com/sharetube/jam/pkg/trackinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *AppConfig {
	return &AppConfig{
		Host:       "127.0.0.1",
		Port:       8080,
		LogLevel:   "debug",
		QueueLimit: 100,

		PlayLagTolerance:        room.DefaultPlayLagTolerance,
		HeartbeatDeadband:       room.DefaultHeartbeatDeadband,
		HeartbeatRogueThreshold: room.DefaultHeartbeatRogueThreshold,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.QueueLimit = -1
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.HeartbeatDeadband = 3
	cfg.HeartbeatRogueThreshold = 2
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.RoomIdleTTL = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestNewLoggerKeepsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":"v"`)
}

type testServer struct {
	*httptest.Server
}

func startServer(t *testing.T, d deps) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := build(testConfig(), d, logger)
	srv := httptest.NewServer(a.handler)
	t.Cleanup(srv.Close)

	return &testServer{srv}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/api/v1/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, msgType string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == msgType {
			return msg.Payload
		}
	}
}

func TestEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Looked Up","author_name":"Band","thumbnail_url":"https://img.test/x.jpg"}`))
	}))
	t.Cleanup(oembed.Close)

	trackCfg := trackinfo.DefaultConfig()
	trackCfg.OEmbedURL = oembed.URL
	srv := startServer(t, deps{redis: rc, resolver: trackinfo.New(trackCfg)})

	alice := srv.dial(t)
	bob := srv.dial(t)

	require.NoError(t, alice.WriteJSON(protocol.Message[protocol.JoinPayload]{
		Type:    protocol.TypeJoin,
		Payload: protocol.JoinPayload{RoomKey: "den", DisplayName: "alice"},
	}))
	readType(t, alice, protocol.TypeSnapshot)

	require.NoError(t, bob.WriteJSON(protocol.Message[protocol.JoinPayload]{
		Type:    protocol.TypeJoin,
		Payload: protocol.JoinPayload{RoomKey: "den", DisplayName: "bob"},
	}))
	readType(t, bob, protocol.TypeSnapshot)

	require.NoError(t, alice.WriteJSON(protocol.Message[protocol.TrackPayload]{
		Type:    protocol.TypeChangeTrack,
		Payload: protocol.TrackPayload{Track: protocol.Track{ID: "x"}},
	}))

	var snapshot domain.Snapshot
	require.NoError(t, json.Unmarshal(readType(t, bob, protocol.TypeSnapshot), &snapshot))
	require.NotNil(t, snapshot.CurrentTrack)
	assert.Equal(t, "Looked Up", snapshot.CurrentTrack.Title)

	require.NoError(t, alice.WriteJSON(protocol.Message[protocol.VideoActionPayload]{
		Type:    protocol.TypeVideoAction,
		Payload: protocol.VideoActionPayload{Kind: "play", Value: 0},
	}))

	var event domain.Event
	require.NoError(t, json.Unmarshal(readType(t, bob, protocol.TypeVideoAction), &event))
	assert.Equal(t, domain.EventPlay, event.Kind)

	// likes go through redis
	resp, err := http.Post(srv.URL+"/api/v1/users/bob/likes/", "application/json",
		strings.NewReader(`{"track":{"id":"x"},"action":"add"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, mr.Exists("user:bob:likes"))

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "jam_video_actions_total")
}

func TestOptionalBackendsDisabled(t *testing.T) {
	srv := startServer(t, deps{})

	likesResp, err := http.Get(srv.URL + "/api/v1/users/bob/likes/")
	require.NoError(t, err)
	likesResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, likesResp.StatusCode)

	trackResp, err := http.Get(srv.URL + "/api/v1/tracks/x")
	require.NoError(t, err)
	trackResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, trackResp.StatusCode)

	roomsResp, err := http.Get(srv.URL + "/api/v1/rooms/")
	require.NoError(t, err)
	roomsResp.Body.Close()
	assert.Equal(t, http.StatusOK, roomsResp.StatusCode)
}

func TestJanitorStopsWithContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	cfg.RoomIdleTTL = time.Minute
	a := build(cfg, deps{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.runJanitor(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
