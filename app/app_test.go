package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownGraceMs = 500
	cfg.Bridge.BotToken = "test-token"
	cfg.Bridge.ChannelID = "123"
	cfg.TTS.OpenAI.APIKey = "sk-test"
	cfg.TTS.Provider = "openai"
	cfg.Log.Level = "error"
	return cfg
}

func TestNew_WiresProviders(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), "test")
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"aivis", "openai"}, a.TTS.List())
	assert.Equal(t, "openai", a.TTS.Current())
	assert.Empty(t, a.STT.List())
	assert.Nil(t, a.Cache)

	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "openai", body["ttsProvider"])

	rec = httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNew_RequiresBotToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.BotToken = ""
	_, err := New(context.Background(), cfg, "test")
	assert.Error(t, err)
}

func TestNew_UnknownDefaultProviderKeepsFirst(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTS.Provider = "elevenlabs"
	a, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "aivis", a.TTS.Current())
}

func TestNew_PresenceCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	mr.HSet("dex-voice-bridge:clients", "client_stale", "2020-01-01T00:00:00Z")

	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	a, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Cache)
	assert.False(t, mr.Exists("dex-voice-bridge:clients"))
	assert.Contains(t, a.startupReport(context.Background()), "Presence cache: OK")

	mr.HSet("dex-voice-bridge:clients", "client_live", "2026-01-01T00:00:00Z")
	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, map[string]any{"clients": 1.0}, status["presence"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNew_ConfigUpdatedReportsEffectiveSpeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.TTS.Aivis.SpeedScale = 1.2
	a, err := New(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.Server.Handler)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "config", "ttsProvider": "aivis"}))
	var updated map[string]any
	require.NoError(t, conn.ReadJSON(&updated))
	assert.Equal(t, "config_updated", updated["type"])
	assert.Equal(t, "aivis", updated["ttsProvider"])
	assert.InDelta(t, 1.2, updated["voiceSpeed"], 1e-9)
}
