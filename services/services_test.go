package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/latency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticProviders struct {
	current string
	names   []string
}

func (p staticProviders) Current() string { return p.current }
func (p staticProviders) List() []string  { return p.names }

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

type fakePresence struct {
	clients map[string]string
	err     error
}

func (p fakePresence) Clients(context.Context) (map[string]string, error) { return p.clients, p.err }

func newTestStatusServer(t *testing.T, health *HealthChecker, presence PresenceStore) *httptest.Server {
	t.Helper()
	window := latency.NewWindow(latency.DefaultSize)
	window.Push(1200 * time.Millisecond)
	window.Push(1801 * time.Millisecond)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_events_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	ss := NewStatusServer(StatusDeps{
		Version:  "1.2.3",
		STT:      staticProviders{current: "gemini", names: []string{"gemini", "google"}},
		TTS:      staticProviders{current: "aivis", names: []string{"aivis", "openai"}},
		Sessions: fixedCount(3),
		Latency:  window,
		Health:   health,
		Gatherer: reg,
		Presence: presence,
	}, zap.NewNop())
	mux := http.NewServeMux()
	ss.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestStatusServer(t, nil, nil)

	body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, map[string]any{"status": "ok", "ttsProvider": "aivis", "sttProvider": "gemini"}, body)
}

func TestStatusEndpoint(t *testing.T) {
	health := NewHealthChecker(time.Minute, zap.NewNop())
	health.RegisterService("aivis", "http://127.0.0.1:1/version")
	srv := newTestStatusServer(t, health, nil)

	body := getJSON(t, srv.URL+"/status")
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, "1.2.3", body["version"])

	metrics := body["metrics"].(map[string]any)
	assert.Equal(t, 3.0, metrics["sessions"])
	assert.Equal(t, 1501.0, metrics["latency_avg_ms"])
	assert.Equal(t, 2.0, metrics["latency_samples"])

	providers := body["providers"].(map[string]any)
	assert.Equal(t, "aivis", providers["tts"].(map[string]any)["current"])
	assert.Equal(t, []any{"gemini", "google"}, providers["stt"].(map[string]any)["registered"])

	services := body["services"].(map[string]any)
	assert.Equal(t, StatusUnknown, services["aivis"].(map[string]any)["status"])
	assert.NotContains(t, body, "presence")
}

func TestStatusEndpoint_Presence(t *testing.T) {
	srv := newTestStatusServer(t, nil, fakePresence{clients: map[string]string{
		"client_1": "2026-01-01T00:00:00Z",
		"client_2": "2026-01-01T00:00:01Z",
	}})
	body := getJSON(t, srv.URL+"/status")
	assert.Equal(t, map[string]any{"clients": 2.0}, body["presence"])

	srv = newTestStatusServer(t, nil, fakePresence{err: errors.New("connection refused")})
	body = getJSON(t, srv.URL+"/status")
	assert.Equal(t, map[string]any{"error": "connection refused"}, body["presence"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestStatusServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_events_total 1")
}

func TestHealthChecker(t *testing.T) {
	aivis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"1.1.0"`))
	}))
	defer aivis.Close()
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","version":"2.0.0"}`))
	}))
	defer service.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	hc := NewHealthChecker(time.Minute, zap.NewNop())
	hc.RegisterService("aivis", aivis.URL+"/version")
	hc.RegisterService("service", service.URL)
	hc.RegisterService("broken", broken.URL)
	assert.Equal(t, StatusUnknown, hc.GetServiceStatus("aivis").Status)

	hc.CheckAll(context.Background())

	got := hc.GetServiceStatus("aivis")
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "1.1.0", got.Version)
	assert.Equal(t, "2.0.0", hc.GetServiceStatus("service").Version)

	bad := hc.GetServiceStatus("broken")
	assert.Equal(t, StatusBad, bad.Status)
	assert.Contains(t, bad.Error, "503")

	assert.Nil(t, hc.GetServiceStatus("missing"))
	assert.Len(t, hc.GetAllServices(), 3)
}

func TestHealthChecker_RunStopsOnCancel(t *testing.T) {
	hc := NewHealthChecker(10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
