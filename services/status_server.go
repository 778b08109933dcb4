package services

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/latency"
	"github.com/EasterCompany/dex-voice-bridge/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServiceName is reported by /status.
const ServiceName = "dex-voice-bridge"

// Providers is a provider registry as seen by the status endpoints.
type Providers interface {
	Current() string
	List() []string
}

// SessionCounter reports live client sessions.
type SessionCounter interface {
	Count() int
}

// PresenceStore lists the clients mirrored to the shared cache.
type PresenceStore interface {
	Clients(ctx context.Context) (map[string]string, error)
}

// StatusDeps are the sources /health and /status report on.
type StatusDeps struct {
	Version  string
	STT      Providers
	TTS      Providers
	Sessions SessionCounter
	Latency  *latency.Window
	Health   *HealthChecker
	Gatherer prometheus.Gatherer
	// Presence is optional; nil when no cache is configured.
	Presence PresenceStore
}

// StatusServer serves the health, status and metrics endpoints.
type StatusServer struct {
	startTime time.Time
	deps      StatusDeps
	logger    *zap.Logger
}

// NewStatusServer creates a new status server
func NewStatusServer(deps StatusDeps, logger *zap.Logger) *StatusServer {
	return &StatusServer{
		startTime: time.Now(),
		deps:      deps,
		logger:    logger.With(zap.String("component", "status")),
	}
}

// Register mounts the endpoints on mux.
func (ss *StatusServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", ss.handleHealth)
	mux.HandleFunc("/status", ss.handleStatus)
	if ss.deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(ss.deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	TTSProvider string `json:"ttsProvider"`
	STTProvider string `json:"sttProvider"`
}

// handleHealth returns a simple health check (for load balancers)
func (ss *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ss.writeJSON(w, healthResponse{
		Status:      "ok",
		TTSProvider: ss.deps.TTS.Current(),
		STTProvider: ss.deps.STT.Current(),
	})
}

type providerStatus struct {
	Current    string   `json:"current"`
	Registered []string `json:"registered"`
}

// handleStatus returns detailed service status
func (ss *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	metrics := map[string]interface{}{
		"sessions":        ss.deps.Sessions.Count(),
		"latency_avg_ms":  ss.deps.Latency.Average(),
		"latency_samples": ss.deps.Latency.Len(),
		"goroutines":      runtime.NumGoroutine(),
		"memory_alloc_mb": float64(m.Alloc) / 1024 / 1024,
		"memory_sys_mb":   float64(m.Sys) / 1024 / 1024,
		"gc_runs":         m.NumGC,
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if stats, err := system.Snapshot(ctx); err == nil {
		metrics["host"] = stats
	} else {
		ss.logger.Debug("host stats unavailable", zap.Error(err))
	}

	status := map[string]interface{}{
		"service":   ServiceName,
		"status":    "operational",
		"version":   ss.deps.Version,
		"uptime":    time.Since(ss.startTime).Round(time.Second).String(),
		"timestamp": time.Now().Format(time.RFC3339),
		"providers": map[string]providerStatus{
			"stt": {Current: ss.deps.STT.Current(), Registered: ss.deps.STT.List()},
			"tts": {Current: ss.deps.TTS.Current(), Registered: ss.deps.TTS.List()},
		},
		"metrics": metrics,
	}
	if ss.deps.Health != nil {
		status["services"] = ss.deps.Health.GetAllServices()
	}
	if ss.deps.Presence != nil {
		pctx, pcancel := context.WithTimeout(r.Context(), time.Second)
		defer pcancel()
		if clients, err := ss.deps.Presence.Clients(pctx); err == nil {
			status["presence"] = map[string]interface{}{"clients": len(clients)}
		} else {
			ss.logger.Warn("presence cache unavailable", zap.Error(err))
			status["presence"] = map[string]interface{}{"error": err.Error()}
		}
	}

	ss.writeJSON(w, status)
}

func (ss *StatusServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ss.logger.Warn("could not encode response", zap.Error(err))
	}
}
