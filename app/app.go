// Package app wires the voice bridge together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/bridge"
	"github.com/EasterCompany/dex-voice-bridge/cache"
	"github.com/EasterCompany/dex-voice-bridge/clients"
	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/EasterCompany/dex-voice-bridge/handlers"
	"github.com/EasterCompany/dex-voice-bridge/latency"
	logger "github.com/EasterCompany/dex-voice-bridge/log"
	"github.com/EasterCompany/dex-voice-bridge/metrics"
	"github.com/EasterCompany/dex-voice-bridge/services"
	"github.com/EasterCompany/dex-voice-bridge/session"
	"github.com/EasterCompany/dex-voice-bridge/stt"
	"github.com/EasterCompany/dex-voice-bridge/tts"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const metricsNamespace = "voice_bridge"

type App struct {
	Config  *config.Config
	Version string
	Logger  *zap.Logger
	Session *discordgo.Session
	Cache   *cache.DB
	STT     *stt.Manager
	TTS     *tts.Manager
	Clients *clients.Registry
	Handler *handlers.Handler
	Health  *services.HealthChecker
	Server  *http.Server

	closers []func() error
}

// New builds every component from cfg. Optional backends that fail to start
// are logged and left out; missing required pieces are errors.
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	s, err := session.NewSession(cfg.Bridge.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	log, err := logger.New(cfg.Log, s)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}

	a := &App{Config: cfg, Version: version, Logger: log, Session: s}

	a.STT = stt.NewManager(log)
	if err := a.registerSTT(ctx); err != nil {
		return nil, err
	}
	a.TTS = tts.NewManager(log)
	aivis := a.registerTTS()

	var presence clients.Presence
	db, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		log.Warn("presence cache unavailable", zap.Error(err))
	} else if db != nil {
		if err := db.Reset(ctx); err != nil {
			log.Warn("could not reset presence cache", zap.Error(err))
		}
		a.Cache = db
		a.closers = append(a.closers, db.Close)
		presence = db
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(metricsNamespace, reg)
	window := latency.NewWindow(cfg.Latency.WindowSize)

	a.Clients = clients.NewRegistry(presence, log)
	a.Handler = handlers.New(
		a.STT, a.TTS,
		bridge.New(s, cfg.Bridge, log),
		a.Clients, window, collector,
		handlers.Options{
			BridgeTimeout: cfg.Bridge.Timeout(),
			NotifyBusy:    cfg.Server.NotifyBusy,
			MaxLatency:    cfg.Latency.MaxLatency(),
			// Sessions start at the engine's configured speed so config_updated
			// reports what synthesis actually uses.
			DefaultVoiceSpeed: cfg.TTS.Aivis.SpeedScale,
		},
		log,
	)

	a.Health = services.NewHealthChecker(cfg.Server.HealthCheckInterval(), log)
	a.Health.RegisterService("aivis", aivis.VersionURL())

	mux := http.NewServeMux()
	mux.Handle("/ws", handlers.NewWebSocket(a.Handler, cfg.Server, cfg.Security, log))
	deps := services.StatusDeps{
		Version:  version,
		STT:      a.STT,
		TTS:      a.TTS,
		Sessions: a.Clients,
		Latency:  window,
		Health:   a.Health,
		Gatherer: reg,
	}
	if a.Cache != nil {
		deps.Presence = a.Cache
	}
	services.NewStatusServer(deps, log).Register(mux)

	a.Server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) registerSTT(ctx context.Context) error {
	cfg := a.Config.STT
	if cfg.Gemini.APIKey != "" {
		gemini, err := stt.NewGemini(ctx, cfg.Gemini)
		if err != nil {
			return fmt.Errorf("could not initialize gemini stt: %w", err)
		}
		a.STT.Register("gemini", gemini)
	}
	if cfg.Google.Enabled {
		google, err := stt.NewGoogleSpeech(ctx, cfg.Google.LanguageCode)
		if err != nil {
			a.Logger.Error("Failed to initialize Google speech client", zap.Error(err))
		} else {
			a.STT.Register("google", google)
			a.closers = append(a.closers, google.Close)
		}
	}
	if len(a.STT.List()) == 0 {
		a.Logger.Warn("no stt provider available, audio messages will fail")
	}
	a.selectDefault("stt", cfg.Provider, a.STT.Has, a.STT.SetCurrent)
	return nil
}

func (a *App) registerTTS() *tts.Aivis {
	cfg := a.Config.TTS
	aivis := tts.NewAivis(cfg.Aivis)
	a.TTS.Register("aivis", aivis)
	if cfg.OpenAI.APIKey != "" {
		openai, err := tts.NewOpenAI(cfg.OpenAI)
		if err != nil {
			a.Logger.Error("Failed to initialize OpenAI tts", zap.Error(err))
		} else {
			a.TTS.Register("openai", openai)
		}
	}
	a.selectDefault("tts", cfg.Provider, a.TTS.Has, a.TTS.SetCurrent)
	return aivis
}

func (a *App) selectDefault(kind, name string, has func(string) bool, set func(string) error) {
	if name == "" {
		return
	}
	if !has(name) {
		a.Logger.Warn("configured provider is not available", zap.String("kind", kind), zap.String("provider", name))
		return
	}
	if err := set(name); err != nil {
		a.Logger.Warn("could not select provider", zap.String("kind", kind), zap.Error(err))
	}
}

// Run serves until ctx is cancelled, then drains sessions within the
// configured grace period.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("voice bridge listening", zap.String("addr", a.Config.Server.Addr), zap.String("version", a.Version))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not serve on %s: %w", a.Config.Server.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Health.Run(gctx)
	})
	g.Go(func() error {
		a.announce(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownGrace())
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("http shutdown incomplete", zap.Error(err))
		}
		if err := a.Handler.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("sessions did not drain in time", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close releases backend clients.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.Logger.Sync()
}
