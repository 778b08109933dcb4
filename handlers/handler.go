// Package handlers runs the per-connection voice pipelines and serves the
// websocket endpoint clients connect to.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/EasterCompany/dex-voice-bridge/bridge"
	"github.com/EasterCompany/dex-voice-bridge/clients"
	"github.com/EasterCompany/dex-voice-bridge/codec"
	"github.com/EasterCompany/dex-voice-bridge/interfaces"
	"github.com/EasterCompany/dex-voice-bridge/latency"
	"github.com/EasterCompany/dex-voice-bridge/metrics"
	"github.com/EasterCompany/dex-voice-bridge/provider"
	"github.com/EasterCompany/dex-voice-bridge/stt"
	"github.com/EasterCompany/dex-voice-bridge/tts"
	"go.uber.org/zap"
)

// minTranscriptLength is the shortest transcript treated as speech.
const minTranscriptLength = 2

// Options configure a Handler.
type Options struct {
	BridgeTimeout time.Duration
	// NotifyBusy replies with an error instead of silently dropping
	// messages that arrive while a pipeline runs.
	NotifyBusy bool
	// MaxLatency logs a warning for pipelines slower than this. Zero disables it.
	MaxLatency time.Duration
	// DefaultVoiceSpeed seeds every new session. Zero leaves the TTS default.
	DefaultVoiceSpeed float64
}

// Handler dispatches client messages and runs their pipelines.
type Handler struct {
	stt     interfaces.SpeechToText
	tts     interfaces.TextToSpeech
	bridge  interfaces.Bridge
	clients *clients.Registry
	latency *latency.Window
	metrics *metrics.Collector
	opts    Options
	logger  *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// New returns a Handler. Pipelines run under an internal context that
// Close cancels.
func New(
	sttManager interfaces.SpeechToText,
	ttsManager interfaces.TextToSpeech,
	relay interfaces.Bridge,
	registry *clients.Registry,
	window *latency.Window,
	collector *metrics.Collector,
	opts Options,
	logger *zap.Logger,
) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		stt:     sttManager,
		tts:     ttsManager,
		bridge:  relay,
		clients: registry,
		latency: window,
		metrics: collector,
		opts:    opts,
		logger:  logger.With(zap.String("component", "handler")),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect registers a new session on conn and greets the client.
func (h *Handler) Connect(conn Conn) *Session {
	s := newSession(conn, h.opts.DefaultVoiceSpeed)
	s.unregister = h.clients.Register(s.ID, clients.Handle{Send: s.Send, Close: s.Close})
	h.metrics.SessionOpened()

	h.send(s, connectedMessage{
		Type:        TypeConnected,
		ClientID:    s.ID,
		TTSProvider: h.tts.Current(),
		STTProvider: h.stt.Current(),
	})
	return s
}

// Disconnect removes the session. A running pipeline finishes, but its
// output is discarded.
func (h *Handler) Disconnect(s *Session) {
	s.Close()
	if s.unregister != nil {
		s.unregister()
	}
	h.metrics.SessionClosed()
}

// Message handles one raw client frame. Audio and text pipelines run in the
// background; Message never blocks on them.
func (h *Handler) Message(s *Session, raw []byte) {
	if s.Busy() {
		h.dropBusy(s, "")
		return
	}

	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("dropping malformed message", zap.String("client_id", s.ID), zap.Error(err))
		h.metrics.Message("", metrics.OutcomeMalformed)
		return
	}

	switch msg.Type {
	case TypeAudio, TypeText:
		if !s.busy.CompareAndSwap(false, true) {
			h.dropBusy(s, msg.Type)
			return
		}
		h.metrics.Message(msg.Type, metrics.OutcomeHandled)
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			defer s.busy.Store(false)
			if msg.Type == TypeAudio {
				h.runAudio(s, msg)
			} else {
				h.runText(s, msg)
			}
		}()
	case TypeConfig:
		if err := h.applyConfig(s, msg); err != nil {
			h.logger.Warn("config rejected", zap.String("client_id", s.ID), zap.Error(err))
			h.metrics.Message(msg.Type, metrics.OutcomeRejected)
			h.send(s, newError(err.Error()))
			return
		}
		h.metrics.Message(msg.Type, metrics.OutcomeHandled)
	default:
		h.logger.Warn("unknown message type", zap.String("client_id", s.ID), zap.String("type", msg.Type))
		h.metrics.Message(msg.Type, metrics.OutcomeUnknown)
	}
}

func (h *Handler) dropBusy(s *Session, msgType string) {
	h.logger.Debug("session busy, dropping message", zap.String("client_id", s.ID), zap.String("type", msgType))
	h.metrics.Message(msgType, metrics.OutcomeBusy)
	if h.opts.NotifyBusy {
		h.send(s, newError(errBusy))
	}
}

func (h *Handler) runAudio(s *Session, msg inbound) {
	start := time.Now()
	audio, err := codec.Decode(msg.AudioData)
	if err == nil && len(audio) == 0 {
		err = errors.New("empty audio payload")
	}
	if err != nil {
		h.fail(s, "decode", fmt.Errorf("%w: %v", ErrMalformedMessage, err))
		return
	}

	text, err := h.stt.Transcribe(h.ctx, audio, stt.Options{MimeType: msg.MimeType})
	if err != nil {
		h.fail(s, "stt", err)
		return
	}
	if utf8.RuneCountInString(text) < minTranscriptLength {
		h.logger.Debug("no speech detected", zap.String("client_id", s.ID))
		h.send(s, sttResultMessage{Type: TypeSTTResult, Text: ""})
		return
	}
	h.logger.Info("transcribed", zap.String("client_id", s.ID), zap.String("text", text))
	h.send(s, sttResultMessage{Type: TypeSTTResult, Text: text})

	h.respond(s, TypeAudio, text, start)
}

func (h *Handler) runText(s *Session, msg inbound) {
	start := time.Now()
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.fail(s, "decode", fmt.Errorf("%w: text is empty", ErrMalformedMessage))
		return
	}
	h.respond(s, TypeText, text, start)
}

// respond relays text to the agent, voices the reply and sends it.
func (h *Handler) respond(s *Session, kind, text string, start time.Time) {
	id, err := h.bridge.Send(h.ctx, text)
	if err != nil {
		h.fail(s, "bridge", err)
		return
	}
	reply, err := h.bridge.WaitForResponse(h.ctx, id, h.opts.BridgeTimeout)
	if err != nil {
		h.fail(s, "bridge", err)
		return
	}

	audio, err := h.tts.Synthesize(h.ctx, reply, tts.Options{SpeedScale: s.VoiceSpeed()})
	if err != nil {
		h.fail(s, "tts", err)
		return
	}
	data := audio.Data
	if audio.Format == tts.FormatPCM && !codec.IsWAV(data) {
		data = codec.WrapPCM(data, audio.SampleRate)
	}

	h.send(s, ttsAudioMessage{Type: TypeTTSAudio, AudioData: codec.Encode(data), Text: reply})

	elapsed := time.Since(start)
	h.latency.Push(elapsed)
	h.metrics.PipelineCompleted(kind, elapsed)
	fields := []zap.Field{
		zap.String("client_id", s.ID),
		zap.Duration("elapsed", elapsed),
		zap.Int64("avg_ms", h.latency.Average()),
	}
	if h.opts.MaxLatency > 0 && elapsed > h.opts.MaxLatency {
		h.logger.Warn("pipeline over latency target", fields...)
	} else {
		h.logger.Info("pipeline completed", fields...)
	}
}

// applyConfig validates every requested change before applying any of them.
func (h *Handler) applyConfig(s *Session, msg inbound) error {
	if msg.TTSProvider != "" && !h.tts.Has(msg.TTSProvider) {
		return fmt.Errorf("unknown tts provider %q: %w", msg.TTSProvider, provider.ErrProviderNotFound)
	}
	if msg.STTProvider != "" && !h.stt.Has(msg.STTProvider) {
		return fmt.Errorf("unknown stt provider %q: %w", msg.STTProvider, provider.ErrProviderNotFound)
	}
	if msg.VoiceSpeed != nil && *msg.VoiceSpeed <= 0 {
		return fmt.Errorf("%w: voiceSpeed must be positive", ErrMalformedMessage)
	}

	if msg.TTSProvider != "" {
		if err := h.tts.SetCurrent(msg.TTSProvider); err != nil {
			return err
		}
		h.metrics.ProviderSwitched("tts", msg.TTSProvider)
	}
	if msg.STTProvider != "" {
		if err := h.stt.SetCurrent(msg.STTProvider); err != nil {
			return err
		}
		h.metrics.ProviderSwitched("stt", msg.STTProvider)
	}
	if msg.VoiceSpeed != nil {
		s.setVoiceSpeed(*msg.VoiceSpeed)
	}

	h.send(s, configUpdatedMessage{
		Type:        TypeConfigUpdated,
		TTSProvider: h.tts.Current(),
		STTProvider: h.stt.Current(),
		VoiceSpeed:  s.VoiceSpeed(),
	})
	return nil
}

// fail reports a stage failure to the session that caused it. The client is
// told first; logging may be slower.
func (h *Handler) fail(s *Session, stage string, err error) {
	h.send(s, newError(err.Error()))
	fields := []zap.Field{zap.String("client_id", s.ID), zap.String("stage", stage), zap.Error(err)}
	var callErr *provider.CallError
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Info("pipeline cancelled", fields...)
	case errors.Is(err, bridge.ErrTimeout), errors.Is(err, ErrMalformedMessage), errors.Is(err, provider.ErrProviderNotFound):
		h.logger.Warn("pipeline failed", fields...)
	case errors.As(err, &callErr):
		h.logger.Error("provider call failed", append(fields, zap.String("provider", callErr.Provider))...)
	default:
		h.logger.Error("pipeline failed", fields...)
	}
	h.metrics.PipelineFailed(stage)
}

func (h *Handler) send(s *Session, v any) {
	if err := s.Send(v); err != nil {
		h.logger.Debug("send skipped", zap.String("client_id", s.ID), zap.Error(err))
	}
}

// Close waits for running pipelines to finish. Pipelines still running when
// ctx ends are cancelled.
func (h *Handler) Close(ctx context.Context) error {
	defer h.cancel()
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until no pipeline is running.
func (h *Handler) Wait() { h.inflight.Wait() }

// Shutdown tells every client the server is going away, waits for running
// pipelines until ctx ends, then closes the remaining connections.
func (h *Handler) Shutdown(ctx context.Context) error {
	notified := h.clients.Broadcast(newError("server shutting down"))
	h.logger.Info("shutting down sessions", zap.Int("notified", notified))

	err := h.Close(ctx)
	h.clients.CloseAll()
	if !h.clients.Wait(ctx) && err == nil {
		err = ctx.Err()
	}
	return err
}
