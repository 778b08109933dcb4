// Package tts turns reply text into audio through a set of switchable backends.
package tts

import (
	"context"

	"github.com/EasterCompany/dex-voice-bridge/provider"
	"go.uber.org/zap"
)

// Audio formats a Synthesizer may return.
const (
	FormatWAV = "wav"
	FormatPCM = "pcm"
)

// Synthesizer is implemented by every text-to-speech backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts Options) (*Audio, error)
}

// Options tune a single synthesis. Zero values fall back to backend defaults.
type Options struct {
	// Provider selects a backend by name. Empty means the current default.
	Provider   string
	Speaker    int
	SpeedScale float64
	PitchScale float64
}

// Audio is synthesized speech. PCM data is mono 16-bit little-endian at SampleRate.
type Audio struct {
	Data       []byte
	Format     string
	SampleRate int
}

// Manager routes synthesis requests to a registered backend.
type Manager struct {
	registry *provider.Registry[Synthesizer]
	logger   *zap.Logger
}

// NewManager returns a manager with no backends registered.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		registry: provider.NewRegistry[Synthesizer]("tts"),
		logger:   logger.With(zap.String("component", "tts")),
	}
}

// Register adds or replaces a backend. The first one registered becomes the default.
func (m *Manager) Register(name string, s Synthesizer) {
	m.registry.Register(name, s)
	m.logger.Info("registered provider", zap.String("provider", name))
}

// SetCurrent switches the default backend.
func (m *Manager) SetCurrent(name string) error {
	if err := m.registry.SetCurrent(name); err != nil {
		return err
	}
	m.logger.Info("switched provider", zap.String("provider", name))
	return nil
}

func (m *Manager) Current() string      { return m.registry.Current() }
func (m *Manager) Has(name string) bool { return m.registry.Has(name) }
func (m *Manager) List() []string       { return m.registry.List() }

// Synthesize renders text with the selected backend.
func (m *Manager) Synthesize(ctx context.Context, text string, opts Options) (*Audio, error) {
	return provider.Invoke(m.registry, opts.Provider, func(s Synthesizer) (*Audio, error) {
		return s.Synthesize(ctx, text, opts)
	})
}
