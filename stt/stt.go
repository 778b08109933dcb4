// Package stt turns recorded audio into text through a set of switchable backends.
package stt

import (
	"context"
	"strings"

	"github.com/EasterCompany/dex-voice-bridge/provider"
	"go.uber.org/zap"
)

// Transcriber is implemented by every speech-to-text backend.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts Options) (string, error)
}

// Options tune a single transcription. Zero values fall back to backend defaults.
type Options struct {
	// Provider selects a backend by name. Empty means the current default.
	Provider string
	MimeType string
	Language string
}

// Manager routes transcription requests to a registered backend.
type Manager struct {
	registry *provider.Registry[Transcriber]
	logger   *zap.Logger
}

// NewManager returns a manager with no backends registered.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		registry: provider.NewRegistry[Transcriber]("stt"),
		logger:   logger.With(zap.String("component", "stt")),
	}
}

// Register adds or replaces a backend. The first one registered becomes the default.
func (m *Manager) Register(name string, t Transcriber) {
	m.registry.Register(name, t)
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

// Transcribe runs audio through the selected backend and returns the trimmed transcript.
func (m *Manager) Transcribe(ctx context.Context, audio []byte, opts Options) (string, error) {
	text, err := provider.Invoke(m.registry, opts.Provider, func(t Transcriber) (string, error) {
		return t.Transcribe(ctx, audio, opts)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
