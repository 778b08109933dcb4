// Package interfaces declares the capabilities the session handler depends on.
package interfaces

import (
	"context"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/stt"
	"github.com/EasterCompany/dex-voice-bridge/tts"
)

// SpeechToText is the interface for the speech-to-text subsystem
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, opts stt.Options) (string, error)
	SetCurrent(name string) error
	Current() string
	Has(name string) bool
	List() []string
}

// TextToSpeech is the interface for the text-to-speech subsystem
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, opts tts.Options) (*tts.Audio, error)
	SetCurrent(name string) error
	Current() string
	Has(name string) bool
	List() []string
}

// Bridge relays text to the agent and waits for its reply
type Bridge interface {
	Send(ctx context.Context, text string) (string, error)
	WaitForResponse(ctx context.Context, id string, timeout time.Duration) (string, error)
}
