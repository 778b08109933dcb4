package handlers

import "errors"

// Inbound message types.
const (
	TypeAudio  = "audio"
	TypeText   = "text"
	TypeConfig = "config"
)

// Outbound message types.
const (
	TypeConnected     = "connected"
	TypeSTTResult     = "stt_result"
	TypeTTSAudio      = "tts_audio"
	TypeConfigUpdated = "config_updated"
	TypeError         = "error"
)

// ErrMalformedMessage marks a client payload that cannot be processed.
var ErrMalformedMessage = errors.New("malformed message")

// errBusy is reported to clients when notify_busy is enabled.
const errBusy = "busy"

type inbound struct {
	Type        string   `json:"type"`
	AudioData   string   `json:"audioData,omitempty"`
	MimeType    string   `json:"mimeType,omitempty"`
	Text        string   `json:"text,omitempty"`
	TTSProvider string   `json:"ttsProvider,omitempty"`
	STTProvider string   `json:"sttProvider,omitempty"`
	VoiceSpeed  *float64 `json:"voiceSpeed,omitempty"`
}

type connectedMessage struct {
	Type        string `json:"type"`
	ClientID    string `json:"clientId"`
	TTSProvider string `json:"ttsProvider"`
	STTProvider string `json:"sttProvider"`
}

type sttResultMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ttsAudioMessage struct {
	Type      string `json:"type"`
	AudioData string `json:"audioData"`
	Text      string `json:"text"`
}

type configUpdatedMessage struct {
	Type        string  `json:"type"`
	TTSProvider string  `json:"ttsProvider"`
	STTProvider string  `json:"sttProvider"`
	VoiceSpeed  float64 `json:"voiceSpeed"`
}

// ErrorMessage is the outbound failure notice. It is also broadcast on shutdown.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newError(msg string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: msg}
}
