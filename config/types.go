package config

import "time"

// Config is the full voice-bridge configuration, stored as voice-bridge.json.
type Config struct {
	Server   ServerConfig     `json:"server"`
	STT      STTConfig        `json:"stt"`
	TTS      TTSConfig        `json:"tts"`
	Bridge   BridgeConfig     `json:"bridge"`
	Security SecurityConfig   `json:"security"`
	Latency  LatencyConfig    `json:"latency"`
	Redis    ConnectionConfig `json:"redis"`
	Log      LogConfig        `json:"log"`
}

// ServerConfig holds the websocket and status server settings.
type ServerConfig struct {
	Addr            string   `json:"addr"`
	MaxMessageBytes int64    `json:"max_message_bytes"`
	WriteTimeoutMs  int      `json:"write_timeout_ms"`
	ShutdownGraceMs int      `json:"shutdown_grace_ms"`
	HealthCheckMs   int      `json:"health_check_interval_ms"`
	AllowedOrigins  []string `json:"allowed_origins"`
	// NotifyBusy replies with an error instead of silently dropping
	// messages that arrive while a pipeline is running.
	NotifyBusy bool `json:"notify_busy"`
}

// STTConfig selects and configures speech-to-text backends.
type STTConfig struct {
	Provider string             `json:"provider"`
	Gemini   GeminiConfig       `json:"gemini"`
	Google   GoogleSpeechConfig `json:"google"`
}

// GeminiConfig configures Gemini transcription.
type GeminiConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// GoogleSpeechConfig configures Google Cloud Speech. Credentials come from ADC.
type GoogleSpeechConfig struct {
	Enabled      bool   `json:"enabled"`
	LanguageCode string `json:"language_code"`
}

// TTSConfig selects and configures text-to-speech backends.
type TTSConfig struct {
	Provider string       `json:"provider"`
	Aivis    AivisConfig  `json:"aivis"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// AivisConfig configures the AivisSpeech engine.
type AivisConfig struct {
	URL            string  `json:"url"`
	DefaultSpeaker int     `json:"default_speaker"`
	SpeedScale     float64 `json:"speed_scale"`
	PitchScale     float64 `json:"pitch_scale"`
	SampleRate     int     `json:"sample_rate"`
	TimeoutMs      int     `json:"timeout_ms"`
}

// OpenAIConfig configures OpenAI speech synthesis.
type OpenAIConfig struct {
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	Voice     string `json:"voice"`
	TimeoutMs int    `json:"timeout_ms"`
}

// BridgeConfig holds the relay channel and polling parameters.
type BridgeConfig struct {
	ChannelID      string `json:"channel_id"`
	BotToken       string `json:"bot_token"`
	TimeoutMs      int    `json:"timeout_ms"`
	PollIntervalMs int    `json:"poll_interval_ms"`
	BatchSize      int    `json:"batch_size"`
	// IgnoreOwnMessages skips bot messages posted by the bridge's own account.
	// Leave it off when the agent answers through the same bot token.
	IgnoreOwnMessages bool `json:"ignore_own_messages"`
}

// SecurityConfig holds the optional static API key.
type SecurityConfig struct {
	APIKeyRequired bool   `json:"api_key_required"`
	APIKey         string `json:"api_key"`
}

// LatencyConfig holds round-trip tracking settings.
type LatencyConfig struct {
	WindowSize   int `json:"window_size"`
	MaxLatencyMs int `json:"max_latency_ms"`
}

// ConnectionConfig holds Redis connection details. An empty Addr disables Redis.
type ConnectionConfig struct {
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	// DiscordChannelID mirrors error logs into a Discord channel when set.
	DiscordChannelID string `json:"discord_channel_id"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// WriteTimeout is the per-frame websocket write deadline.
func (c ServerConfig) WriteTimeout() time.Duration { return ms(c.WriteTimeoutMs) }

// ShutdownGrace bounds how long shutdown waits for sessions to drain.
func (c ServerConfig) ShutdownGrace() time.Duration { return ms(c.ShutdownGraceMs) }

// HealthCheckInterval is the upstream health polling interval.
func (c ServerConfig) HealthCheckInterval() time.Duration { return ms(c.HealthCheckMs) }

// Timeout is the bounded wait for a relay reply.
func (c BridgeConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// PollInterval is the delay between relay history fetches.
func (c BridgeConfig) PollInterval() time.Duration { return ms(c.PollIntervalMs) }

// Timeout is the HTTP timeout for Aivis requests.
func (c AivisConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// Timeout is the HTTP timeout for OpenAI requests.
func (c OpenAIConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// MaxLatency is the round-trip budget above which a pipeline is logged as slow.
func (c LatencyConfig) MaxLatency() time.Duration { return ms(c.MaxLatencyMs) }
