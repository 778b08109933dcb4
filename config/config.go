// Package config loads the voice-bridge configuration.
package config

import (
	"fmt"
	"strings"
)

const defaultGeminiPrompt = "この音声を日本語で文字起こししてください。音声の内容だけを返してください。"

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3001",
			MaxMessageBytes: 16 << 20,
			WriteTimeoutMs:  5000,
			ShutdownGraceMs: 10000,
			HealthCheckMs:   30000,
		},
		STT: STTConfig{
			Provider: "gemini",
			Gemini: GeminiConfig{
				Model:  "gemini-2.0-flash",
				Prompt: defaultGeminiPrompt,
			},
			Google: GoogleSpeechConfig{LanguageCode: "ja-JP"},
		},
		TTS: TTSConfig{
			Provider: "aivis",
			Aivis: AivisConfig{
				URL:            "http://localhost:10101",
				DefaultSpeaker: 488039072,
				SpeedScale:     1.2,
				PitchScale:     1.0,
				SampleRate:     24000,
				TimeoutMs:      60000,
			},
			OpenAI: OpenAIConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o-mini-tts",
				Voice:     "alloy",
				TimeoutMs: 60000,
			},
		},
		Bridge: BridgeConfig{
			TimeoutMs:      30000,
			PollIntervalMs: 1000,
			BatchSize:      10,
		},
		Latency: LatencyConfig{
			WindowSize:   10,
			MaxLatencyMs: 2000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Server.Addr) == "" {
		issues = append(issues, "server.addr is required")
	}
	if c.Server.MaxMessageBytes <= 0 {
		issues = append(issues, "server.max_message_bytes must be > 0")
	}
	if c.Server.WriteTimeoutMs <= 0 || c.Server.ShutdownGraceMs <= 0 || c.Server.HealthCheckMs <= 0 {
		issues = append(issues, "server timeouts must be > 0")
	}
	if c.Bridge.TimeoutMs <= 0 {
		issues = append(issues, "bridge.timeout_ms must be > 0")
	}
	if c.Bridge.PollIntervalMs <= 0 {
		issues = append(issues, "bridge.poll_interval_ms must be > 0")
	}
	if c.Bridge.BatchSize < 10 || c.Bridge.BatchSize > 100 {
		issues = append(issues, "bridge.batch_size must be between 10 and 100")
	}
	if c.TTS.Aivis.SpeedScale <= 0 {
		issues = append(issues, "tts.aivis.speed_scale must be > 0")
	}
	if c.TTS.Aivis.SampleRate <= 0 {
		issues = append(issues, "tts.aivis.sample_rate must be > 0")
	}
	if c.Latency.WindowSize <= 0 {
		issues = append(issues, "latency.window_size must be > 0")
	}
	if c.Security.APIKeyRequired && c.Security.APIKey == "" {
		issues = append(issues, "security.api_key is required when api_key_required is set")
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(issues, "; "))
	}
	return nil
}

// Redacted returns a copy with secrets masked, for printing.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.STT.Gemini.APIKey = mask(c.STT.Gemini.APIKey)
	out.TTS.OpenAI.APIKey = mask(c.TTS.OpenAI.APIKey)
	out.Bridge.BotToken = mask(c.Bridge.BotToken)
	out.Security.APIKey = mask(c.Security.APIKey)
	out.Redis.Password = mask(c.Redis.Password)
	return &out
}
