package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ConfigFileName is the file looked up in ~/Dexter/config.
const ConfigFileName = "voice-bridge.json"

// userHomeDir is swapped out in tests.
var userHomeDir = os.UserHomeDir

// expandPath resolves paths like "~/" to the user's home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := userHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// DefaultPath returns ~/Dexter/config/voice-bridge.json.
func DefaultPath() (string, error) {
	return expandPath(filepath.Join("~/Dexter/config", ConfigFileName))
}

// Load reads the config file at path (the default path when empty), writing
// a default file first if none exists, then applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOICE_BRIDGE_CONFIG")
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not decode config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefault(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("could not write default config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables on top of the file contents.
func applyEnv(cfg *Config) error {
	if port := os.Getenv("WS_PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	setString(&cfg.STT.Provider, "STT_PROVIDER")
	setString(&cfg.STT.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.STT.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.STT.Google.LanguageCode, "GOOGLE_SPEECH_LANGUAGE")

	setString(&cfg.TTS.Provider, "TTS_PROVIDER")
	setString(&cfg.TTS.Aivis.URL, "AIVIS_SPEECH_URL")
	setString(&cfg.TTS.OpenAI.APIKey, "OPENAI_API_KEY")

	setString(&cfg.Bridge.ChannelID, "XANGI_DISCORD_CHANNEL_ID")
	setString(&cfg.Bridge.BotToken, "XANGI_DISCORD_BOT_TOKEN")

	setString(&cfg.Security.APIKey, "API_KEY")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.DiscordChannelID, "LOG_DISCORD_CHANNEL_ID")

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.TTS.Aivis.DefaultSpeaker, "AIVIS_DEFAULT_SPEAKER"},
		{&cfg.Bridge.TimeoutMs, "BRIDGE_TIMEOUT_MS"},
		{&cfg.Bridge.PollIntervalMs, "BRIDGE_POLL_INTERVAL_MS"},
		{&cfg.Bridge.BatchSize, "BRIDGE_BATCH_SIZE"},
		{&cfg.Latency.MaxLatencyMs, "MAX_LATENCY_MS"},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("API_KEY_REQUIRED"); v != "" {
		cfg.Security.APIKeyRequired = v == "true"
	}
	if v := os.Getenv("GOOGLE_SPEECH_ENABLED"); v != "" {
		cfg.STT.Google.Enabled = v == "true"
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", key, err)
	}
	*dst = n
	return nil
}
