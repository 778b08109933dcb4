package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/EasterCompany/dex-voice-bridge/config"
)

// ANSI color codes for formatted output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

func main() {
	configPath := flag.String("config", "", "path to voice-bridge.json")
	flag.Parse()

	fmt.Printf("%s--- Voice Bridge Config Verifier ---%s\n", ColorBlue, ColorReset)

	path := *configPath
	if path == "" {
		if env := os.Getenv("VOICE_BRIDGE_CONFIG"); env != "" {
			path = env
		} else {
			p, err := config.DefaultPath()
			if err != nil {
				fmt.Printf("%s[FATAL]%s Could not determine config path: %v\n", ColorRed, ColorReset, err)
				os.Exit(1)
			}
			path = p
		}
	}

	fmt.Printf("\nVerifying %s'%s'%s...\n", ColorBlue, path, ColorReset)
	if !checkFields(path) {
		os.Exit(1)
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("  %s[FAIL]%s %v\n", ColorRed, ColorReset, err)
		os.Exit(1)
	}
	fmt.Printf("  %s[OK]%s Configuration is valid.\n", ColorGreen, ColorReset)

	for _, w := range warnings(cfg) {
		fmt.Printf("  %s[WARN]%s %s\n", ColorYellow, ColorReset, w)
	}

	out, _ := json.MarshalIndent(cfg.Redacted(), "", "  ")
	fmt.Printf("\n%s\n", out)
}

// checkFields rejects unknown keys so typos in the file do not go unnoticed.
func checkFields(path string) bool {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("  %s[WARN]%s File not found, defaults will be written.\n", ColorYellow, ColorReset)
		return true
	}
	if err != nil {
		fmt.Printf("  %s[FAIL]%s File not readable: %v\n", ColorRed, ColorReset, err)
		return false
	}

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config.Config{}); err != nil {
		fmt.Printf("  %s[FAIL]%s JSON is invalid or contains unexpected fields: %v\n", ColorRed, ColorReset, err)
		return false
	}
	fmt.Printf("  %s[OK]%s JSON is valid and all fields are recognized.\n", ColorGreen, ColorReset)
	return true
}

func warnings(cfg *config.Config) []string {
	var out []string
	if cfg.Bridge.BotToken == "" {
		out = append(out, "bridge.bot_token is empty; the service will not start")
	}
	if cfg.Bridge.ChannelID == "" {
		out = append(out, "bridge.channel_id is empty")
	}
	if cfg.STT.Gemini.APIKey == "" && !cfg.STT.Google.Enabled {
		out = append(out, "no stt backend is configured")
	}
	return out
}
