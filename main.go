package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/EasterCompany/dex-voice-bridge/app"
	"github.com/EasterCompany/dex-voice-bridge/config"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to voice-bridge.json (default ~/Dexter/config/voice-bridge.json)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Fatal error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// 2. Build the service
	a, err := app.New(ctx, cfg, Version)
	if err != nil {
		log.Fatalf("Fatal error starting voice bridge: %v", err)
	}

	// 3. Serve until a shutdown signal arrives
	if err := a.Run(ctx); err != nil {
		a.Logger.Sugar().Errorf("voice bridge stopped: %v", err)
		os.Exit(1)
	}
}
