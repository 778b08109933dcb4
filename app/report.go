package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/EasterCompany/dex-voice-bridge/system"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// announce posts a start-up summary to the log channel, if one is configured.
func (a *App) announce(ctx context.Context) {
	channelID := a.Config.Log.DiscordChannelID
	if channelID == "" {
		return
	}
	if _, err := a.Session.ChannelMessageSend(channelID, a.startupReport(ctx), discordgo.WithContext(ctx)); err != nil {
		a.Logger.Warn("could not post startup report", zap.Error(err))
	}
}

func (a *App) startupReport(ctx context.Context) string {
	cacheStatus := "disabled"
	if a.Cache != nil {
		cacheStatus = "OK"
		if err := a.Cache.Ping(ctx); err != nil {
			cacheStatus = "BAD"
		}
	}

	lines := []string{
		fmt.Sprintf("**Voice bridge `%s` is online**", a.Version),
		fmt.Sprintf("🌐 Listening on `%s`", a.Config.Server.Addr),
		fmt.Sprintf("🎙️ STT: `%s` (%s)", a.STT.Current(), strings.Join(a.STT.List(), ", ")),
		fmt.Sprintf("🔊 TTS: `%s` (%s)", a.TTS.Current(), strings.Join(a.TTS.List(), ", ")),
		fmt.Sprintf("🗄️ Presence cache: %s", cacheStatus),
	}
	if stats, err := system.Snapshot(ctx); err == nil {
		lines = append(lines,
			fmt.Sprintf("💻 CPU: `%.2f%%`", stats.CPUPercent),
			fmt.Sprintf("🧠 Memory: `%.2f%%`", stats.MemoryPercent),
		)
	}
	return strings.Join(lines, "\n")
}
