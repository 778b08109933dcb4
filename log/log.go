// Package log builds the service logger. Error entries can be mirrored into a
// Discord channel so operators see failures where the bridge lives.
package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxDiscordLength keeps mirrored entries under Discord's 2000 character limit.
const maxDiscordLength = 1900

// ChannelPoster is the part of *discordgo.Session used to mirror logs.
type ChannelPoster interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// New returns a logger configured from cfg. If poster is non-nil and
// cfg.DiscordChannelID is set, error-level entries are also posted there.
func New(cfg config.LogConfig, poster ChannelPoster) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("could not parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	if poster != nil && cfg.DiscordChannelID != "" {
		mirror := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(newDiscordWriter(poster, cfg.DiscordChannelID)),
			zapcore.ErrorLevel,
		)
		core = zapcore.NewTee(core, mirror)
	}

	return zap.New(core, zap.AddCaller()), nil
}

// discordWriter queues log entries and posts them to a Discord channel from
// its own goroutine, so a slow Discord API never stalls the logging caller.
// Entries are dropped when the queue is full.
type discordWriter struct {
	poster    ChannelPoster
	channelID string
	queue     chan discordEntry
}

type discordEntry struct {
	msg   string
	flush chan struct{}
}

const (
	discordQueueSize   = 64
	discordSyncTimeout = 5 * time.Second
)

func newDiscordWriter(poster ChannelPoster, channelID string) *discordWriter {
	w := &discordWriter{
		poster:    poster,
		channelID: channelID,
		queue:     make(chan discordEntry, discordQueueSize),
	}
	go w.run()
	return w
}

func (w *discordWriter) run() {
	for e := range w.queue {
		if e.flush != nil {
			close(e.flush)
			continue
		}
		// A failed post must never fail the log call itself.
		_, _ = w.poster.ChannelMessageSend(w.channelID, "```\n"+e.msg+"\n```")
	}
}

func (w *discordWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if len(msg) > maxDiscordLength {
		msg = msg[:maxDiscordLength] + "..."
	}
	select {
	case w.queue <- discordEntry{msg: msg}:
	default:
	}
	return len(p), nil
}

// Sync waits until every queued entry has been posted, up to discordSyncTimeout.
func (w *discordWriter) Sync() error {
	flush := make(chan struct{})
	timeout := time.NewTimer(discordSyncTimeout)
	defer timeout.Stop()
	select {
	case w.queue <- discordEntry{flush: flush}:
	case <-timeout.C:
		return nil
	}
	select {
	case <-flush:
	case <-timeout.C:
	}
	return nil
}
