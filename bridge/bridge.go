// Package bridge relays text to a Discord channel where an agent bot answers,
// and polls the channel for that answer.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	minBatchSize = 10
	maxBatchSize = 100
)

// ErrTimeout is returned when no reply is observed within the wait budget.
var ErrTimeout = errors.New("bridge: timed out waiting for response")

// Error reports a failed call to the relay channel.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("bridge %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// messageAPI is the part of *discordgo.Session the bridge uses.
type messageAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Bridge posts messages to one channel and waits for bot replies to them.
type Bridge struct {
	api          messageAPI
	channelID    string
	timeout      time.Duration
	pollInterval time.Duration
	batchSize    int
	ignoreOwn    bool
	logger       *zap.Logger

	mu     sync.RWMutex
	selfID string
}

// New creates a bridge for cfg.ChannelID. session is usually a *discordgo.Session.
func New(session messageAPI, cfg config.BridgeConfig, logger *zap.Logger) *Bridge {
	batch := cfg.BatchSize
	if batch < minBatchSize {
		batch = minBatchSize
	}
	if batch > maxBatchSize {
		batch = maxBatchSize
	}
	return &Bridge{
		api:          session,
		channelID:    cfg.ChannelID,
		timeout:      cfg.Timeout(),
		pollInterval: cfg.PollInterval(),
		batchSize:    batch,
		ignoreOwn:    cfg.IgnoreOwnMessages,
		logger:       logger.With(zap.String("component", "bridge")),
	}
}

// Send posts text and returns the posted message id, used to correlate the reply.
func (b *Bridge) Send(ctx context.Context, text string) (string, error) {
	msg, err := b.api.ChannelMessageSend(b.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return "", &Error{Op: "send", Err: err}
	}
	if msg == nil || msg.ID == "" {
		return "", &Error{Op: "send", Err: errors.New("no message id in response")}
	}
	if msg.Author != nil {
		b.mu.Lock()
		b.selfID = msg.Author.ID
		b.mu.Unlock()
	}
	b.logger.Debug("message sent", zap.String("message_id", msg.ID))
	return msg.ID, nil
}

// WaitForResponse polls the channel until a bot replies after the message
// with the given id. A non-positive timeout uses the configured default.
func (b *Bridge) WaitForResponse(ctx context.Context, id string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = b.timeout
	}
	deadline := time.Now().Add(timeout)
	polls := 0

	for {
		msgs, err := b.api.ChannelMessages(b.channelID, b.batchSize, "", "", "", discordgo.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &Error{Op: "fetch", Err: err}
		}
		polls++
		if reply, ok := b.findReply(msgs, id); ok {
			b.logger.Debug("response received", zap.String("message_id", id), zap.Int("polls", polls))
			return reply, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			b.logger.Warn("no response before timeout", zap.String("message_id", id), zap.Duration("timeout", timeout))
			return "", ErrTimeout
		}
		wait := b.pollInterval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// findReply scans a newest-first batch. Entries before the correlation
// message's index are newer; they are walked oldest first.
func (b *Bridge) findReply(msgs []*discordgo.Message, id string) (string, bool) {
	idx := -1
	for i, m := range msgs {
		if m != nil && m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}

	b.mu.RLock()
	self := b.selfID
	b.mu.RUnlock()

	for i := idx - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Author == nil || !m.Author.Bot {
			continue
		}
		if b.ignoreOwn && self != "" && m.Author.ID == self {
			continue
		}
		if content := strings.TrimSpace(m.Content); content != "" {
			return content, true
		}
	}
	return "", false
}
