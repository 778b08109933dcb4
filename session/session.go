package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// restTimeout bounds each Discord REST call.
const restTimeout = 15 * time.Second

// NewSession creates a Discord session for a bot token. Only the REST API is
// used, so the gateway is never opened.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord bot token is not set")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	session.Client = &http.Client{Timeout: restTimeout}
	return session, nil
}
