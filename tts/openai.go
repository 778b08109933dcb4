package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/EasterCompany/dex-voice-bridge/config"
)

// openAIPCMRate is the fixed sample rate of OpenAI's pcm response format.
const openAIPCMRate = 24000

// OpenAI synthesizes speech with the OpenAI audio/speech endpoint. Audio comes
// back as raw PCM so callers can wrap it without transcoding.
type OpenAI struct {
	baseURL string
	cfg     config.OpenAIConfig
	client  *http.Client
}

// NewOpenAI returns an OpenAI backend.
func NewOpenAI(cfg config.OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	return &OpenAI{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

func (o *OpenAI) Synthesize(ctx context.Context, text string, opts Options) (*Audio, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          o.cfg.Model,
		Input:          text,
		Voice:          o.cfg.Voice,
		ResponseFormat: FormatPCM,
		Speed:          opts.SpeedScale,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("could not create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not call openai: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai returned %d: %s", resp.StatusCode, truncate(body))
	}
	return &Audio{Data: body, Format: FormatPCM, SampleRate: openAIPCMRate}, nil
}
