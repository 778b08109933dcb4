package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/EasterCompany/dex-voice-bridge/config"
)

// Aivis synthesizes speech with an AivisSpeech engine. The engine speaks the
// VOICEVOX-compatible API: an audio query is built first, tuned, then synthesized.
type Aivis struct {
	baseURL string
	cfg     config.AivisConfig
	client  *http.Client
}

// NewAivis returns an Aivis backend for the engine at cfg.URL.
func NewAivis(cfg config.AivisConfig) *Aivis {
	return &Aivis{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

// VersionURL is polled by the upstream health checker.
func (a *Aivis) VersionURL() string { return a.baseURL + "/version" }

func (a *Aivis) Synthesize(ctx context.Context, text string, opts Options) (*Audio, error) {
	speaker := opts.Speaker
	if speaker == 0 {
		speaker = a.cfg.DefaultSpeaker
	}
	speed := opts.SpeedScale
	if speed <= 0 {
		speed = a.cfg.SpeedScale
	}
	pitch := opts.PitchScale
	if pitch <= 0 {
		pitch = a.cfg.PitchScale
	}
	speakerParam := strconv.Itoa(speaker)

	q := url.Values{"text": {text}, "speaker": {speakerParam}}
	body, err := a.post(ctx, "/audio_query?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create audio query: %w", err)
	}

	var query map[string]any
	if err := json.Unmarshal(body, &query); err != nil {
		return nil, fmt.Errorf("could not decode audio query: %w", err)
	}
	query["speedScale"] = speed
	query["pitchScale"] = pitch
	query["outputSamplingRate"] = a.cfg.SampleRate

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("could not encode audio query: %w", err)
	}
	wav, err := a.post(ctx, "/synthesis?speaker="+url.QueryEscape(speakerParam), payload)
	if err != nil {
		return nil, fmt.Errorf("could not synthesize speech: %w", err)
	}
	return &Audio{Data: wav, Format: FormatWAV, SampleRate: a.cfg.SampleRate}, nil
}

func (a *Aivis) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aivis returned %d: %s", resp.StatusCode, truncate(body))
	}
	return body, nil
}

func truncate(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
