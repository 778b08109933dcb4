package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"google.golang.org/genai"
)

const defaultMimeType = "audio/webm"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini transcribes audio by sending it inline to a Gemini model with a
// transcription prompt.
type Gemini struct {
	models contentGenerator
	model  string
	prompt string
}

// NewGemini creates a Gemini backend using the Gemini API key in cfg.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentGenerator, cfg config.GeminiConfig) *Gemini {
	return &Gemini{models: models, model: cfg.Model, prompt: cfg.Prompt}
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, opts Options) (string, error) {
	mime := opts.MimeType
	if mime == "" {
		mime = defaultMimeType
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, mime),
			genai.NewPartFromText(g.prompt),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("could not generate transcript: %w", err)
	}
	if resp == nil {
		return "", errors.New("empty response from gemini")
	}
	return resp.Text(), nil
}
