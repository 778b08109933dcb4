package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	gax "github.com/googleapis/gax-go/v2"
)

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeech transcribes audio with the Cloud Speech-to-Text synchronous API.
type GoogleSpeech struct {
	client   recognizer
	language string
}

// NewGoogleSpeech creates a Google Cloud Speech client.
// It relies on Application Default Credentials for authentication.
func NewGoogleSpeech(ctx context.Context, language string) (*GoogleSpeech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSpeech{client: client, language: language}, nil
}

// Close cleans up the speech client connection.
func (g *GoogleSpeech) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, opts Options) (string, error) {
	language := opts.Language
	if language == "" {
		language = g.language
	}
	recCfg := &speechpb.RecognitionConfig{
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	// WEBM_OPUS and OGG_OPUS carry their own sample rate; WAV headers are read by the API.
	switch mime := strings.ToLower(opts.MimeType); {
	case strings.Contains(mime, "ogg"):
		recCfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		recCfg.SampleRateHertz = 48000
	case strings.Contains(mime, "wav"):
		recCfg.Encoding = speechpb.RecognitionConfig_LINEAR16
	default:
		recCfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		recCfg.SampleRateHertz = 48000
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recCfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return "", fmt.Errorf("could not recognize audio: %w", err)
	}

	var sb strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		sb.WriteString(alts[0].GetTranscript())
	}
	return sb.String(), nil
}
