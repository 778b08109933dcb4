package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/EasterCompany/dex-voice-bridge/provider"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubTranscriber struct {
	text  string
	err   error
	calls int
	last  Options
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, opts Options) (string, error) {
	s.calls++
	s.last = opts
	return s.text, s.err
}

func TestManager_DefaultAndExplicit(t *testing.T) {
	m := NewManager(zap.NewNop())
	gem := &stubTranscriber{text: "  こんにちは \n"}
	goog := &stubTranscriber{text: "hello"}
	m.Register("gemini", gem)
	m.Register("google", goog)

	assert.Equal(t, "gemini", m.Current())
	assert.Equal(t, []string{"gemini", "google"}, m.List())

	text, err := m.Transcribe(context.Background(), []byte("a"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", text)

	text, err = m.Transcribe(context.Background(), []byte("a"), Options{Provider: "google", MimeType: "audio/wav"})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "audio/wav", goog.last.MimeType)
	assert.Equal(t, 1, gem.calls)
}

func TestManager_SetCurrent(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register("gemini", &stubTranscriber{})
	m.Register("google", &stubTranscriber{})

	require.NoError(t, m.SetCurrent("google"))
	assert.Equal(t, "google", m.Current())

	err := m.SetCurrent("whisper")
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
	assert.Equal(t, "google", m.Current())
}

func TestManager_Errors(t *testing.T) {
	m := NewManager(zap.NewNop())

	_, err := m.Transcribe(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)

	backendErr := errors.New("quota exceeded")
	m.Register("gemini", &stubTranscriber{err: backendErr})
	_, err = m.Transcribe(context.Background(), nil, Options{})
	var callErr *provider.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "gemini", callErr.Provider)
	assert.ErrorIs(t, err, backendErr)

	_, err = m.Transcribe(context.Background(), nil, Options{Provider: "missing"})
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func TestGemini_Transcribe(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("今日はいい天気")}
	g := newGemini(gen, config.GeminiConfig{Model: "gemini-2.0-flash", Prompt: "transcribe"})

	text, err := g.Transcribe(context.Background(), []byte{1, 2, 3}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "今日はいい天気", text)
	assert.Equal(t, "gemini-2.0-flash", gen.model)

	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, defaultMimeType, parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, parts[0].InlineData.Data)
	assert.Equal(t, "transcribe", parts[1].Text)
}

func TestGemini_Errors(t *testing.T) {
	g := newGemini(&fakeGenerator{err: errors.New("boom")}, config.GeminiConfig{})
	_, err := g.Transcribe(context.Background(), nil, Options{MimeType: "audio/ogg"})
	assert.ErrorContains(t, err, "could not generate transcript")

	g = newGemini(&fakeGenerator{}, config.GeminiConfig{})
	_, err = g.Transcribe(context.Background(), nil, Options{})
	assert.Error(t, err)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.GeminiConfig{})
	assert.Error(t, err)
}

type fakeRecognizer struct {
	req  *speechpb.RecognizeRequest
	resp *speechpb.RecognizeResponse
	err  error
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechpb.RecognizeRequest, _ ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func TestGoogleSpeech_Transcribe(t *testing.T) {
	rec := &fakeRecognizer{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hello "}}},
			{},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "world"}, {Transcript: "word"}}},
		},
	}}
	g := &GoogleSpeech{client: rec, language: "ja-JP"}

	text, err := g.Transcribe(context.Background(), []byte("ogg"), Options{MimeType: "audio/ogg;codecs=opus"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, speechpb.RecognitionConfig_OGG_OPUS, rec.req.Config.Encoding)
	assert.Equal(t, "ja-JP", rec.req.Config.LanguageCode)
	assert.Equal(t, []byte("ogg"), rec.req.Audio.GetContent())

	_, err = g.Transcribe(context.Background(), nil, Options{MimeType: "audio/wav", Language: "en-US"})
	require.NoError(t, err)
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, rec.req.Config.Encoding)
	assert.Equal(t, "en-US", rec.req.Config.LanguageCode)

	_, err = g.Transcribe(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, speechpb.RecognitionConfig_WEBM_OPUS, rec.req.Config.Encoding)
}

func TestGoogleSpeech_Error(t *testing.T) {
	g := &GoogleSpeech{client: &fakeRecognizer{err: errors.New("unauthenticated")}}
	_, err := g.Transcribe(context.Background(), nil, Options{})
	assert.ErrorContains(t, err, "could not recognize audio")
}
