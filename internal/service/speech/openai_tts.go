package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// OpenAITTSClient synthesizes mp3 audio with the OpenAI speech endpoint.
type OpenAITTSClient struct {
	client       *openai.Client
	model        string
	defaultVoice string
}

// NewOpenAITTSClient builds the fallback synthesizer.
func NewOpenAITTSClient(cfg speechmodel.SpeechConfig) *OpenAITTSClient {
	return &OpenAITTSClient{
		client:       newOpenAIClient(cfg),
		model:        cfg.TTSModel,
		defaultVoice: cfg.TTSVoice,
	}
}

// Synthesize returns mp3 bytes. Azure voice names are mapped to the closest
// OpenAI voice.
func (c *OpenAITTSClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("openai tts: empty text")
	}

	model := openai.SpeechModel(c.model)
	if model == "" {
		model = openai.TTSModel1
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          model,
		Input:          text,
		Voice:          OpenAIVoiceFor(voice, c.defaultVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("openai tts read: %w", err)
	}
	return audio, nil
}
