package speech

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// WhisperClient transcribes audio with the OpenAI audio API.
type WhisperClient struct {
	client *openai.Client
	model  string
}

// NewWhisperClient builds a client from the OpenAI section of config.
func NewWhisperClient(cfg speechmodel.SpeechConfig) *WhisperClient {
	return &WhisperClient{client: newOpenAIClient(cfg), model: cfg.WhisperModel}
}

func newOpenAIClient(cfg speechmodel.SpeechConfig) *openai.Client {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(oc)
}

// Transcribe sends the recording to Whisper and returns the text plus the
// detected language. An empty transcript is reported as an error.
func (c *WhisperClient) Transcribe(ctx context.Context, audio speechmodel.AudioInput) (*speechmodel.Transcription, error) {
	if audio.Empty() {
		return nil, fmt.Errorf("whisper: empty audio")
	}

	model := c.model
	if model == "" {
		model = openai.Whisper1
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       model,
		Reader:      bytes.NewReader(audio.Data),
		FilePath:    uploadName(audio.Filename),
		Format:      openai.AudioResponseFormatVerboseJSON,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("whisper transcription: no speech recognized")
	}

	return &speechmodel.Transcription{Text: text, Language: resp.Language}, nil
}

// uploadName makes sure the multipart file name carries an extension, which
// the API uses to sniff the container.
func uploadName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return "audio.webm"
	}
	if filepath.Ext(name) == "" {
		return name + ".webm"
	}
	return name
}
