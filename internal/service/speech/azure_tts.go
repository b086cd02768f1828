package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

const defaultAzureVoice = "en-US-AvaMultilingualNeural"

// AzureTTSClient synthesizes speech through the Azure neural TTS REST endpoint.
type AzureTTSClient struct {
	httpClient *http.Client
	endpoint   string
	key        string
	format     string
}

// NewAzureTTSClient builds a client for the configured region.
func NewAzureTTSClient(cfg speechmodel.SpeechConfig, httpClient *http.Client) *AzureTTSClient {
	format := cfg.AzureOutputFormat
	if format == "" {
		format = "audio-24khz-48kbitrate-mono-mp3"
	}
	return &AzureTTSClient{
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", strings.TrimSpace(cfg.AzureRegion)),
		key:        strings.TrimSpace(cfg.AzureKey),
		format:     format,
	}
}

// Synthesize posts an SSML document and returns the encoded audio.
func (c *AzureTTSClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("azure tts: empty text")
	}
	if c.key == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(voice) == "" {
		voice = defaultAzureVoice
	}

	ssml, err := buildSSML(text, voice)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("azure tts request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "fluentpal-tutor")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure tts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure tts read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azure tts: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("azure tts: empty audio")
	}
	return body, nil
}

// buildSSML wraps text in a speak/voice document. The locale is taken from the
// voice name prefix.
func buildSSML(text, voice string) (string, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return "", fmt.Errorf("azure tts escape: %w", err)
	}
	var voiceAttr bytes.Buffer
	if err := xml.EscapeText(&voiceAttr, []byte(voice)); err != nil {
		return "", fmt.Errorf("azure tts escape: %w", err)
	}

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		voiceLocale(voice), voiceAttr.String(), escaped.String(),
	), nil
}

func voiceLocale(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) >= 3 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
