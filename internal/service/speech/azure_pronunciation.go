package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// AzurePronunciationClient scores pronunciation with the Azure short-audio
// recognition endpoint.
type AzurePronunciationClient struct {
	httpClient *http.Client
	endpoint   string
	key        string
	ffmpegPath string
}

// NewAzurePronunciationClient builds a client for the configured region.
func NewAzurePronunciationClient(cfg speechmodel.SpeechConfig, httpClient *http.Client) *AzurePronunciationClient {
	return &AzurePronunciationClient{
		httpClient: httpClient,
		endpoint: fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1",
			strings.TrimSpace(cfg.AzureRegion)),
		key:        strings.TrimSpace(cfg.AzureKey),
		ffmpegPath: cfg.FFmpegPath,
	}
}

type assessmentParams struct {
	ReferenceText string `json:"ReferenceText"`
	GradingSystem string `json:"GradingSystem"`
	Granularity   string `json:"Granularity"`
	EnableMiscue  bool   `json:"EnableMiscue"`
}

type azureScores struct {
	AccuracyScore     float64 `json:"AccuracyScore"`
	FluencyScore      float64 `json:"FluencyScore"`
	CompletenessScore float64 `json:"CompletenessScore"`
	PronScore         float64 `json:"PronScore"`
	ErrorType         string  `json:"ErrorType"`
}

type azureWord struct {
	Word string `json:"Word"`
	azureScores
	PronunciationAssessment *azureScores `json:"PronunciationAssessment"`
}

type azureNBest struct {
	Display string `json:"Display"`
	azureScores
	PronunciationAssessment *azureScores `json:"PronunciationAssessment"`
	Words                   []azureWord  `json:"Words"`
}

type azureRecognition struct {
	RecognitionStatus string       `json:"RecognitionStatus"`
	DisplayText       string       `json:"DisplayText"`
	NBest             []azureNBest `json:"NBest"`
}

// Assess returns nil when unconfigured, on any provider failure, or when no
// speech was recognized.
func (c *AzurePronunciationClient) Assess(ctx context.Context, audio []byte, referenceText, language string) *speechmodel.PronunciationAssessment {
	logger := log.WithField("component", "pronunciation")
	if c.key == "" || len(audio) == 0 {
		return nil
	}

	result, err := c.assess(ctx, audio, referenceText, LocaleFor(language))
	if err != nil {
		logger.WithError(err).Warn("pronunciation assessment failed")
		return nil
	}
	if result == nil {
		logger.Info("pronunciation assessment: no speech recognized")
	}
	return result
}

func (c *AzurePronunciationClient) assess(ctx context.Context, audio []byte, referenceText, locale string) (*speechmodel.PronunciationAssessment, error) {
	params, err := json.Marshal(assessmentParams{
		ReferenceText: referenceText,
		GradingSystem: "HundredMark",
		Granularity:   "Phoneme",
		EnableMiscue:  true,
	})
	if err != nil {
		return nil, err
	}

	wav := NormalizeWAV(ctx, audio, c.ffmpegPath)

	q := url.Values{}
	q.Set("language", locale)
	q.Set("format", "detailed")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), bytes.NewReader(wav))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(params))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseRecognition(body)
}

// parseRecognition converts a detailed recognition payload. Scores may be flat on
// the NBest entry or nested under PronunciationAssessment depending on API version.
func parseRecognition(body []byte) (*speechmodel.PronunciationAssessment, error) {
	var rec azureRecognition
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode recognition: %w", err)
	}
	if rec.RecognitionStatus != "Success" || len(rec.NBest) == 0 {
		return nil, nil
	}

	best := rec.NBest[0]
	scores := best.azureScores
	if best.PronunciationAssessment != nil {
		scores = *best.PronunciationAssessment
	}

	out := &speechmodel.PronunciationAssessment{
		Overall:        scores.PronScore,
		Accuracy:       scores.AccuracyScore,
		Fluency:        scores.FluencyScore,
		Completeness:   scores.CompletenessScore,
		RecognizedText: rec.DisplayText,
		Words:          make([]speechmodel.WordScore, 0, len(best.Words)),
	}
	if out.RecognizedText == "" {
		out.RecognizedText = best.Display
	}

	for _, w := range best.Words {
		ws := w.azureScores
		if w.PronunciationAssessment != nil {
			ws = *w.PronunciationAssessment
		}
		errType := ws.ErrorType
		if errType == "" {
			errType = "None"
		}
		out.Words = append(out.Words, speechmodel.WordScore{
			Word:      w.Word,
			Accuracy:  ws.AccuracyScore,
			ErrorType: errType,
		})
	}
	return out, nil
}
