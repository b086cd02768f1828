package speech

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// ErrNotConfigured is returned when a provider has no credentials.
var ErrNotConfigured = errors.New("speech provider not configured")

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio speechmodel.AudioInput) (*speechmodel.Transcription, error)
}

// Synthesizer converts text to encoded audio for a voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Assessor scores the pronunciation of audio against a reference text.
// A nil result means the assessment is unavailable; it never returns an error.
type Assessor interface {
	Assess(ctx context.Context, audio []byte, referenceText, language string) *speechmodel.PronunciationAssessment
}

// Service bundles the configured speech providers.
type Service struct {
	transcriber Transcriber
	synthesizer Synthesizer
	assessor    Assessor
	skip        map[string]struct{}
}

// NewService wires provider clients from config. Azure backs synthesis and
// assessment when configured, OpenAI backs transcription and the synthesis fallback.
func NewService(config speechmodel.SpeechConfig) *Service {
	svc := &Service{skip: make(map[string]struct{})}
	for _, lang := range config.SkipAssessmentLanguages {
		svc.skip[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if config.OpenAIEnabled() {
		svc.transcriber = NewWhisperClient(config)
	}

	switch {
	case config.AzureEnabled():
		svc.synthesizer = NewAzureTTSClient(config, newHTTPClient(timeout))
	case config.OpenAIEnabled():
		svc.synthesizer = NewOpenAITTSClient(config)
	}

	if config.AzureEnabled() {
		svc.assessor = NewAzurePronunciationClient(config, newHTTPClient(timeout))
	}

	return svc
}

// NewServiceWith builds a Service from explicit providers. Nil providers are
// treated as unconfigured.
func NewServiceWith(t Transcriber, s Synthesizer, a Assessor, skipLanguages []string) *Service {
	svc := &Service{transcriber: t, synthesizer: s, assessor: a, skip: make(map[string]struct{})}
	for _, lang := range skipLanguages {
		svc.skip[strings.ToLower(strings.TrimSpace(lang))] = struct{}{}
	}
	return svc
}

// WithSynthesizer swaps the synthesizer, e.g. to wrap it in a cache.
func (s *Service) WithSynthesizer(synth Synthesizer) {
	s.synthesizer = synth
}

// Synthesizer exposes the active synthesizer.
func (s *Service) Synthesizer() Synthesizer {
	return s.synthesizer
}

// Transcribe converts audio to text.
func (s *Service) Transcribe(ctx context.Context, audio speechmodel.AudioInput) (*speechmodel.Transcription, error) {
	if s.transcriber == nil {
		return nil, ErrNotConfigured
	}
	return s.transcriber.Transcribe(ctx, audio)
}

// Synthesize converts text to audio.
func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if s.synthesizer == nil {
		return nil, ErrNotConfigured
	}
	return s.synthesizer.Synthesize(ctx, text, voice)
}

// ShouldAssess reports whether pronunciation should be scored for language.
func (s *Service) ShouldAssess(language string) bool {
	if s.assessor == nil {
		return false
	}
	_, skipped := s.skip[strings.ToLower(strings.TrimSpace(language))]
	return !skipped
}

// Assess scores pronunciation, or returns nil when skipped or unavailable.
func (s *Service) Assess(ctx context.Context, audio []byte, referenceText, language string) *speechmodel.PronunciationAssessment {
	if !s.ShouldAssess(language) {
		log.WithField("language", language).Debug("pronunciation assessment skipped")
		return nil
	}
	return s.assessor.Assess(ctx, audio, referenceText, language)
}
