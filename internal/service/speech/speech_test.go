package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

func TestLocaleFor(t *testing.T) {
	cases := map[string]string{
		"en":      "en-US",
		"English": "en-US",
		"es":      "es-ES",
		"spanish": "es-ES",
		"Español": "es-ES",
		"french":  "fr-FR",
		"klingon": "en-US",
		"":        "en-US",
	}
	for in, want := range cases {
		if got := LocaleFor(in); got != want {
			t.Fatalf("LocaleFor(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestOpenAIVoiceFor(t *testing.T) {
	if got := OpenAIVoiceFor("en-US-AvaMultilingualNeural", ""); got != openai.VoiceNova {
		t.Fatalf("unexpected voice for Ava: %s", got)
	}
	if got := OpenAIVoiceFor("en-US-AndrewMultilingualNeural", ""); got != openai.VoiceOnyx {
		t.Fatalf("unexpected voice for Andrew: %s", got)
	}
	if got := OpenAIVoiceFor("shimmer", "alloy"); got != openai.VoiceShimmer {
		t.Fatalf("native name should pass through: %s", got)
	}
	if got := OpenAIVoiceFor("xx-YY-UnknownNeural", "fable"); got != openai.VoiceFable {
		t.Fatalf("expected fallback voice, got %s", got)
	}
}

type stubAssessor struct{ calls int }

func (s *stubAssessor) Assess(context.Context, []byte, string, string) *speechmodel.PronunciationAssessment {
	s.calls++
	return &speechmodel.PronunciationAssessment{Accuracy: 90}
}

func TestServiceSkipsConfiguredLanguages(t *testing.T) {
	assessor := &stubAssessor{}
	svc := NewServiceWith(nil, nil, assessor, []string{"es", "Spanish"})

	if svc.Assess(context.Background(), []byte("a"), "hola", "spanish") != nil {
		t.Fatal("spanish should be skipped")
	}
	if svc.Assess(context.Background(), []byte("a"), "hello", "english") == nil {
		t.Fatal("english should be assessed")
	}
	if assessor.calls != 1 {
		t.Fatalf("expected one provider call, got %d", assessor.calls)
	}

	bare := NewServiceWith(nil, nil, nil, nil)
	if bare.ShouldAssess("english") {
		t.Fatal("no assessor means no assessment")
	}
	if _, err := bare.Synthesize(context.Background(), "hi", "v"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := bare.Transcribe(context.Background(), speechmodel.AudioInput{Data: []byte("a")}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

type countingSynth struct{ calls int }

func (s *countingSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	s.calls++
	return []byte(voice + ":" + text), nil
}

type mapCache struct {
	data map[string][]byte
	ttl  time.Duration
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, audio []byte, ttl time.Duration) error {
	m.data[key] = audio
	m.ttl = ttl
	return nil
}

func TestCachedSynthesizer(t *testing.T) {
	inner := &countingSynth{}
	cache := &mapCache{data: map[string][]byte{}}
	synth := NewCachedSynthesizer(inner, cache, time.Hour)

	for i := 0; i < 3; i++ {
		audio, err := synth.Synthesize(context.Background(), "Hello there.", "ava")
		if err != nil {
			t.Fatalf("Synthesize err: %v", err)
		}
		if string(audio) != "ava:Hello there." {
			t.Fatalf("unexpected audio: %s", audio)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", inner.calls)
	}
	if cache.ttl != time.Hour {
		t.Fatalf("ttl not forwarded: %v", cache.ttl)
	}
	if AudioCacheKey("ava", "x") == AudioCacheKey("emma", "x") {
		t.Fatal("cache key must depend on voice")
	}
}

func TestUploadName(t *testing.T) {
	if got := uploadName(""); got != "audio.webm" {
		t.Fatalf("unexpected default name: %s", got)
	}
	if got := uploadName("clip"); got != "clip.webm" {
		t.Fatalf("unexpected name: %s", got)
	}
	if got := uploadName("../x/voice.wav"); got != "voice.wav" {
		t.Fatalf("unexpected name: %s", got)
	}
}
