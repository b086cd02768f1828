package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/fluentpal/tutor/backend/internal/config"
	"github.com/fluentpal/tutor/backend/internal/model/persona"
	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
	"github.com/fluentpal/tutor/backend/internal/service/speech"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000000"})

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "test mode: stt, tts or assess")
	audioPath := flag.String("audio", "", "input recording for stt and assess")
	text := flag.String("text", "", "text to synthesize, or the reference text for assess")
	outputPath := flag.String("out", "", "output file for tts (generated when empty)")
	language := flag.String("lang", "english", "language name or code for assess")
	voice := flag.String("voice", "", "voice for tts, defaults to the default persona's voice")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	svc := speech.NewService(cfg.Speech)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "stt":
		runSTT(ctx, svc, *audioPath)
	case "tts":
		runTTS(ctx, svc, *text, *voice, *outputPath)
	case "assess":
		runAssess(ctx, svc, *audioPath, *text, *language)
	default:
		flag.Usage()
		log.Fatal("choose a mode with -mode=stt, -mode=tts or -mode=assess")
	}
}

func readAudio(path string) speechmodel.AudioInput {
	if path == "" {
		log.Fatal("this mode needs -audio")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}
	return speechmodel.AudioInput{Data: data, Filename: filepath.Base(path)}
}

func runSTT(ctx context.Context, svc *speech.Service, audioPath string) {
	audio := readAudio(audioPath)
	log.Printf("transcribing %s (%d bytes)", audio.Filename, len(audio.Data))

	started := time.Now()
	tr, err := svc.Transcribe(ctx, audio)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}
	log.WithFields(log.Fields{
		"language": tr.Language,
		"elapsed":  time.Since(started).Round(time.Millisecond),
	}).Printf("transcript: %q", tr.Text)
}

func runTTS(ctx context.Context, svc *speech.Service, text, voice, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode needs -text")
	}
	if voice == "" {
		if p, ok := persona.NewMemoryStore(persona.Seed()).FindByID(persona.DefaultID); ok {
			voice = p.Voice
		}
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}

	log.Printf("synthesizing with voice=%s", voice)
	audio, err := svc.Synthesize(ctx, text, voice)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}
	log.Printf("wrote %d bytes to %s", len(audio), outputPath)
}

func runAssess(ctx context.Context, svc *speech.Service, audioPath, reference, language string) {
	audio := readAudio(audioPath)
	if strings.TrimSpace(reference) == "" {
		log.Fatal("assess mode needs -text with the reference sentence")
	}
	if !svc.ShouldAssess(language) {
		log.Fatalf("assessment unavailable for %q: Azure not configured or language skipped", language)
	}

	result := svc.Assess(ctx, audio.Data, reference, language)
	if result == nil {
		log.Fatal("assessment returned no result, see warnings above")
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	for _, w := range result.Mispronounced() {
		log.Printf("mispronounced: %s (%.0f, %s)", w.Word, w.Accuracy, w.ErrorType)
	}
}
