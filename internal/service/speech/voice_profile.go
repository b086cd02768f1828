package speech

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// azureToOpenAIVoice pairs the persona voices with OpenAI voices of similar timbre.
var azureToOpenAIVoice = map[string]openai.SpeechVoice{
	"ava":    openai.VoiceNova,
	"emma":   openai.VoiceShimmer,
	"andrew": openai.VoiceOnyx,
	"brian":  openai.VoiceEcho,
}

var openAIVoices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

// OpenAIVoiceFor resolves a persona voice to an OpenAI voice. Native OpenAI
// names pass through; Azure names like "en-US-AvaMultilingualNeural" are mapped
// by speaker; anything else uses fallback, then nova.
func OpenAIVoiceFor(voice, fallback string) openai.SpeechVoice {
	normalized := strings.ToLower(strings.TrimSpace(voice))
	if v, ok := openAIVoices[normalized]; ok {
		return v
	}

	if speaker := azureSpeaker(normalized); speaker != "" {
		if v, ok := azureToOpenAIVoice[speaker]; ok {
			return v
		}
	}

	if v, ok := openAIVoices[strings.ToLower(strings.TrimSpace(fallback))]; ok {
		return v
	}
	return openai.VoiceNova
}

// azureSpeaker extracts "ava" from "en-us-avamultilingualneural".
func azureSpeaker(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) < 3 {
		return ""
	}
	name := parts[len(parts)-1]
	name = strings.TrimSuffix(name, "neural")
	name = strings.TrimSuffix(name, "multilingual")
	return name
}
