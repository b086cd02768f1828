package speech

// SpeechConfig holds provider credentials and tuning for the speech adapters.
// It is built once at startup and handed to each adapter.
type SpeechConfig struct {
	// OpenAI (Whisper transcription, TTS fallback)
	OpenAIKey     string `json:"-"`
	OpenAIBaseURL string `json:"openaiBaseUrl,omitempty"`
	WhisperModel  string `json:"whisperModel"`
	TTSModel      string `json:"ttsModel"`
	TTSVoice      string `json:"ttsVoice"` // OpenAI voice used when the persona voice is an Azure name

	// Azure (neural TTS, pronunciation assessment)
	AzureKey          string `json:"-"`
	AzureRegion       string `json:"azureRegion"`
	AzureOutputFormat string `json:"azureOutputFormat"`

	// Languages for which pronunciation assessment is skipped (lower-case).
	SkipAssessmentLanguages []string `json:"skipAssessmentLanguages"`

	FFmpegPath string `json:"ffmpegPath,omitempty"`
	Timeout    int    `json:"timeout"` // seconds
}

// AzureEnabled reports whether Azure credentials are present.
func (c SpeechConfig) AzureEnabled() bool {
	return c.AzureKey != "" && c.AzureRegion != ""
}

// OpenAIEnabled reports whether an OpenAI key is present.
func (c SpeechConfig) OpenAIEnabled() bool {
	return c.OpenAIKey != ""
}
