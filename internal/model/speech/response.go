package speech

import "strings"

// MispronouncedThreshold is the accuracy below which a word counts as mispronounced.
const MispronouncedThreshold = 60

// Transcription is the speech-to-text result.
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"` // short code or full name, as reported by the provider
}

// WordScore is the per-word pronunciation result.
type WordScore struct {
	Word      string  `json:"word"`
	Accuracy  float64 `json:"accuracy"`
	ErrorType string  `json:"error_type"`
}

// Mispronounced reports whether the word should be flagged. Either a low accuracy
// or any error classification other than "none" is enough.
func (w WordScore) Mispronounced() bool {
	if w.Accuracy < MispronouncedThreshold {
		return true
	}
	et := strings.ToLower(strings.TrimSpace(w.ErrorType))
	return et != "" && et != "none"
}

// PronunciationAssessment is transient per-turn scoring data. Scores are 0..100.
type PronunciationAssessment struct {
	Overall        float64     `json:"pronunciation_score"`
	Accuracy       float64     `json:"accuracy"`
	Fluency        float64     `json:"fluency"`
	Completeness   float64     `json:"completeness"`
	RecognizedText string      `json:"recognized_text"`
	Words          []WordScore `json:"words"`
}

// Mispronounced returns the flagged words in utterance order.
func (a *PronunciationAssessment) Mispronounced() []WordScore {
	if a == nil {
		return nil
	}
	out := make([]WordScore, 0, len(a.Words))
	for _, w := range a.Words {
		if w.Mispronounced() {
			out = append(out, w)
		}
	}
	return out
}
