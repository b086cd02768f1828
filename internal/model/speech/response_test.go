package speech_test

import (
	"testing"

	"github.com/fluentpal/tutor/backend/internal/model/speech"
)

func TestWordScoreMispronounced(t *testing.T) {
	tests := []struct {
		word speech.WordScore
		want bool
	}{
		{speech.WordScore{Word: "think", Accuracy: 55, ErrorType: "None"}, true},
		{speech.WordScore{Word: "three", Accuracy: 90, ErrorType: "Mispronunciation"}, true},
		{speech.WordScore{Word: "tree", Accuracy: 75, ErrorType: "none"}, false},
		{speech.WordScore{Word: "the", Accuracy: 60, ErrorType: ""}, false},
		{speech.WordScore{Word: "a", Accuracy: 99, ErrorType: "Omission"}, true},
	}

	for _, tc := range tests {
		if got := tc.word.Mispronounced(); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.word.Word, got, tc.want)
		}
	}
}

func TestAssessmentMispronouncedNil(t *testing.T) {
	var a *speech.PronunciationAssessment
	if a.Mispronounced() != nil {
		t.Fatal("nil assessment has no flagged words")
	}
}
