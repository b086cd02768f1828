package turn

import (
	"encoding/json"
	"testing"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

func marshalMap(t *testing.T, ev Event) map[string]any {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal %s: %v", ev.Type, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", ev.Type, err)
	}
	return out
}

func TestSegmentEventAudio(t *testing.T) {
	withAudio := marshalMap(t, segmentEvent("Hi. ", []byte("abc")))
	if withAudio["type"] != "response_segment" || withAudio["text"] != "Hi. " || withAudio["audio"] != "YWJj" {
		t.Fatalf("unexpected segment: %v", withAudio)
	}

	without := marshalMap(t, segmentEvent("Hi. ", nil))
	audio, present := without["audio"]
	if !present || audio != nil {
		t.Fatalf("audio must be an explicit null, got %v (present=%v)", audio, present)
	}
}

func TestPronunciationEventShape(t *testing.T) {
	ev := pronunciationEvent(&speechmodel.PronunciationAssessment{
		Overall: 70, Accuracy: 65, Fluency: 80, Completeness: 90,
		Words: []speechmodel.WordScore{
			{Word: "thought", Accuracy: 40, ErrorType: "Mispronunciation"},
			{Word: "good", Accuracy: 95, ErrorType: "None"},
		},
	})
	got := marshalMap(t, ev)

	if got["pronunciation_score"] != 70.0 || got["accuracy"] != 65.0 || got["fluency"] != 80.0 || got["completeness"] != 90.0 {
		t.Fatalf("unexpected scores: %v", got)
	}
	words, ok := got["mispronounced_words"].([]any)
	if !ok || len(words) != 1 {
		t.Fatalf("unexpected words: %v", got["mispronounced_words"])
	}
	word := words[0].(map[string]any)
	if word["word"] != "thought" || word["error_type"] != "Mispronunciation" {
		t.Fatalf("unexpected word: %v", word)
	}
}

func TestSimpleEventShapes(t *testing.T) {
	if got := marshalMap(t, sessionEvent("abc")); got["id"] != "abc" || got["type"] != "session_id" {
		t.Fatalf("unexpected session event: %v", got)
	}
	if got := marshalMap(t, transcriptionEvent("hello")); got["text"] != "hello" {
		t.Fatalf("unexpected transcription event: %v", got)
	}
	if got := marshalMap(t, errorEvent("boom")); got["content"] != "boom" || got["type"] != "error" {
		t.Fatalf("unexpected error event: %v", got)
	}
	if _, err := json.Marshal(Event{Type: "bogus"}); err == nil {
		t.Fatal("unknown event type should fail to marshal")
	}
}
