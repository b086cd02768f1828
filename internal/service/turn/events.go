package turn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

// EventType discriminates stream events on the wire.
type EventType string

const (
	EventSessionID       EventType = "session_id"
	EventTranscription   EventType = "transcription"
	EventPronunciation   EventType = "pronunciation_data"
	EventResponseSegment EventType = "response_segment"
	EventError           EventType = "error"
)

// Event is one server-push message of a turn.
type Event struct {
	Type          EventType
	SessionID     string
	Text          string
	Audio         []byte
	Pronunciation *speechmodel.PronunciationAssessment
	Message       string
}

// Emitter delivers events to one client. Done writes the end-of-turn marker.
type Emitter interface {
	Emit(Event) error
	Done() error
}

func sessionEvent(id string) Event { return Event{Type: EventSessionID, SessionID: id} }

func transcriptionEvent(text string) Event { return Event{Type: EventTranscription, Text: text} }

func pronunciationEvent(a *speechmodel.PronunciationAssessment) Event {
	return Event{Type: EventPronunciation, Pronunciation: a}
}

func segmentEvent(text string, audio []byte) Event {
	return Event{Type: EventResponseSegment, Text: text, Audio: audio}
}

func errorEvent(message string) Event { return Event{Type: EventError, Message: message} }

type wireWord struct {
	Word      string  `json:"word"`
	Accuracy  float64 `json:"accuracy"`
	ErrorType string  `json:"error_type"`
}

// MarshalJSON renders the type-specific wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventSessionID:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			ID   string    `json:"id"`
		}{e.Type, e.SessionID})

	case EventTranscription:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Text string    `json:"text"`
		}{e.Type, e.Text})

	case EventPronunciation:
		a := e.Pronunciation
		if a == nil {
			a = &speechmodel.PronunciationAssessment{}
		}
		words := make([]wireWord, 0)
		for _, w := range a.Mispronounced() {
			words = append(words, wireWord{Word: w.Word, Accuracy: w.Accuracy, ErrorType: w.ErrorType})
		}
		return json.Marshal(struct {
			Type               EventType  `json:"type"`
			Accuracy           float64    `json:"accuracy"`
			Fluency            float64    `json:"fluency"`
			PronunciationScore float64    `json:"pronunciation_score"`
			Completeness       float64    `json:"completeness"`
			Mispronounced      []wireWord `json:"mispronounced_words"`
		}{e.Type, a.Accuracy, a.Fluency, a.Overall, a.Completeness, words})

	case EventResponseSegment:
		var audio *string
		if len(e.Audio) > 0 {
			encoded := base64.StdEncoding.EncodeToString(e.Audio)
			audio = &encoded
		}
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Text  string    `json:"text"`
			Audio *string   `json:"audio"`
		}{e.Type, e.Text, audio})

	case EventError:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Content string    `json:"content"`
		}{e.Type, e.Message})
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}
