package utils

import (
	"net/http/httptest"
	"testing"
)

func TestSSEFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)

	if err := SendSSEChunk(rec, rec, map[string]string{"type": "session_id", "id": "abc"}); err != nil {
		t.Fatalf("SendSSEChunk err: %v", err)
	}
	if err := SendSSEDone(rec, rec); err != nil {
		t.Fatalf("SendSSEDone err: %v", err)
	}

	want := "data: {\"id\":\"abc\",\"type\":\"session_id\"}\n\ndata: [DONE]\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("unexpected stream:\n%q\nwant\n%q", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !rec.Flushed {
		t.Fatal("frames should be flushed")
	}
}

func TestSendSSEChunkRejectsUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := SendSSEChunk(rec, rec, map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected marshal error")
	}
	if rec.Body.Len() != 0 {
		t.Fatal("nothing should be written on marshal failure")
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, 400, "bad input")
	if rec.Code != 400 || rec.Body.String() != "{\"error\":\"bad input\"}\n" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
