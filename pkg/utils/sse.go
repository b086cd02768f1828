package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEDone is the bare terminator sent after the last event of a stream.
const SSEDone = "[DONE]"

// SetupSSEHeaders prepares w for a Server-Sent Events stream.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendSSEChunk writes payload as one "data:" frame and flushes it.
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	return writeFrame(w, flusher, data)
}

// SendSSEDone writes the "data: [DONE]" terminator.
func SendSSEDone(w http.ResponseWriter, flusher http.Flusher) error {
	return writeFrame(w, flusher, []byte(SSEDone))
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, data []byte) error {
	if _, err := w.Write([]byte("data: ")); err != nil {
		return fmt.Errorf("write sse prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write sse payload: %w", err)
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return fmt.Errorf("write sse terminator: %w", err)
	}
	flusher.Flush()
	return nil
}
