package turn

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Reply paths, also used as metric labels.
const (
	PathCanned   = "canned"
	PathStreamed = "streamed"
)

// ReplyProducer yields reply segments in order and returns the full reply text.
// The text is returned even when err is non-nil so partial replies can be kept.
type ReplyProducer interface {
	Produce(ctx context.Context, yield func(Segment) error) (string, error)
	Path() string
}

// CannedReply serves a fixed text without calling the model.
type CannedReply struct {
	Text string
}

func (c CannedReply) Path() string { return PathCanned }

// Produce yields one segment per sentence-like piece of the text.
func (c CannedReply) Produce(ctx context.Context, yield func(Segment) error) (string, error) {
	for _, raw := range SplitCanned(c.Text) {
		if err := ctx.Err(); err != nil {
			return c.Text, err
		}
		if err := yield(Segment{Raw: raw, Speech: CleanForSpeech(raw)}); err != nil {
			return c.Text, err
		}
	}
	return c.Text, nil
}

// TokenSource opens an incremental model completion.
type TokenSource func(ctx context.Context) (*schema.StreamReader[*schema.Message], error)

// StreamedReply consumes a model stream through a SentenceBuffer.
type StreamedReply struct {
	Source         TokenSource
	MinSpeechChars int
}

func (s StreamedReply) Path() string { return PathStreamed }

// Produce reads the stream until EOF or the first error. Buffered text is still
// flushed as a final segment when the stream fails.
func (s StreamedReply) Produce(ctx context.Context, yield func(Segment) error) (string, error) {
	stream, err := s.Source(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	buf := NewSentenceBuffer(s.MinSpeechChars)
	var full strings.Builder
	var streamErr error

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		full.WriteString(chunk.Content)
		for _, seg := range buf.Push(chunk.Content) {
			if err := yield(seg); err != nil {
				return full.String(), err
			}
		}
	}

	if seg, ok := buf.Flush(); ok {
		if err := yield(seg); err != nil {
			return full.String(), err
		}
	}
	return full.String(), streamErr
}
