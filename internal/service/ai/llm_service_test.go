package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
)

type recordingModel struct {
	input  []*schema.Message
	chunks []string
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	return schema.AssistantMessage(strings.Join(m.chunks, ""), nil), nil
}

func (m *recordingModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.input = input
	msgs := make([]*schema.Message, 0, len(m.chunks))
	for _, c := range m.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func TestStreamReplyBuildsConversation(t *testing.T) {
	fake := &recordingModel{chunks: []string{"Hello ", "there. {not a var}"}}
	svc, err := NewServiceWithModel(context.Background(), fake)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	history := HistoryMessages([]chat.Message{
		{Role: chat.RoleUser, Content: "Hi", CreatedAt: time.Now()},
		{Role: chat.RoleSystem, Content: "ignored"},
		{Role: chat.RoleAssistant, Content: "Hello! How are you?"},
	})

	stream, err := svc.StreamReply(context.Background(), "You are a tutor.", history, "I am fine {really}")
	if err != nil {
		t.Fatalf("StreamReply err: %v", err)
	}
	defer stream.Close()

	var got strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		got.WriteString(chunk.Content)
	}
	if got.String() != "Hello there. {not a var}" {
		t.Fatalf("unexpected streamed text: %q", got.String())
	}

	if len(fake.input) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d messages", len(fake.input))
	}
	if fake.input[0].Role != schema.System || fake.input[0].Content != "You are a tutor." {
		t.Fatalf("unexpected system message: %+v", fake.input[0])
	}
	if fake.input[2].Role != schema.Assistant {
		t.Fatalf("expected assistant history entry, got %s", fake.input[2].Role)
	}
	if last := fake.input[3]; last.Role != schema.User || last.Content != "I am fine {really}" {
		t.Fatalf("unexpected query message: %+v", last)
	}
}
