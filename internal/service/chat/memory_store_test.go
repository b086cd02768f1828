package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fluentpal/tutor/backend/internal/model/chat"
	chatservice "github.com/fluentpal/tutor/backend/internal/service/chat"
)

func TestMemoryStoreGetSession(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "alice", "Hello there")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := store.GetSession(ctx, session.ID, "alice")
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID || got.Title != "Hello there" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestMemoryStoreForeignSessionNotFound(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "alice", "t")

	if _, err := store.GetSession(ctx, session.ID, "mallory"); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.DeleteSession(ctx, session.ID, "mallory"); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on delete, got %v", err)
	}
	if _, err := store.GetSession(ctx, "missing", "alice"); err == nil {
		t.Fatal("expected error for missing session")
	}
	if _, err := store.CreateSession(ctx, "", "t"); !errors.Is(err, chatservice.ErrOwnerRequired) {
		t.Fatalf("expected ErrOwnerRequired, got %v", err)
	}
}

func TestMemoryStoreMessagesInOrder(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "alice", "t")
	other, _ := store.CreateSession(ctx, "alice", "t2")
	foreign, _ := store.CreateSession(ctx, "bob", "t3")

	_, _ = store.AppendMessage(ctx, session.ID, chat.RoleUser, "one")
	_, _ = store.AppendMessage(ctx, session.ID, chat.RoleAssistant, "two")
	_, _ = store.AppendMessage(ctx, other.ID, chat.RoleUser, "three")
	_, _ = store.AppendMessage(ctx, foreign.ID, chat.RoleUser, "four")

	msgs, err := store.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages err: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "one" || msgs[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}

	count, _ := store.CountUserMessages(ctx, "alice")
	if count != 2 {
		t.Fatalf("expected 2 user messages for alice, got %d", count)
	}

	if _, err := store.AppendMessage(ctx, "missing", chat.RoleUser, "x"); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreMetadataMerge(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	session, _ := store.CreateSession(ctx, "alice", "t")
	if _, err := store.UpdateSessionMetadata(ctx, session.ID, map[string]string{chat.MetaPersona: "strict"}); err != nil {
		t.Fatalf("UpdateSessionMetadata err: %v", err)
	}
	updated, err := store.UpdateSessionMetadata(ctx, session.ID, map[string]string{chat.MetaMode: "basic"})
	if err != nil {
		t.Fatalf("UpdateSessionMetadata err: %v", err)
	}
	if updated.Persona() != "strict" || updated.Mode() != "basic" {
		t.Fatalf("metadata not merged: %+v", updated.Metadata)
	}

	updated.Metadata[chat.MetaPersona] = "mutated"
	again, _ := store.GetSession(ctx, session.ID, "alice")
	if again.Persona() != "strict" {
		t.Fatal("returned session must not alias stored metadata")
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	store := chatservice.NewMemoryStore()
	ctx := context.Background()

	a, _ := store.CreateSession(ctx, "alice", "a")
	_, _ = store.CreateSession(ctx, "alice", "b")
	_, _ = store.CreateSession(ctx, "bob", "c")

	list, _ := store.ListSessions(ctx, "alice")
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}

	if err := store.DeleteSession(ctx, a.ID, "alice"); err != nil {
		t.Fatalf("DeleteSession err: %v", err)
	}
	if _, err := store.ListMessages(ctx, a.ID); !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("messages should be gone, got %v", err)
	}
}
