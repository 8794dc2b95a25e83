package dialogue

import (
	"testing"

	"github.com/lovrenc-k/voxloop/core/llms"
)

func TestHistorySeedsSystemPrompt(t *testing.T) {
	history := NewHistory(WithSystemPrompt("You are helpful."))

	entries := history.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected one seeded entry, got %d", len(entries))
	}
	if entries[0].Role != llms.RoleSystem || entries[0].Content != "You are helpful." {
		t.Fatalf("expected system prompt entry, got %+v", entries[0])
	}
}

func TestHistoryPushUserReturnsRequestMessages(t *testing.T) {
	history := NewHistory(WithSystemPrompt("You are helpful."))

	id, request := history.PushUser("Hi there")
	if id == "" {
		t.Fatal("expected a non-empty entry ID")
	}
	if len(request) != 2 {
		t.Fatalf("expected system + user request messages, got %d", len(request))
	}
	if request[1].Role != llms.RoleUser || request[1].Content != "Hi there" {
		t.Fatalf("expected user message last, got %+v", request[1])
	}
}

func TestHistoryRollbackRemovesFailedTurn(t *testing.T) {
	history := NewHistory()

	id, _ := history.PushUser("doomed message")
	history.Rollback(id)

	if entries := history.Snapshot(); len(entries) != 0 {
		t.Fatalf("expected rollback to remove the user entry, got %d entries", len(entries))
	}
}

func TestHistoryRollbackIgnoresStaleID(t *testing.T) {
	history := NewHistory()

	id, _ := history.PushUser("first")
	history.PushAssistant("reply")
	history.Rollback(id)

	if entries := history.Snapshot(); len(entries) != 2 {
		t.Fatalf("expected rollback of a non-latest entry to be ignored, got %d entries", len(entries))
	}
}

func TestHistoryDisabledStoresNothing(t *testing.T) {
	history := NewHistory(WithSystemPrompt("You are terse."), WithoutHistory())

	id, request := history.PushUser("Hello")
	if id != "" {
		t.Fatalf("expected no entry ID with history disabled, got %q", id)
	}
	if len(request) != 2 {
		t.Fatalf("expected system + user request, got %d messages", len(request))
	}
	history.PushAssistant("Hi")

	if entries := history.Snapshot(); len(entries) != 1 {
		t.Fatalf("expected only the seeded system prompt, got %d entries", len(entries))
	}
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	history := NewHistory()
	history.PushUser("original")

	snapshot := history.Snapshot()
	snapshot[0].Content = "mutated"

	if entries := history.Snapshot(); entries[0].Content != "original" {
		t.Fatalf("expected snapshot mutation to not affect history, got %q", entries[0].Content)
	}
}

func TestHistoryChangingSystemPromptResets(t *testing.T) {
	history := NewHistory(WithSystemPrompt("old prompt"))
	history.PushUser("hello")
	history.PushAssistant("hi")

	history.SetSystemPrompt("new prompt")

	entries := history.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected reset to keep only the new prompt, got %d entries", len(entries))
	}
	if entries[0].Content != "new prompt" {
		t.Fatalf("expected new system prompt, got %q", entries[0].Content)
	}
}

func TestHistoryDropsBlankAssistantReply(t *testing.T) {
	history := NewHistory()
	history.PushUser("hello")
	history.PushAssistant("   ")

	if entries := history.Snapshot(); len(entries) != 1 {
		t.Fatalf("expected blank reply to be dropped, got %d entries", len(entries))
	}
}
