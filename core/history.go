package dialogue

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/lovrenc-k/voxloop/core/llms"
)

// History stores the conversation shared across turns. It may be read from
// a UI goroutine while the turn worker appends, so every method locks.
//
// With history disabled each turn sends only the system prompt and the
// current user message and stores nothing.
type History struct {
	mu             sync.Mutex
	systemPrompt   string
	includeHistory bool
	entries        []llms.Message
}

type HistoryOption func(*History)

func WithSystemPrompt(prompt string) HistoryOption {
	return func(h *History) { h.systemPrompt = strings.TrimSpace(prompt) }
}

func WithoutHistory() HistoryOption {
	return func(h *History) { h.includeHistory = false }
}

func NewHistory(opts ...HistoryOption) *History {
	h := &History{includeHistory: true}
	for _, opt := range opts {
		opt(h)
	}
	h.mu.Lock()
	h.resetLocked()
	h.mu.Unlock()
	return h
}

// PushUser records the user message and returns its entry ID together with
// the message list for the reply request. With history disabled the message
// is not recorded and the returned ID is empty.
func (h *History) PushUser(text string) (string, []llms.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.includeHistory {
		request := make([]llms.Message, 0, 2)
		if h.systemPrompt != "" {
			request = append(request, llms.Message{Role: llms.RoleSystem, Content: h.systemPrompt})
		}
		request = append(request, llms.Message{Role: llms.RoleUser, Content: text})
		return "", request
	}

	entry := llms.Message{
		ID:      uuid.NewString(),
		Role:    llms.RoleUser,
		Content: text,
	}
	h.entries = append(h.entries, entry)
	return entry.ID, h.snapshotLocked()
}

// PushAssistant records the assistant's reply. Blank replies are dropped.
func (h *History) PushAssistant(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.includeHistory {
		return
	}
	h.entries = append(h.entries, llms.Message{
		ID:      uuid.NewString(),
		Role:    llms.RoleAssistant,
		Content: text,
	})
}

// Rollback removes the entry with the given ID if it is still the most
// recent one. Used when a turn fails after its user message was recorded.
func (h *History) Rollback(id string) {
	if id == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return
	}
	if last := h.entries[len(h.entries)-1]; last.ID == id {
		h.entries = h.entries[:len(h.entries)-1]
	}
}

// Snapshot returns a deep copy of the stored conversation.
func (h *History) Snapshot() []llms.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *History) snapshotLocked() []llms.Message {
	snapshot := make([]llms.Message, 0, len(h.entries))
	if err := copier.Copy(&snapshot, &h.entries); err != nil {
		logger.Error("failed to snapshot conversation history", "error", err)
		return append(snapshot, h.entries...)
	}
	return snapshot
}

// SetSystemPrompt replaces the system prompt. Changing it resets the stored
// conversation so stale context does not contradict the new prompt.
func (h *History) SetSystemPrompt(prompt string) {
	prompt = strings.TrimSpace(prompt)

	h.mu.Lock()
	defer h.mu.Unlock()
	if prompt == h.systemPrompt {
		return
	}
	h.systemPrompt = prompt
	h.resetLocked()
}

func (h *History) SetIncludeHistory(include bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.includeHistory = include
}

func (h *History) IncludeHistory() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.includeHistory
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
}

func (h *History) resetLocked() {
	h.entries = nil
	if h.systemPrompt != "" {
		h.entries = append(h.entries, llms.Message{
			ID:      uuid.NewString(),
			Role:    llms.RoleSystem,
			Content: h.systemPrompt,
		})
	}
}
