package conversation

import (
	"strings"
	"sync"
)

// Assembler owns the ordered message list of one conversation for the
// duration of a turn. Every mutation is a transformation of the previous
// slice into a fresh one, so a snapshot handed out earlier is never mutated
// underneath its reader.
//
// Ordering invariant: the user message of a turn always precedes its
// assistant placeholder, and the placeholder is never removed - its content
// is only grown (success) or replaced (error). At most one assistant message
// is in flight at a time, and while in flight it is the last element.
type Assembler struct {
	mu         sync.Mutex
	messages   []Message
	inFlightID string
}

// NewAssembler creates an assembler, optionally pre-populated from history.
func NewAssembler(history []Message) *Assembler {
	msgs := make([]Message, len(history))
	copy(msgs, history)
	return &Assembler{messages: msgs}
}

// AppendUser appends a new user message and returns its ID. Empty or
// whitespace-only text is rejected with an empty ID; callers are expected to
// pre-validate, the assembler just stays consistent.
func (a *Assembler) AppendUser(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	msg := Message{ID: NewMessageID(), Role: RoleUser, Content: text}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.copyMessages(), msg)
	return msg.ID
}

// BeginAssistantTurn appends an empty assistant placeholder and returns its
// ID. That ID is the only valid target for appends until EndTurn.
func (a *Assembler) BeginAssistantTurn() string {
	msg := Message{ID: NewMessageID(), Role: RoleAssistant, Content: ""}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.copyMessages(), msg)
	a.inFlightID = msg.ID
	return msg.ID
}

// AppendToAssistant concatenates text onto the in-flight assistant message.
// A stale or unknown ID makes this a no-op, not an error.
func (a *Assembler) AppendToAssistant(id, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id == "" || id != a.inFlightID {
		return
	}

	next := a.copyMessages()
	for i := range next {
		if next[i].ID == id {
			next[i].Content += text
			a.messages = next
			return
		}
	}
}

// ReplaceAssistantWithError sets the assistant message's content to a
// user-facing error string. Used when the stream fails before or while
// content is arriving.
func (a *Assembler) ReplaceAssistantWithError(id, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.copyMessages()
	for i := range next {
		if next[i].ID == id {
			next[i].Content = message
			a.messages = next
			return
		}
	}
}

// EndTurn marks no message as in flight. Appends targeting the old ID
// become no-ops.
func (a *Assembler) EndTurn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlightID = ""
}

// Message returns the message with the given ID, if present.
func (a *Assembler) Message(id string) (Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, m := range a.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Messages returns a snapshot of the conversation in insertion order.
func (a *Assembler) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyMessages()
}

// Len returns the number of messages.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

// copyMessages must be called with the lock held.
func (a *Assembler) copyMessages() []Message {
	next := make([]Message, len(a.messages))
	copy(next, a.messages)
	return next
}
