package conversation

import "testing"

func TestAppendUser(t *testing.T) {
	a := NewAssembler(nil)

	id := a.AppendUser("hello")
	if id == "" {
		t.Fatal("expected an ID for a valid user message")
	}

	msgs := a.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("unexpected message: %+v", msgs[0])
	}
}

func TestAppendUserRejectsBlank(t *testing.T) {
	a := NewAssembler(nil)
	if id := a.AppendUser("   \n\t"); id != "" {
		t.Errorf("expected empty ID for whitespace-only text, got %q", id)
	}
	if a.Len() != 0 {
		t.Errorf("expected no messages, got %d", a.Len())
	}
}

func TestAssistantTurnOrdering(t *testing.T) {
	a := NewAssembler(nil)

	a.AppendUser("question")
	placeholderID := a.BeginAssistantTurn()

	msgs := a.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser {
		t.Error("user message must precede the assistant placeholder")
	}
	if msgs[1].ID != placeholderID || msgs[1].Role != RoleAssistant || msgs[1].Content != "" {
		t.Errorf("unexpected placeholder: %+v", msgs[1])
	}
}

func TestAppendToAssistantAccumulates(t *testing.T) {
	a := NewAssembler(nil)
	a.AppendUser("hi")
	id := a.BeginAssistantTurn()

	// The final content is the concatenation of the deltas, however they
	// were chunked on the wire.
	for _, delta := range []string{"He", "llo", " world"} {
		a.AppendToAssistant(id, delta)
	}

	msg, ok := a.Message(id)
	if !ok {
		t.Fatal("placeholder missing")
	}
	if msg.Content != "Hello world" {
		t.Errorf("expected \"Hello world\", got %q", msg.Content)
	}
}

func TestAppendToAssistantEmptyDelta(t *testing.T) {
	a := NewAssembler(nil)
	id := a.BeginAssistantTurn()

	a.AppendToAssistant(id, "partial")
	a.AppendToAssistant(id, "")

	msg, _ := a.Message(id)
	if msg.Content != "partial" {
		t.Errorf("empty delta must be a no-op, got %q", msg.Content)
	}
}

func TestAppendAfterEndTurnIsNoOp(t *testing.T) {
	a := NewAssembler(nil)
	id := a.BeginAssistantTurn()
	a.AppendToAssistant(id, "done")
	a.EndTurn()

	a.AppendToAssistant(id, " extra")

	msg, _ := a.Message(id)
	if msg.Content != "done" {
		t.Errorf("append after EndTurn must be a no-op, got %q", msg.Content)
	}
}

func TestAppendToUnknownIDIsNoOp(t *testing.T) {
	a := NewAssembler(nil)
	a.BeginAssistantTurn()
	a.AppendToAssistant("missing", "text")

	msgs := a.Messages()
	if msgs[0].Content != "" {
		t.Errorf("unknown ID must not mutate anything, got %q", msgs[0].Content)
	}
}

func TestReplaceAssistantWithError(t *testing.T) {
	a := NewAssembler(nil)
	a.AppendUser("hi")
	id := a.BeginAssistantTurn()
	a.AppendToAssistant(id, "partial output")

	a.ReplaceAssistantWithError(id, "Sorry, something broke.")

	msg, _ := a.Message(id)
	if msg.Content != "Sorry, something broke." {
		t.Errorf("expected error replacement, got %q", msg.Content)
	}
	// The placeholder is replaced, never removed.
	if a.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", a.Len())
	}
}

func TestSnapshotIsolation(t *testing.T) {
	a := NewAssembler(nil)
	id := a.BeginAssistantTurn()

	before := a.Messages()
	a.AppendToAssistant(id, "grown")

	if before[0].Content != "" {
		t.Error("earlier snapshot must not observe later mutations")
	}
}

func TestHistorySeed(t *testing.T) {
	history := []Message{
		{ID: "h1", Role: RoleUser, Content: "old question"},
		{ID: "h2", Role: RoleAssistant, Content: "old answer"},
	}
	a := NewAssembler(history)

	a.AppendUser("new question")
	msgs := a.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "h1" || msgs[2].Content != "new question" {
		t.Errorf("history ordering broken: %+v", msgs)
	}
}
