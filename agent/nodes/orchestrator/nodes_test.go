package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	if _, err := ValidateRequest(GraphInput{SessionID: " ", Text: "hi"}, fixedNow); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := ValidateRequest(GraphInput{SessionID: "s", Text: `"''"`}, fixedNow); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage for quote-only text, got %v", err)
	}

	st, err := ValidateRequest(GraphInput{SessionID: " s ", Text: ` What's "PAT001" status? `}, fixedNow)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.SessionID != "s" {
		t.Fatalf("session id not trimmed: %q", st.SessionID)
	}
	if st.Prompt != "Whats PAT001 status?" {
		t.Fatalf("unexpected prompt: %q", st.Prompt)
	}
	if st.Text != `What's "PAT001" status?` {
		t.Fatalf("history text changed: %q", st.Text)
	}
}

func TestLoadOrCreateSession(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore()
	in := &GraphState{SessionID: "s1", Now: fixedNow()}
	out, err := LoadOrCreateSession(context.Background(), in, store, "dr@example.org")
	if err != nil {
		t.Fatalf("LoadOrCreateSession() error = %v", err)
	}
	if out.Session == nil || out.Session.ProviderID != "dr@example.org" {
		t.Fatalf("unexpected session: %#v", out.Session)
	}
	if out.ProviderID != "dr@example.org" {
		t.Fatalf("provider not propagated: %q", out.ProviderID)
	}
}

func TestAppendTurnAndFinalize(t *testing.T) {
	t.Parallel()

	in := &GraphState{
		SessionID: "s1",
		Text:      "question",
		Now:       fixedNow(),
		Session:   statex.NewSession("s1", "", fixedNow()),
		Response:  contractx.AssistantResponse{Message: " answer ", ToolCalls: []contractx.ToolResult{{Tool: "search_patients"}}},
	}
	if _, err := AppendTurn(in); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if len(in.Session.Messages) != 2 || in.Session.Messages[1].Content != "answer" {
		t.Fatalf("unexpected messages: %#v", in.Session.Messages)
	}

	out, err := FinalizeReply(in)
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if out.Reply != "answer" || out.ToolCalls != 1 {
		t.Fatalf("unexpected output: %#v", out)
	}

	in.Response.Message = ""
	if _, err := AppendTurn(in); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSaveSessionRejectsInvalid(t *testing.T) {
	t.Parallel()

	in := &GraphState{Now: fixedNow(), Session: &statex.Session{}}
	if _, err := SaveSession(context.Background(), in, statex.NewMemoryStore()); !errors.Is(err, statex.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
