package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
)

type fakeChat struct {
	greeted bool
	history []statex.Message
	err     error
	resets  int
}

func (f *fakeChat) Greet(ctx context.Context, sessionID string) (string, error) {
	if f.greeted {
		return "", nil
	}
	f.greeted = true
	return "Welcome!", nil
}

func (f *fakeChat) HandleMessage(ctx context.Context, sessionID string, text string, onToken contractx.TokenSink) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	onToken("echo: ")
	onToken(text)
	f.history = append(f.history,
		statex.Message{Role: statex.RoleUser, Content: text, At: time.Now()},
		statex.Message{Role: statex.RoleAssistant, Content: "echo: " + text, At: time.Now()},
	)
	return "echo: " + text, nil
}

func (f *fakeChat) Reset(ctx context.Context, sessionID string) error {
	f.resets++
	f.greeted = false
	f.history = nil
	return nil
}

func (f *fakeChat) History(ctx context.Context, sessionID string) ([]statex.Message, error) {
	return f.history, nil
}

func TestRunChatCommands(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{}
	in := strings.NewReader("hello\n/history\n/reset\n/exit\nnever read\n")
	var out bytes.Buffer

	if err := runChat(context.Background(), chat, "s1", in, &out); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}

	got := out.String()
	if strings.Count(got, "Welcome!") != 2 {
		t.Fatalf("expected greeting before and after reset:\n%s", got)
	}
	for _, want := range []string{"echo: hello", "[user] hello", "[assistant] echo: hello", "Conversation cleared."} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if chat.resets != 1 {
		t.Fatalf("expected one reset, got %d", chat.resets)
	}
	if strings.Contains(got, "never read") {
		t.Fatal("input after /exit was processed")
	}
}

func TestRunChatPrintsErrorReply(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("model down")}
	var out bytes.Buffer
	if err := runChat(context.Background(), chat, "s1", strings.NewReader("question\n"), &out); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}
	if !strings.Contains(out.String(), errorReply) {
		t.Fatalf("error reply missing:\n%s", out.String())
	}
}

func TestPrintTools(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printTools(&out, toolx.Specs())
	got := out.String()
	if !strings.Contains(got, "get_lab_results") || !strings.Contains(got, "days_back (integer, optional) default 365") {
		t.Fatalf("unexpected tool listing:\n%s", got)
	}
}
