package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID  string
	ProviderID string
	Text       string
	Sink       contractx.TokenSink
}

type GraphOutput struct {
	Reply     string
	ToolCalls int
}

type GraphState struct {
	SessionID  string
	ProviderID string
	Text       string
	Prompt     string
	Now        time.Time
	Sink       contractx.TokenSink

	Session  *statex.Session
	Response contractx.AssistantResponse
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	prompt := SanitizePrompt(text)
	if prompt == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID:  sessionID,
		ProviderID: strings.TrimSpace(in.ProviderID),
		Text:       text,
		Prompt:     prompt,
		Now:        nowFn().UTC(),
		Sink:       in.Sink,
	}, nil
}

// SanitizePrompt drops double and single quotes before the text reaches the
// model. History keeps the text as typed.
func SanitizePrompt(text string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(text))
}
