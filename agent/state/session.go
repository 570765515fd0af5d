package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is the conversation shown to one provider. It is display history
// only; each question is answered on its own.
type Session struct {
	SessionID  string    `json:"session_id"`
	ProviderID string    `json:"provider_id"`
	Messages   []Message `json:"messages,omitempty"`
	Greeted    bool      `json:"greeted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

var (
	ErrEmptyMessage = errors.New("message content is empty")
	ErrUnknownRole  = errors.New("unknown message role")
)

func NewSession(sessionID, providerID string, now time.Time) *Session {
	return &Session{
		SessionID:  sessionID,
		ProviderID: providerID,
		Messages:   make([]Message, 0, 8),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) Append(role Role, content string, now time.Time) error {
	if s == nil {
		return ErrNilSession
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	s.Messages = append(s.Messages, Message{Role: role, Content: content, At: now.UTC()})
	s.Touch(now)
	return nil
}

// MarkGreeted records the greeting as the first assistant message.
func (s *Session) MarkGreeted(greeting string, now time.Time) error {
	if s.Greeted {
		return nil
	}
	if err := s.Append(RoleAssistant, greeting, now); err != nil {
		return err
	}
	s.Greeted = true
	return nil
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	return &out
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	for i, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", ErrUnknownRole, i, m.Role)
		}
	}
	return nil
}
