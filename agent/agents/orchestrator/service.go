package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	nodex "github.com/tanpawarit/clinical-assistant/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	ProviderID string
	Greeting   string
}

// Orchestrator runs one chat turn per HandleMessage call and keeps the
// displayed conversation per session.
type Orchestrator struct {
	store     statex.Store
	assistant contractx.Assistant

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	providerID string
	greeting   string

	now func() time.Time
}

func New(
	store statex.Store,
	assistant contractx.Assistant,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if assistant == nil {
		return nil, errors.New("assistant is required")
	}

	o := &Orchestrator{
		store:      store,
		assistant:  assistant,
		providerID: strings.TrimSpace(cfg.ProviderID),
		greeting:   strings.TrimSpace(cfg.Greeting),
		now:        time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage answers text, streaming tokens to onToken, and records the
// turn in the session history.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string, onToken contractx.TokenSink) (string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID:  sessionID,
		ProviderID: o.providerID,
		Text:       text,
		Sink:       onToken,
	})
	if err != nil {
		log.Error().Err(err).Str("session.id", sessionID).Msg("handle message failed")
		return "", err
	}
	return out.Reply, nil
}

// Greet returns the greeting the first time it is called for a session and
// an empty string afterwards.
func (o *Orchestrator) Greet(ctx context.Context, sessionID string) (string, error) {
	if o.greeting == "" {
		return "", nil
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrInvalidSession
	}

	now := o.now().UTC()
	st, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		st = statex.NewSession(sessionID, o.providerID, now)
	} else if err != nil {
		return "", err
	}
	if st.Greeted {
		return "", nil
	}

	if err := st.MarkGreeted(o.greeting, now); err != nil {
		return "", err
	}
	if err := o.store.Save(ctx, st); err != nil {
		return "", err
	}
	return o.greeting, nil
}

// Reset forgets the session; the next Greet shows the greeting again.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return o.store.Delete(ctx, sessionID)
}

func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]statex.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	st, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return []statex.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return st.Messages, nil
}
