package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
)

func LoadOrCreateSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	defaultProviderID string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	providerID := in.ProviderID
	if providerID == "" {
		providerID = defaultProviderID
	}
	st, err := loadOrCreateSession(ctx, store, in.SessionID, providerID, in.Now)
	if err != nil {
		return nil, err
	}
	in.Session = st
	if in.ProviderID == "" {
		in.ProviderID = st.ProviderID
	}
	return in, nil
}

func loadOrCreateSession(
	ctx context.Context,
	store statex.Store,
	sessionID string,
	providerID string,
	now time.Time,
) (*statex.Session, error) {
	st, err := store.Load(ctx, sessionID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}

	return statex.NewSession(sessionID, providerID, now), nil
}
