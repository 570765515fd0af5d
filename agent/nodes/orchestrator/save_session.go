package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
)

func SaveSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}

	return in, nil
}
