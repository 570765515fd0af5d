package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
)

// RunAssistant answers the sanitized prompt on its own; earlier turns are not
// sent to the model.
func RunAssistant(
	ctx context.Context,
	in *GraphState,
	assistant contractx.Assistant,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	resp, err := assistant.Run(ctx, contractx.AssistantRequest{
		SessionID:  in.SessionID,
		ProviderID: in.ProviderID,
		Question:   in.Prompt,
	}, in.Sink)
	if err != nil {
		return nil, err
	}
	in.Response = resp
	return in, nil
}
