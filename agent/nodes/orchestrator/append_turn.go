package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	statex "github.com/tanpawarit/clinical-assistant/agent/state"
)

func AppendTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Response.Message)
	if reply == "" {
		return nil, fmt.Errorf("%w: assistant returned empty message", contractx.ErrValidation)
	}

	if err := in.Session.Append(statex.RoleUser, in.Text, in.Now); err != nil {
		return nil, err
	}
	if err := in.Session.Append(statex.RoleAssistant, reply, in.Now); err != nil {
		return nil, err
	}
	return in, nil
}
