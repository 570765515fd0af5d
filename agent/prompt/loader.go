package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
)

var (
	//go:embed template/clinical.txt
	clinicalRaw string

	//go:embed template/greeting.txt
	greetingRaw string
)

// GatewayURLVar is the FString variable in the clinical system prompt.
const GatewayURLVar = "gateway_url"

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Clinical string
	Greeting string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Clinical: strings.TrimSpace(clinicalRaw),
		Greeting: strings.TrimSpace(greetingRaw),
	}
}

func (p PromptSet) Validate() error {
	if p.Clinical == "" {
		return fmt.Errorf("%w: clinical system prompt", contractx.ErrPromptMissing)
	}
	if p.Greeting == "" {
		return fmt.Errorf("%w: greeting", contractx.ErrPromptMissing)
	}
	if !strings.Contains(p.Clinical, "{"+GatewayURLVar+"}") {
		return fmt.Errorf("%w: clinical prompt lacks {%s}", contractx.ErrPromptMissing, GatewayURLVar)
	}
	return nil
}
