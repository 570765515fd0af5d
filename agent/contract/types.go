package contract

type AgentType string

const (
	AgentTypeClinical AgentType = "clinical"
)

type AssistantRequest struct {
	SessionID  string `json:"session_id"`
	ProviderID string `json:"provider_id"`
	Question   string `json:"question"`
}

type AssistantResponse struct {
	Message   string       `json:"message"`
	ToolCalls []ToolResult `json:"tool_calls,omitempty"`
	Steps     int          `json:"steps"`
}

type ToolRequest struct {
	ID   string         `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries either Result or Error. Error is the caller-facing
// message, e.g. "Patient PAT999 not found".
type ToolResult struct {
	ID     string `json:"id,omitempty"`
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r ToolResult) Failed() bool {
	return r.Error != ""
}

// Payload is the JSON-ready value returned to the model and over the wire.
func (r ToolResult) Payload() any {
	if r.Error != "" {
		return map[string]string{"error": r.Error}
	}
	return r.Result
}

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
)

type ToolParam struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Desc     string    `json:"description"`
	Required bool      `json:"required"`
	Default  any       `json:"default,omitempty"`
}

type ToolSpec struct {
	Name   string      `json:"name"`
	Desc   string      `json:"description"`
	Params []ToolParam `json:"params"`
}
