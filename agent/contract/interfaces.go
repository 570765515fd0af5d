package contract

import "context"

// TokenSink receives streamed answer text as it is produced.
type TokenSink func(chunk string)

type Assistant interface {
	Run(ctx context.Context, req AssistantRequest, sink TokenSink) (AssistantResponse, error)
}

// ToolGateway lists and executes the patient-data tools, either in-process or
// over the JSON-RPC transport.
type ToolGateway interface {
	ListTools(ctx context.Context) ([]ToolSpec, error)
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}
