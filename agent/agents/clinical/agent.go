// Package clinical runs the tool-calling clinical assistant loop.
//
// Trace attributes (session, provider, tags) are attached to an eino
// callbacks handler that writes them to zerolog; they are not exported to
// an OTLP or Langfuse backend.
package clinical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	promptx "github.com/tanpawarit/clinical-assistant/agent/prompt"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
)

const DefaultMaxSteps = 8

var _ contractx.Assistant = (*Agent)(nil)

type Config struct {
	MaxSteps   int
	GatewayURL string
	Trace      TraceConfig
}

// Agent answers one clinical question, calling gateway tools as the model
// requests them and streaming answer text to the caller.
type Agent struct {
	template     einoprompt.ChatTemplate
	stepRunner   compose.Runnable[[]*schema.Message, *schema.Message]
	gateway      contractx.ToolGateway
	allowedTools map[string]struct{}
	maxSteps     int
	gatewayURL   string
	trace        TraceConfig
}

// New binds the gateway's advertised tools to the chat model.
func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	gateway contractx.ToolGateway,
	prompts promptx.PromptSet,
	conf Config,
) (*Agent, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: tool gateway is nil", contractx.ErrValidation)
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	specs, err := gateway.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list tools: %v", contractx.ErrToolUnavailable, err)
	}

	tools := toolx.ToolInfos(specs)
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}
	stepRunner, err := compileStepGraph(ctx, toolModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	allowedTools := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowedTools[t.Name] = struct{}{}
	}

	maxSteps := conf.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	gatewayURL := strings.TrimSpace(conf.GatewayURL)
	if gatewayURL == "" {
		gatewayURL = "the in-process tool catalog"
	}

	return &Agent{
		template:     newPromptTemplate(prompts.Clinical),
		stepRunner:   stepRunner,
		gateway:      gateway,
		allowedTools: allowedTools,
		maxSteps:     maxSteps,
		gatewayURL:   gatewayURL,
		trace:        conf.Trace,
	}, nil
}

func (a *Agent) Run(ctx context.Context, req contractx.AssistantRequest, sink contractx.TokenSink) (contractx.AssistantResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return contractx.AssistantResponse{}, fmt.Errorf("%w: question is required", contractx.ErrValidation)
	}

	attrs := a.trace.Resolve(req.SessionID, req.ProviderID)
	handler := newTraceHandler(attrs)
	logger := log.With().Str("session.id", attrs.SessionID).Logger()

	msgs, err := a.template.Format(ctx, map[string]any{
		promptx.GatewayURLVar: a.gatewayURL,
		questionVar:           question,
	})
	if err != nil {
		return contractx.AssistantResponse{}, fmt.Errorf("%w: format clinical prompt: %v", contractx.ErrPromptMissing, err)
	}

	var (
		answer strings.Builder
		calls  []contractx.ToolResult
	)
	for step := 1; step <= a.maxSteps; step++ {
		stream, err := a.stepRunner.Stream(ctx, msgs, compose.WithCallbacks(handler))
		if err != nil {
			return contractx.AssistantResponse{}, fmt.Errorf("%w: step %d: %v", contractx.ErrModelInvoke, step, err)
		}
		msg, err := collectStep(stream, func(chunk string) {
			answer.WriteString(chunk)
			if sink != nil {
				sink(chunk)
			}
		})
		if err != nil {
			return contractx.AssistantResponse{}, fmt.Errorf("step %d: %w", step, err)
		}

		if len(msg.ToolCalls) == 0 {
			text := strings.TrimSpace(answer.String())
			if text == "" {
				return contractx.AssistantResponse{}, fmt.Errorf("%w: empty answer", contractx.ErrSchemaViolation)
			}
			logger.Info().Int("steps", step).Int("tool_calls", len(calls)).Msg("clinical answer complete")
			return contractx.AssistantResponse{Message: text, ToolCalls: calls, Steps: step}, nil
		}

		toolRequests, err := toToolRequests(step, msg.ToolCalls)
		if err != nil {
			return contractx.AssistantResponse{}, err
		}
		for _, tr := range toolRequests {
			if _, ok := a.allowedTools[tr.Tool]; !ok {
				return contractx.AssistantResponse{}, fmt.Errorf("%w: tool=%s is not advertised by the gateway", contractx.ErrSchemaViolation, tr.Tool)
			}
		}

		results, err := a.gateway.Execute(ctx, toolRequests)
		if err != nil {
			return contractx.AssistantResponse{}, fmt.Errorf("%w: %v", contractx.ErrToolUnavailable, err)
		}
		logger.Debug().Int("step", step).Int("tools", len(results)).Msg("clinical tools executed")

		msgs = append(msgs, assistantToolCallMessage(msg, toolRequests))
		for _, res := range results {
			content, err := json.Marshal(res.Payload())
			if err != nil {
				return contractx.AssistantResponse{}, fmt.Errorf("%w: marshal tool=%s result: %v", contractx.ErrSchemaViolation, res.Tool, err)
			}
			msgs = append(msgs, schema.ToolMessage(string(content), res.ID))
		}
		calls = append(calls, results...)
	}

	return contractx.AssistantResponse{}, fmt.Errorf("%w: no final answer after %d steps", contractx.ErrSchemaViolation, a.maxSteps)
}

// collectStep drains one streamed model step, forwarding content chunks, and
// returns the concatenated message.
func collectStep(stream *schema.StreamReader[*schema.Message], onChunk func(string)) (*schema.Message, error) {
	defer stream.Close()

	var chunks []*schema.Message
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: stream recv: %v", contractx.ErrModelInvoke, err)
		}
		if chunk == nil {
			continue
		}
		if chunk.Content != "" {
			onChunk(chunk.Content)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty model stream", contractx.ErrSchemaViolation)
	}

	msg, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: concat stream: %v", contractx.ErrSchemaViolation, err)
	}
	return msg, nil
}

// assistantToolCallMessage echoes the model's tool calls back with the ids
// used for the tool messages that follow.
func assistantToolCallMessage(msg *schema.Message, reqs []contractx.ToolRequest) *schema.Message {
	calls := make([]schema.ToolCall, len(msg.ToolCalls))
	copy(calls, msg.ToolCalls)
	for i := range calls {
		calls[i].ID = reqs[i].ID
	}
	return schema.AssistantMessage(msg.Content, calls)
}

func toToolRequests(step int, calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for i, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		id := strings.TrimSpace(call.ID)
		if id == "" {
			id = fmt.Sprintf("call_%d_%d", step, i)
		}
		reqs = append(reqs, contractx.ToolRequest{
			ID:   id,
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}
