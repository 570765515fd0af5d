package clinical

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/clinical-assistant/agent/contract"
	promptx "github.com/tanpawarit/clinical-assistant/agent/prompt"
	toolx "github.com/tanpawarit/clinical-assistant/agent/tool"
	patientx "github.com/tanpawarit/clinical-assistant/patient"
)

// fakeToolCallingModel streams one scripted step per call and records the
// messages it was given.
type fakeToolCallingModel struct {
	mu     sync.Mutex
	steps  [][]*schema.Message
	inputs [][]*schema.Message
	tools  []*schema.ToolInfo
	err    error
	idx    int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	return nil, errors.New("generate not implemented in fake model")
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, append([]*schema.Message(nil), input...))
	if f.idx >= len(f.steps) {
		return nil, errors.New("no fake step left")
	}
	chunks := f.steps[f.idx]
	f.idx++
	return schema.StreamReaderFromArray(chunks), nil
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func textChunks(parts ...string) []*schema.Message {
	out := make([]*schema.Message, 0, len(parts))
	for _, p := range parts {
		out = append(out, &schema.Message{Role: schema.Assistant, Content: p})
	}
	return out
}

func toolCallStep(id, name, args string) []*schema.Message {
	return []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       id,
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}}
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T) *toolx.LocalGateway {
	t.Helper()
	svc, err := patientx.NewService(
		patientx.SampleSnapshot(testNow),
		patientx.WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return toolx.NewLocalGateway(svc)
}

func newTestAgent(t *testing.T, fake *fakeToolCallingModel, conf Config) *Agent {
	t.Helper()
	agent, err := New(context.Background(), fake, newTestGateway(t), promptx.LoadPromptSet(), conf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return agent
}

func TestAgentAnswersWithoutTools(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{steps: [][]*schema.Message{
		textChunks("Hyper", "tension is ", "high blood pressure."),
	}}
	agent := newTestAgent(t, fake, Config{GatewayURL: "http://localhost:8000/mcp"})

	var streamed []string
	out, err := agent.Run(context.Background(), contractx.AssistantRequest{Question: "What is hypertension?"}, func(chunk string) {
		streamed = append(streamed, chunk)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Message != "Hypertension is high blood pressure." {
		t.Fatalf("unexpected message: %q", out.Message)
	}
	if len(streamed) != 3 {
		t.Fatalf("expected 3 streamed chunks, got %d", len(streamed))
	}
	if out.Steps != 1 || len(out.ToolCalls) != 0 {
		t.Fatalf("unexpected steps=%d calls=%d", out.Steps, len(out.ToolCalls))
	}
	if len(fake.tools) != 5 {
		t.Fatalf("expected 5 bound tools, got %d", len(fake.tools))
	}

	first := fake.inputs[0]
	if len(first) != 2 || first[0].Role != schema.System || first[1].Role != schema.User {
		t.Fatalf("unexpected prompt shape: %#v", first)
	}
	if !strings.Contains(first[0].Content, "http://localhost:8000/mcp") {
		t.Fatal("system prompt does not carry gateway url")
	}
	if first[1].Content != "What is hypertension?" {
		t.Fatalf("unexpected user message: %q", first[1].Content)
	}
}

func TestAgentToolLoop(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{steps: [][]*schema.Message{
		toolCallStep("call-1", "get_patient_info", `{"patient_id":"PAT001"}`),
		textChunks("John Doe is 50 years old."),
	}}
	agent := newTestAgent(t, fake, Config{})

	out, err := agent.Run(context.Background(), contractx.AssistantRequest{Question: "How old is PAT001?"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Steps != 2 {
		t.Fatalf("expected 2 steps, got %d", out.Steps)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Tool != "get_patient_info" || out.ToolCalls[0].Failed() {
		t.Fatalf("unexpected tool calls: %#v", out.ToolCalls)
	}

	second := fake.inputs[1]
	if len(second) != 4 {
		t.Fatalf("expected system,user,assistant,tool messages, got %d", len(second))
	}
	toolMsg := second[3]
	if toolMsg.Role != schema.Tool || toolMsg.ToolCallID != "call-1" {
		t.Fatalf("unexpected tool message: %#v", toolMsg)
	}
	if !strings.Contains(toolMsg.Content, `"name":"John Doe"`) {
		t.Fatalf("tool message missing patient: %s", toolMsg.Content)
	}
}

func TestAgentToolErrorIsReturnedToModel(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{steps: [][]*schema.Message{
		toolCallStep("", "get_patient_history", `{"patient_id":"PAT999"}`),
		textChunks("No such patient."),
	}}
	agent := newTestAgent(t, fake, Config{})

	out, err := agent.Run(context.Background(), contractx.AssistantRequest{Question: "history of PAT999"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Error != "Patient PAT999 not found" {
		t.Fatalf("unexpected tool calls: %#v", out.ToolCalls)
	}
	toolMsg := fake.inputs[1][3]
	if toolMsg.Content != `{"error":"Patient PAT999 not found"}` {
		t.Fatalf("unexpected tool content: %s", toolMsg.Content)
	}
	if toolMsg.ToolCallID != "call_1_0" {
		t.Fatalf("expected generated call id, got %q", toolMsg.ToolCallID)
	}
}

func TestAgentRejectsUnadvertisedTool(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{steps: [][]*schema.Message{
		toolCallStep("c", "math.evaluate", `{"expression":"1+1"}`),
	}}
	agent := newTestAgent(t, fake, Config{})

	_, err := agent.Run(context.Background(), contractx.AssistantRequest{Question: "x"}, nil)
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestAgentStopsAfterMaxSteps(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{steps: [][]*schema.Message{
		toolCallStep("a", "search_patients", `{"query":"john"}`),
		toolCallStep("b", "search_patients", `{"query":"jane"}`),
	}}
	agent := newTestAgent(t, fake, Config{MaxSteps: 2})

	_, err := agent.Run(context.Background(), contractx.AssistantRequest{Question: "loop"}, nil)
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestAgentValidationAndModelErrors(t *testing.T) {
	t.Parallel()

	agent := newTestAgent(t, &fakeToolCallingModel{}, Config{})
	if _, err := agent.Run(context.Background(), contractx.AssistantRequest{Question: "  "}, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	failing := newTestAgent(t, &fakeToolCallingModel{err: errors.New("proxy down")}, Config{})
	if _, err := failing.Run(context.Background(), contractx.AssistantRequest{Question: "hi"}, nil); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	blank := newTestAgent(t, &fakeToolCallingModel{steps: [][]*schema.Message{textChunks("   ")}}, Config{})
	if _, err := blank.Run(context.Background(), contractx.AssistantRequest{Question: "hi"}, nil); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), nil, newTestGateway(t), promptx.LoadPromptSet(), Config{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for nil model, got %v", err)
	}
	if _, err := New(context.Background(), &fakeToolCallingModel{}, newTestGateway(t), promptx.PromptSet{}, Config{}); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}
}

func TestTraceConfigResolve(t *testing.T) {
	t.Parallel()

	attrs := TraceConfig{}.Resolve("", "")
	if !strings.HasPrefix(attrs.SessionID, "clinical-session-") {
		t.Fatalf("unexpected default session id %q", attrs.SessionID)
	}
	if attrs.UserID != DefaultProviderID || len(attrs.Tags) != 5 {
		t.Fatalf("unexpected defaults: %#v", attrs)
	}

	attrs = TraceConfig{SessionID: "env-session"}.Resolve("chat-session", "dr@example.org")
	if attrs.SessionID != "env-session" || attrs.UserID != "dr@example.org" {
		t.Fatalf("unexpected resolution: %#v", attrs)
	}
}
