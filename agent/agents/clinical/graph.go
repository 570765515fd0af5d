package clinical

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const questionVar = "question"

func newPromptTemplate(systemPrompt string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{"+questionVar+"}"),
	)
}

// compileStepGraph wraps one model turn. The tool loop feeds it the running
// message list and streams its output.
func compileStepGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add clinical model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return nil, fmt.Errorf("add clinical edge start->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add clinical edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("clinical.model_step"))
	if err != nil {
		return nil, fmt.Errorf("compile clinical step graph: %w", err)
	}
	return runner, nil
}
