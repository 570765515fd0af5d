package litellm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrHostRequired = errors.New("litellm host is required")

type LLMBuilder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var _ LLMBuilder = (*Config)(nil)

// Config points at an OpenAI-compatible LiteLLM proxy. The API key may be a
// dummy value for local proxies.
type Config struct {
	Host        string        `required:"true"`
	APIKey      string        `split_words:"true" default:"your-secret-key"`
	Model       string        `default:"my-model"`
	MaxTokens   int           `split_words:"true" default:"2048"`
	Temperature float32       `default:"0.3"`
	Timeout     time.Duration `default:"60s"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrHostRequired
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("litellm model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("litellm max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

func (c *Config) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.Host), "/")
}

func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("litellm: %w", err)
	}

	maxTokens := c.MaxTokens
	temperature := c.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     c.BaseURL(),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     c.Timeout,
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("litellm: create chat model: %w", err)
	}

	return m, nil
}

// NewClient creates an OpenAI SDK client for the proxy's management endpoints.
func NewClient(cfg Config) *openaisdk.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(cfg.BaseURL()),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// ListModels returns the model ids served by the proxy.
func ListModels(ctx context.Context, client *openaisdk.Client) ([]string, error) {
	if client == nil {
		return nil, errors.New("litellm: client is nil")
	}

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("litellm: list models: %w", err)
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
