package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

// messageCreator is the part of the Anthropic messages service the client uses.
type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient implements Client for Claude models.
type AnthropicClient struct {
	messages messageCreator
	config   *Config
	logger   *slog.Logger
}

// NewAnthropicClient creates a new Claude client.
func NewAnthropicClient(config *Config, apiKey string, logger *slog.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, &GenerationError{Kind: KindAuthError, Message: "API key is required"}
	}
	if config == nil {
		config = DefaultAnthropicConfig()
	}
	client := anthropic.NewClient(anthropicoption.WithAPIKey(apiKey))
	return newAnthropicClient(&client.Messages, config, logger), nil
}

func newAnthropicClient(messages messageCreator, config *Config, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicClient{messages: messages, config: config, logger: logger}
}

// GenerateContent generates text content using the specified model tier
func (c *AnthropicClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.send(ctx, prompt, tier)
}

// GenerateJSON generates JSON content using the specified model tier
func (c *AnthropicClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.send(ctx, prompt+"\n\nReturn ONLY the JSON object.", tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *AnthropicClient) send(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model := c.config.GetModel(tier)
	if model == "" {
		return "", errors.Errorf("no model configured for tier %s", tier)
	}
	maxTokens := c.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	c.logger.Debug("anthropic request", "model", model, "tier", tier, "prompt_chars", len(prompt))
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(c.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		classified := Classify(errors.Wrap(err, "claude request failed"))
		c.logger.Warn("anthropic request failed", "model", model, "kind", KindOf(classified), "error", err)
		return "", classified
	}

	return textFromMessage(resp)
}

func textFromMessage(resp *anthropic.Message) (string, error) {
	if resp == nil || len(resp.Content) == 0 {
		return "", NewMalformedResponseError("no content in Claude response")
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", NewMalformedResponseError("no text blocks in Claude response")
	}
	return sb.String(), nil
}

// GetModel returns the model name for a tier
func (c *AnthropicClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the SDK client holds no long-lived resources.
func (c *AnthropicClient) Close() error {
	return nil
}
