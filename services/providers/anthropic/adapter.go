// Package anthropic adapts the Anthropic Messages API to providers.Provider.
package anthropic

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/upb/intent-chatbot/services/providers"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

// AnthropicAdapter implements providers.Provider for Claude models
type AnthropicAdapter struct {
	config providers.ProviderConfig
}

// NewAnthropicAdapter creates a new Anthropic adapter
func NewAnthropicAdapter(config providers.ProviderConfig) *AnthropicAdapter {
	if config.DefaultModel == "" {
		config.DefaultModel = DefaultModel
	}
	if config.CredentialName == "" {
		config.CredentialName = "ANTHROPIC_API_KEY"
	}
	if config.Credential == nil {
		config.Credential = providers.EnvCredential(config.CredentialName)
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &AnthropicAdapter{config: config}
}

// Name returns the provider name
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// ChatCompletion sends the request to the Messages API. System messages are
// hoisted into the top-level system prompt.
func (a *AnthropicAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	key, err := a.config.ResolveCredential(a.Name())
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
		option.WithHTTPClient(a.config.Client()),
	}
	if a.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.config.BaseURL))
	}
	client := sdk.NewClient(opts...)

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	msg, err := client.Messages.New(ctx, a.buildParams(req))
	if err != nil {
		return nil, wrapError(a.Name(), err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return nil, providers.NewProviderError(a.Name(), providers.CodeMalformedResponse, "message contained no text blocks", 0, nil)
	}

	return &providers.ChatResponse{
		ID:    msg.ID,
		Model: string(msg.Model),
		Choices: []providers.Choice{{
			Message: providers.Message{
				Role:    providers.RoleAssistant,
				Content: b.String(),
			},
			FinishReason: string(msg.StopReason),
		}},
		Usage: providers.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		Provider: a.Name(),
		Latency:  time.Since(startTime),
	}, nil
}

func (a *AnthropicAdapter) buildParams(req *providers.ChatRequest) sdk.MessageNewParams {
	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: msg.Content})
		case providers.RoleAssistant:
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}

	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	return params
}

func wrapError(provider string, err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(provider, providers.ClassifyStatus(apiErr.StatusCode), "messages request failed", apiErr.StatusCode, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return providers.NewProviderError(provider, providers.CodeTimeout, "messages request timed out", 0, err)
	}

	return providers.NewProviderError(provider, providers.CodeUpstream, "messages request failed", 0, err)
}
