// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI,
// Groq) to the providers.Provider interface.
package openai

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/upb/intent-chatbot/services/providers"
)

const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"

	GroqDefaultModel   = "llama3-8b-8192"
	OpenAIDefaultModel = "gpt-4o-mini"

	defaultTimeout = 60 * time.Second
)

// OpenAIAdapter implements providers.Provider for any endpoint speaking the
// OpenAI chat completions protocol
type OpenAIAdapter struct {
	name   string
	config providers.ProviderConfig
}

// NewOpenAIAdapter creates an adapter for api.openai.com unless config overrides the base URL
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = OpenAIBaseURL
	}
	if config.DefaultModel == "" {
		config.DefaultModel = OpenAIDefaultModel
	}
	if config.CredentialName == "" {
		config.CredentialName = "OPENAI_API_KEY"
	}
	return newAdapter("openai", config)
}

// NewGroqAdapter creates an adapter for Groq's OpenAI-compatible endpoint
func NewGroqAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = GroqBaseURL
	}
	if config.DefaultModel == "" {
		config.DefaultModel = GroqDefaultModel
	}
	if config.CredentialName == "" {
		config.CredentialName = "GROQ_API_KEY"
	}
	return newAdapter("groq", config)
}

func newAdapter(name string, config providers.ProviderConfig) *OpenAIAdapter {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.Credential == nil {
		config.Credential = providers.EnvCredential(config.CredentialName)
	}
	return &OpenAIAdapter{
		name:   name,
		config: config,
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// ChatCompletion performs a chat completion request. The credential is
// resolved per call and no retries are attempted.
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	client, err := NewClient(a.name, a.config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, a.buildRequest(req))
	if err != nil {
		return nil, WrapError(a.name, "chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.name, providers.CodeMalformedResponse, "chat completion returned no choices", 0, nil)
	}

	return a.convertResponse(&resp, time.Since(startTime)), nil
}

func (a *OpenAIAdapter) buildRequest(req *providers.ChatRequest) gopenai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = a.config.DefaultModel
	}

	messages := make([]gopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, gopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return gopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
}

func (a *OpenAIAdapter) convertResponse(resp *gopenai.ChatCompletionResponse, latency time.Duration) *providers.ChatResponse {
	choices := make([]providers.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, providers.Choice{
			Index: c.Index,
			Message: providers.Message{
				Role:    c.Message.Role,
				Content: c.Message.Content,
			},
			FinishReason: string(c.FinishReason),
		})
	}

	return &providers.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider: a.name,
		Latency:  latency,
	}
}

// NewClient builds a go-openai client for one call, resolving the
// credential from config
func NewClient(provider string, config providers.ProviderConfig) (*gopenai.Client, error) {
	key, err := config.ResolveCredential(provider)
	if err != nil {
		return nil, err
	}

	clientConfig := gopenai.DefaultConfig(key)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = config.Client()

	return gopenai.NewClientWithConfig(clientConfig), nil
}

// WrapError converts go-openai and transport errors into a ProviderError
func WrapError(provider, message string, err error) error {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(provider, providers.ClassifyStatus(apiErr.HTTPStatusCode), message, apiErr.HTTPStatusCode, err)
	}

	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewProviderError(provider, providers.ClassifyStatus(reqErr.HTTPStatusCode), message, reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return providers.NewProviderError(provider, providers.CodeTimeout, message+": timed out", 0, err)
	}

	return providers.NewProviderError(provider, providers.CodeUpstream, message, 0, err)
}
