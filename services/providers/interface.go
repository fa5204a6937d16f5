package providers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/upb/intent-chatbot/services"
)

// Provider is a chat-completion backend used for grounded generation
type Provider interface {
	// Name returns the provider name (e.g., "groq", "openai", "anthropic")
	Name() string

	// ChatCompletion performs a single non-streaming chat completion
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Message roles understood by every provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a provider-neutral chat completion request
type ChatRequest struct {
	// Model identifier; empty selects the provider default
	Model string `json:"model"`

	// Messages in order; system messages are hoisted by providers that need it
	Messages []Message `json:"messages"`

	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Metadata for logging
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message represents a single role-tagged message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a provider-neutral chat completion response
type ChatResponse struct {
	ID       string        `json:"id"`
	Model    string        `json:"model"`
	Choices  []Choice      `json:"choices"`
	Usage    Usage         `json:"usage"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FirstContent returns the first choice's text, or false when there is none
func (r *ChatResponse) FirstContent() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	return r.Choices[0].Message.Content, true
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// Credential is resolved on every call so rotated keys apply immediately
	Credential CredentialSource

	// CredentialName is reported when the credential is missing
	CredentialName string

	// BaseURL for the API (optional override)
	BaseURL string

	// Model used when a request leaves Model empty
	DefaultModel string

	// Timeout bounds every outbound call
	Timeout time.Duration

	// HTTPClient overrides the transport; tests point it at httptest servers
	HTTPClient *http.Client
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 60 * time.Second,
	}
}

// Client returns the configured HTTP client, or one bounded by Timeout
func (c ProviderConfig) Client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// CredentialSource yields the bearer credential for one outbound call
type CredentialSource func() string

// EnvCredential reads the named environment variable at call time
func EnvCredential(name string) CredentialSource {
	return func() string {
		return os.Getenv(name)
	}
}

// StaticCredential always returns key
func StaticCredential(key string) CredentialSource {
	return func() string {
		return key
	}
}

// ResolveCredential returns the current credential or a ProviderError with
// code "missing_credential"
func (c ProviderConfig) ResolveCredential(provider string) (string, error) {
	key := ""
	if c.Credential != nil {
		key = c.Credential()
	}
	if key == "" {
		name := c.CredentialName
		if name == "" {
			name = "API key"
		}
		return "", NewProviderError(provider, CodeMissingCredential, "missing "+name+" in environment", 0, nil)
	}
	return key, nil
}

// Provider error codes
const (
	CodeMissingCredential = "missing_credential"
	CodeUnauthorized      = "unauthorized"
	CodeUpstream          = "upstream_error"
	CodeTimeout           = "timeout"
	CodeMalformedResponse = "malformed_response"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// ClassifyStatus picks the provider error code for an HTTP status
func ClassifyStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodeUnauthorized
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return CodeTimeout
	default:
		return CodeUpstream
	}
}

// ToDomainError converts provider failures into the service error taxonomy.
// Credential problems become auth errors; everything else is upstream.
func ToDomainError(err error) error {
	if err == nil {
		return nil
	}
	if services.GetErrorType(err) != "" {
		return err
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case CodeMissingCredential, CodeUnauthorized:
			return services.NewAuthError(provErr.Message, err).
				WithDetail("provider", provErr.Provider)
		default:
			domainErr := services.NewUpstreamError(provErr.Message, err).
				WithDetail("provider", provErr.Provider)
			if provErr.StatusCode != 0 {
				domainErr.WithDetail("status_code", provErr.StatusCode)
			}
			if provErr.Code == CodeTimeout {
				domainErr.WithDetail("timeout", true)
			}
			return domainErr
		}
	}

	return services.NewUpstreamError("provider call failed", err)
}
