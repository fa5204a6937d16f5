package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/intent-chatbot/services"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{
		ID:       "mock-response-123",
		Model:    req.Model,
		Provider: m.name,
		Choices:  []Choice{{Message: Message{Role: RoleAssistant, Content: "mock"}}},
	}, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.RegisterProvider(NewMockProvider("groq")))
	require.NoError(t, registry.RegisterProvider(NewMockProvider("anthropic")))

	assert.ErrorIs(t, registry.RegisterProvider(NewMockProvider("groq")), ErrProviderAlreadyRegistered)
	assert.Error(t, registry.RegisterProvider(nil))
	assert.Error(t, registry.RegisterProvider(NewMockProvider("")))

	provider, err := registry.GetProvider("groq")
	require.NoError(t, err)
	assert.Equal(t, "groq", provider.Name())

	_, err = registry.GetProvider("gemini")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	assert.Equal(t, []string{"anthropic", "groq"}, registry.ListProviders())
}

func TestChatResponse_FirstContent(t *testing.T) {
	var nilResp *ChatResponse
	_, ok := nilResp.FirstContent()
	assert.False(t, ok)

	_, ok = (&ChatResponse{}).FirstContent()
	assert.False(t, ok)

	content, ok := (&ChatResponse{Choices: []Choice{{Message: Message{Content: "hi"}}}}).FirstContent()
	assert.True(t, ok)
	assert.Equal(t, "hi", content)
}

func TestProviderConfig_ResolveCredential(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "secret")

	key, err := ProviderConfig{Credential: EnvCredential("TEST_PROVIDER_KEY")}.ResolveCredential("groq")
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	_, err = ProviderConfig{CredentialName: "GROQ_API_KEY"}.ResolveCredential("groq")
	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, CodeMissingCredential, provErr.Code)
	assert.Equal(t, "missing GROQ_API_KEY in environment", provErr.Error())
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeUnauthorized},
		{http.StatusGatewayTimeout, CodeTimeout},
		{http.StatusTooManyRequests, CodeUpstream},
		{http.StatusInternalServerError, CodeUpstream},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	authErr := ToDomainError(NewProviderError("groq", CodeUnauthorized, "invalid key", 401, nil))
	assert.True(t, services.IsAuthError(authErr))
	assert.Equal(t, "groq", services.GetErrorDetails(authErr)["provider"])

	upstreamErr := ToDomainError(NewProviderError("groq", CodeUpstream, "boom", 500, nil))
	assert.True(t, services.IsUpstreamError(upstreamErr))
	assert.Equal(t, 500, services.GetErrorDetails(upstreamErr)["status_code"])

	timeoutErr := ToDomainError(NewProviderError("groq", CodeTimeout, "slow", 0, context.DeadlineExceeded))
	assert.True(t, services.IsTimeout(timeoutErr))

	already := services.NewAuthError("missing", nil)
	assert.Same(t, already, ToDomainError(already))

	assert.True(t, services.IsUpstreamError(ToDomainError(errors.New("dial tcp: refused"))))
}
