package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/intent-chatbot/services"
	"github.com/upb/intent-chatbot/services/providers"
)

func testRequest() *providers.ChatRequest {
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "Only answer from context."},
			{Role: providers.RoleUser, Content: "When do you open?"},
		},
	}
}

func TestAnthropicAdapter_ChatCompletion(t *testing.T) {
	var received map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "We open at 9."}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 30, "output_tokens": 6}
		}`))
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter(providers.ProviderConfig{
		BaseURL:    server.URL,
		Credential: providers.StaticCredential("test-key"),
	})

	resp, err := adapter.ChatCompletion(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, received["model"])
	assert.EqualValues(t, defaultMaxTokens, received["max_tokens"])

	system, ok := received["system"].([]interface{})
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "Only answer from context.", system[0].(map[string]interface{})["text"])

	messages, ok := received["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]interface{})["role"])

	content, ok := resp.FirstContent()
	require.True(t, ok)
	assert.Equal(t, "We open at 9.", content)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 36, resp.Usage.TotalTokens)
}

func TestAnthropicAdapter_MissingCredential(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	adapter := NewAnthropicAdapter(providers.ProviderConfig{})

	_, err := adapter.ChatCompletion(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, services.IsAuthError(providers.ToDomainError(err)))
}

func TestAnthropicAdapter_ErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantAuth bool
	}{
		{"unauthorized", http.StatusUnauthorized, true},
		{"overloaded", 529, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "api_error", "message": "nope"}}`))
			}))
			defer server.Close()

			adapter := NewAnthropicAdapter(providers.ProviderConfig{
				BaseURL:    server.URL,
				Credential: providers.StaticCredential("test-key"),
			})

			_, err := adapter.ChatCompletion(context.Background(), testRequest())
			require.Error(t, err)

			var provErr *providers.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.Equal(t, tt.status, provErr.StatusCode)

			domainErr := providers.ToDomainError(err)
			assert.Equal(t, tt.wantAuth, services.IsAuthError(domainErr))
			assert.Equal(t, !tt.wantAuth, services.IsUpstreamError(domainErr))
		})
	}
}
