package embedding

import (
	"context"
	"fmt"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/upb/intent-chatbot/services/providers"
	openaiprovider "github.com/upb/intent-chatbot/services/providers/openai"
)

// DefaultOpenAIModel is used when no embedding model is configured
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint
type OpenAIEmbedder struct {
	model  string
	config providers.ProviderConfig
}

// NewOpenAIEmbedder creates an embedder. The credential is resolved on every call.
func NewOpenAIEmbedder(model string, config providers.ProviderConfig) *OpenAIEmbedder {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if config.BaseURL == "" {
		config.BaseURL = openaiprovider.OpenAIBaseURL
	}
	if config.CredentialName == "" {
		config.CredentialName = "OPENAI_API_KEY"
	}
	if config.Credential == nil {
		config.Credential = providers.EnvCredential(config.CredentialName)
	}
	if config.Timeout == 0 {
		config.Timeout = providers.DefaultProviderConfig().Timeout
	}
	return &OpenAIEmbedder{model: model, config: config}
}

// Embed implements Embedder. Failures are returned as auth or upstream errors.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	client, err := openaiprovider.NewClient("embeddings", e.config)
	if err != nil {
		return nil, providers.ToDomainError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	resp, err := client.CreateEmbeddings(ctx, gopenai.EmbeddingRequest{
		Input: texts,
		Model: gopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, providers.ToDomainError(openaiprovider.WrapError("embeddings", "embedding request failed", err))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, providers.ToDomainError(providers.NewProviderError("embeddings", providers.CodeMalformedResponse,
				fmt.Sprintf("embedding response has invalid item at index %d", d.Index), 0, nil))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, providers.ToDomainError(providers.NewProviderError("embeddings", providers.CodeMalformedResponse,
				fmt.Sprintf("embedding response is missing text %d", i), 0, nil))
		}
	}

	return vectors, nil
}
