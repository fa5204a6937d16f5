// Package generation asks a chat model for an answer grounded in retrieved
// context.
package generation

import (
	"context"
	"strings"
	"time"

	"github.com/upb/intent-chatbot/services"
	"github.com/upb/intent-chatbot/services/providers"
	"go.uber.org/zap"
)

// Generator produces an answer to query using only context
type Generator interface {
	Generate(ctx context.Context, query, context string, detailHint bool) (string, error)
}

// Options tune the completion request
type Options struct {
	Company     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GroundedGenerator renders the prompt and sends it to a chat provider
type GroundedGenerator struct {
	provider providers.Provider
	options  Options
	logger   *zap.Logger
}

// NewGroundedGenerator creates a generator backed by provider
func NewGroundedGenerator(provider providers.Provider, options Options, logger *zap.Logger) *GroundedGenerator {
	if options.Company == "" {
		options.Company = DefaultCompany
	}
	return &GroundedGenerator{
		provider: provider,
		options:  options,
		logger:   logger,
	}
}

// Generate implements Generator. Missing or rejected credentials surface as
// auth errors; failed calls, timeouts and empty completions as upstream errors.
func (g *GroundedGenerator) Generate(ctx context.Context, query, groundingContext string, detailHint bool) (string, error) {
	prompt, err := BuildPrompt(g.options.Company, query, groundingContext, detailHint)
	if err != nil {
		return "", services.WrapInternal("failed to render prompt", err)
	}

	req := &providers.ChatRequest{
		Model: g.options.Model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: SystemDirective},
			{Role: providers.RoleUser, Content: prompt},
		},
		MaxTokens:   g.options.MaxTokens,
		Temperature: g.options.Temperature,
	}

	start := time.Now()
	resp, err := g.provider.ChatCompletion(ctx, req)
	if err != nil {
		g.logger.Warn("generation call failed",
			zap.String("provider", g.provider.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", providers.ToDomainError(err)
	}

	content, ok := resp.FirstContent()
	content = strings.TrimSpace(content)
	if !ok || content == "" {
		return "", services.NewUpstreamError("generation returned an empty completion", nil).
			WithDetail("provider", g.provider.Name())
	}

	g.logger.Debug("generation completed",
		zap.String("provider", resp.Provider),
		zap.String("model", resp.Model),
		zap.Bool("detail", detailHint),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", resp.Latency))

	return content, nil
}
