// Package chat answers user questions by retrieving matching intents and
// grounding a generated reply in their canned responses.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/upb/intent-chatbot/internal/redact"
	"github.com/upb/intent-chatbot/models"
	"github.com/upb/intent-chatbot/services"
	"github.com/upb/intent-chatbot/services/generation"
	"github.com/upb/intent-chatbot/services/grounding"
	"github.com/upb/intent-chatbot/services/knowledge"
	"github.com/upb/intent-chatbot/services/retrieval"
	"go.uber.org/zap"
)

// IntentRetriever finds the intents relevant to a query
type IntentRetriever interface {
	SearchTopIntents(ctx context.Context, query string, k int, threshold float64) (retrieval.IntentSet, error)
}

// AuditSink receives a record of every finished exchange
type AuditSink interface {
	LogChat(log *models.ChatLog) error
}

// Config holds the per-service defaults
type Config struct {
	TopK             int
	Threshold        float64
	RetrievalTimeout time.Duration
	ProviderName     string
	// RedactAudit masks personal data in the query and answer before they
	// reach the audit sink
	RedactAudit bool
}

// Result is the outcome of one exchange
type Result struct {
	Answer     string
	Intents    []string
	DetailHint bool
	Fallback   bool
	Latency    time.Duration
}

// Service orchestrates retrieval, context assembly and generation
type Service struct {
	retriever IntentRetriever
	records   []knowledge.Record
	generator generation.Generator
	audit     AuditSink
	config    Config
	logger    *zap.Logger
}

// NewService creates a chat Service. audit may be nil.
func NewService(retriever IntentRetriever, store *knowledge.Store, generator generation.Generator, audit AuditSink, config Config, logger *zap.Logger) *Service {
	if config.TopK == 0 && config.Threshold == 0 {
		config.TopK = retrieval.DefaultTopK
		config.Threshold = retrieval.DefaultThreshold
	}
	return &Service{
		retriever: retriever,
		records:   store.Records(),
		generator: generator,
		audit:     audit,
		config:    config,
		logger:    logger,
	}
}

type requestOptions struct {
	topK      int
	threshold float64
	requestID string
}

// Option overrides a per-request setting
type Option func(*requestOptions)

// WithTopK sets how many nearest utterances are considered
func WithTopK(k int) Option {
	return func(o *requestOptions) { o.topK = k }
}

// WithThreshold sets the exclusive distance cutoff
func WithThreshold(threshold float64) Option {
	return func(o *requestOptions) { o.threshold = threshold }
}

// WithRequestID tags the audit record with the caller's request id
func WithRequestID(id string) Option {
	return func(o *requestOptions) { o.requestID = id }
}

// Chat returns the answer text for query
func (s *Service) Chat(ctx context.Context, query string, opts ...Option) (string, error) {
	result, err := s.Respond(ctx, query, opts...)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}

// Respond runs the full pipeline for query. A query that matches no intent
// gets generation.FallbackAnswer and the generator is not called.
func (s *Service) Respond(ctx context.Context, query string, opts ...Option) (*Result, error) {
	o := requestOptions{topK: s.config.TopK, threshold: s.config.Threshold}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(query) == "" {
		return nil, services.ErrEmptyQuery
	}

	start := time.Now()
	log := models.NewChatLog(o.requestID, s.auditText(query))

	result, err := s.respond(ctx, query, o)
	if err != nil {
		log.WithRetrieval(o.topK, o.threshold, nil).
			WithError(string(services.GetErrorType(err)), s.auditText(err.Error())).
			WithLatency(time.Since(start))
		s.record(log)
		s.logger.Warn("chat request failed",
			zap.String("request_id", o.requestID),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
		return nil, err
	}

	result.Latency = time.Since(start)
	log.WithRetrieval(o.topK, o.threshold, result.Intents).
		WithAnswer(s.auditText(result.Answer), result.Fallback, result.DetailHint).
		WithLatency(result.Latency)
	if !result.Fallback {
		log.WithProvider(s.config.ProviderName)
	}
	s.record(log)

	s.logger.Info("chat request answered",
		zap.String("request_id", o.requestID),
		zap.Strings("intents", result.Intents),
		zap.Bool("fallback", result.Fallback),
		zap.Bool("detail", result.DetailHint),
		zap.Duration("latency", result.Latency))

	return result, nil
}

func (s *Service) respond(ctx context.Context, query string, o requestOptions) (*Result, error) {
	retrieveCtx := ctx
	if s.config.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		retrieveCtx, cancel = context.WithTimeout(ctx, s.config.RetrievalTimeout)
		defer cancel()
	}

	matched, err := s.retriever.SearchTopIntents(retrieveCtx, query, o.topK, o.threshold)
	if err != nil {
		return nil, asDomainError("intent retrieval failed", err)
	}

	if matched.Len() == 0 {
		return &Result{
			Answer:   generation.FallbackAnswer,
			Intents:  []string{},
			Fallback: true,
		}, nil
	}

	groundingContext := grounding.AssembleContext(matched, s.records)
	detail := generation.NeedsDetail(query)

	answer, err := s.generator.Generate(ctx, query, groundingContext, detail)
	if err != nil {
		return nil, asDomainError("generation failed", err)
	}

	return &Result{
		Answer:     answer,
		Intents:    matched.Sorted(),
		DetailHint: detail,
	}, nil
}

func asDomainError(message string, err error) error {
	if services.GetErrorType(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.NewUpstreamError(message, err)
	}
	return services.WrapInternal(message, err)
}

func (s *Service) auditText(text string) string {
	if !s.config.RedactAudit {
		return text
	}
	return redact.Text(text)
}

func (s *Service) record(log *models.ChatLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogChat(log); err != nil {
		s.logger.Debug("chat log not recorded", zap.Error(err))
	}
}
