package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/intent-chatbot/config"
	"github.com/upb/intent-chatbot/middleware"
	"github.com/upb/intent-chatbot/repositories"
	"github.com/upb/intent-chatbot/repositories/postgres"
	"github.com/upb/intent-chatbot/services/audit"
	"github.com/upb/intent-chatbot/services/chat"
	"github.com/upb/intent-chatbot/services/embedding"
	"github.com/upb/intent-chatbot/services/generation"
	"github.com/upb/intent-chatbot/services/index"
	"github.com/upb/intent-chatbot/services/knowledge"
	"github.com/upb/intent-chatbot/services/providers"
	"github.com/upb/intent-chatbot/services/providers/anthropic"
	openaiprovider "github.com/upb/intent-chatbot/services/providers/openai"
	"github.com/upb/intent-chatbot/services/ratelimit"
	"github.com/upb/intent-chatbot/services/retrieval"
	"go.uber.org/zap"
)

// Dependencies holds everything the HTTP server and CLI need.
// The knowledge store and index are built once and are read-only afterwards.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB

	// Knowledge base
	Store    *knowledge.Store
	Index    *index.FlatIndex
	Embedder embedding.Embedder

	// Pipeline
	Retriever *retrieval.Retriever
	Providers *providers.Registry
	Generator generation.Generator
	Chat      *chat.Service

	// Chat audit log
	ChatLogs repositories.ChatLogRepository
	Audit    *audit.Service

	// Request guards
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *ratelimit.Service
}

// Option customizes NewDependencies
type Option func(*options)

type options struct {
	embedder embedding.Embedder
	provider providers.Provider
	db       *postgres.DB
	records  []knowledge.Record
}

// WithEmbedder replaces the configured embedding backend
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithProvider replaces the configured generation backend
func WithProvider(p providers.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithDB uses an already opened database for the chat audit log
func WithDB(db *postgres.DB) Option {
	return func(o *options) { o.db = db }
}

// WithRecords skips reading the dataset file
func WithRecords(records []knowledge.Record) Option {
	return func(o *options) { o.records = records }
}

// NewDependencies loads the dataset, builds the index and wires the chat
// pipeline. A malformed dataset or an empty corpus aborts startup.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initKnowledge(ctx, o); err != nil {
		return nil, err
	}

	if err := deps.initGeneration(o); err != nil {
		return nil, fmt.Errorf("failed to initialize generation: %w", err)
	}

	if err := deps.initAudit(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to initialize chat audit log: %w", err)
	}

	deps.initAuth()
	deps.RateLimiter = ratelimit.NewService(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}, logger)

	providerName := cfg.Generation.Provider
	if o.provider != nil {
		providerName = o.provider.Name()
	}

	var sink chat.AuditSink
	if deps.Audit != nil {
		sink = deps.Audit
	}
	deps.Chat = chat.NewService(deps.Retriever, deps.Store, deps.Generator, sink, chat.Config{
		TopK:             cfg.Retrieval.TopK,
		Threshold:        cfg.Retrieval.Threshold,
		RetrievalTimeout: cfg.Embedding.Timeout,
		ProviderName:     providerName,
		RedactAudit:      cfg.Audit.Redact,
	}, logger)

	logger.Info("all dependencies initialized successfully",
		zap.Int("records", deps.Store.Len()),
		zap.Int("vectors", deps.Index.Len()),
		zap.Int("dimension", deps.Index.Dimension()),
		zap.String("provider", providerName))
	return deps, nil
}

// initKnowledge loads the dataset and builds the vector index
func (d *Dependencies) initKnowledge(ctx context.Context, o options) error {
	records := o.records
	if records == nil {
		loaded, err := knowledge.Load(d.Config.Dataset.Path)
		if err != nil {
			return err
		}
		records = loaded
	}

	d.Store = knowledge.NewStore(records)
	corpus := knowledge.Flatten(d.Store.Records())

	d.Embedder = o.embedder
	if d.Embedder == nil {
		d.Embedder = d.newEmbedder()
	}

	start := time.Now()
	vectors, err := embedding.EmbedAll(ctx, d.Embedder, corpus.Utterances, d.Config.Embedding.BatchSize)
	if err != nil {
		return err
	}

	idx, err := index.Build(vectors)
	if err != nil {
		return err
	}
	d.Index = idx

	retriever, err := retrieval.NewRetriever(d.Embedder, idx, corpus.IntentLabels, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}
	d.Retriever = retriever

	d.Logger.Info("knowledge index built",
		zap.String("dataset", d.Config.Dataset.Path),
		zap.Int("intents", len(d.Store.Intents())),
		zap.Int("utterances", corpus.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (d *Dependencies) newEmbedder() embedding.Embedder {
	cfg := d.Config.Embedding
	if cfg.Provider == "openai" {
		return embedding.NewOpenAIEmbedder(cfg.Model, providers.ProviderConfig{
			Credential:     providers.EnvCredential(cfg.APIKeyEnv),
			CredentialName: cfg.APIKeyEnv,
			BaseURL:        cfg.BaseURL,
			Timeout:        cfg.Timeout,
		})
	}
	return embedding.NewHashEmbedder(cfg.Dimensions)
}

// initGeneration registers every generation backend and selects the configured one
func (d *Dependencies) initGeneration(o options) error {
	cfg := d.Config.Generation
	registry := providers.NewRegistry()

	selected := providers.ProviderConfig{
		Credential:     providers.EnvCredential(cfg.APIKeyEnv),
		CredentialName: cfg.APIKeyEnv,
		BaseURL:        cfg.BaseURL,
		DefaultModel:   cfg.Model,
		Timeout:        cfg.Timeout,
	}
	configFor := func(name string) providers.ProviderConfig {
		if name == cfg.Provider {
			return selected
		}
		return providers.ProviderConfig{Timeout: cfg.Timeout}
	}

	backends := []providers.Provider{
		openaiprovider.NewGroqAdapter(configFor("groq")),
		openaiprovider.NewOpenAIAdapter(configFor("openai")),
		anthropic.NewAnthropicAdapter(configFor("anthropic")),
	}
	for _, p := range backends {
		if err := registry.RegisterProvider(p); err != nil {
			return fmt.Errorf("failed to register %s: %w", p.Name(), err)
		}
	}

	provider := o.provider
	if provider == nil {
		var err error
		provider, err = registry.GetProvider(cfg.Provider)
		if err != nil {
			return fmt.Errorf("generation provider %q: %w", cfg.Provider, err)
		}
	}

	d.Providers = registry
	d.Generator = generation.NewGroundedGenerator(provider, generation.Options{
		Company:     cfg.Company,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, d.Logger)

	d.Logger.Info("generation backend selected",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Model),
		zap.Strings("registered", registry.ListProviders()))
	return nil
}

// initAudit opens the chat log database and starts the audit workers
func (d *Dependencies) initAudit(ctx context.Context, o options) error {
	cfg := d.Config.Audit
	if !cfg.Enabled && o.db == nil {
		d.Logger.Info("chat audit log disabled")
		return nil
	}

	db := o.db
	if db == nil {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database, d.Logger)
		if err != nil {
			return err
		}
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	d.ChatLogs = postgres.NewChatLogRepository(db, d.Logger)
	d.Audit = audit.NewService(d.ChatLogs, d.Logger, audit.Config{
		BufferSize:  cfg.BufferSize,
		WorkerCount: cfg.WorkerCount,
	})
	return d.Audit.Start()
}

func (d *Dependencies) initAuth() {
	if !d.Config.Auth.Enabled {
		return
	}
	validator := middleware.NewHMACValidator(d.Config.Auth.JWTSecret, d.Config.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("bearer authentication enabled on chat API")
}

// Close drains the audit log and releases the database
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		timeout := 10 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil && !errors.Is(err, audit.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
