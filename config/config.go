package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Dataset       DatasetConfig
	Retrieval     RetrievalConfig
	Embedding     EmbeddingConfig
	Generation    GenerationConfig
	Audit         AuditConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string `validate:"oneof=development dev staging production prod test"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatasetConfig locates the intent dataset loaded at startup
type DatasetConfig struct {
	Path string `validate:"required"`
}

// RetrievalConfig holds the per-call defaults for intent search
type RetrievalConfig struct {
	TopK      int     `validate:"min=0"`
	Threshold float64 `validate:"gt=0"`
}

// EmbeddingConfig selects the embedding backend
type EmbeddingConfig struct {
	Provider   string `validate:"oneof=hash openai"`
	Model      string
	BaseURL    string
	APIKeyEnv  string
	Dimensions int `validate:"min=1"`
	BatchSize  int `validate:"min=1"`
	Timeout    time.Duration
}

// GenerationConfig selects the chat completion backend. The API key itself
// is never stored; APIKeyEnv names the variable read on every call.
type GenerationConfig struct {
	Provider    string `validate:"oneof=groq openai anthropic"`
	Model       string
	BaseURL     string
	APIKeyEnv   string `validate:"required"`
	Company     string
	MaxTokens   int     `validate:"min=0"`
	Temperature float64 `validate:"min=0,max=2"`
	Timeout     time.Duration
}

// AuditConfig enables the PostgreSQL chat log
type AuditConfig struct {
	Enabled     bool
	Redact      bool
	BufferSize  int
	WorkerCount int
	Database    DatabaseConfig
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig enables HMAC bearer tokens on the chat API
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	Issuer    string
}

// RateLimitConfig throttles POST /api/chat per caller. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `validate:"min=0"`
	Burst             int `validate:"min=0"`
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

// Provider defaults applied when GENERATION_* overrides are absent
var generationDefaults = map[string]struct {
	model     string
	baseURL   string
	apiKeyEnv string
}{
	"groq":      {model: "llama3-8b-8192", baseURL: "https://api.groq.com/openai/v1", apiKeyEnv: "GROQ_API_KEY"},
	"openai":    {model: "gpt-4o-mini", baseURL: "https://api.openai.com/v1", apiKeyEnv: "OPENAI_API_KEY"},
	"anthropic": {model: "claude-3-5-haiku-latest", baseURL: "", apiKeyEnv: "ANTHROPIC_API_KEY"},
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := Load()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Load reads the configuration from the environment without validating it
func Load() *Config {
	provider := strings.ToLower(getEnv("GENERATION_PROVIDER", "groq"))
	defaults := generationDefaults[provider]

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 75*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Dataset: DatasetConfig{
			Path: getEnv("DATASET_PATH", "expert_soft_chatbot_dataset.json"),
		},
		Retrieval: RetrievalConfig{
			TopK:      getEnvAsInt("RETRIEVAL_TOP_K", 5),
			Threshold: getEnvAsFloat("RETRIEVAL_THRESHOLD", 0.5),
		},
		Embedding: EmbeddingConfig{
			Provider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", "hash")),
			Model:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			APIKeyEnv:  getEnv("EMBEDDING_API_KEY_ENV", "OPENAI_API_KEY"),
			Dimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 384),
			BatchSize:  getEnvAsInt("EMBEDDING_BATCH_SIZE", 64),
			Timeout:    getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Generation: GenerationConfig{
			Provider:    provider,
			Model:       getEnv("GENERATION_MODEL", defaults.model),
			BaseURL:     getEnv("GENERATION_BASE_URL", defaults.baseURL),
			APIKeyEnv:   getEnv("GENERATION_API_KEY_ENV", defaults.apiKeyEnv),
			Company:     getEnv("ASSISTANT_COMPANY", "Expert Soft Solution"),
			MaxTokens:   getEnvAsInt("GENERATION_MAX_TOKENS", 1024),
			Temperature: getEnvAsFloat("GENERATION_TEMPERATURE", 0),
			Timeout:     getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		Audit: AuditConfig{
			Enabled:     getEnvAsBool("AUDIT_ENABLED", false),
			Redact:      getEnvAsBool("AUDIT_REDACT", true),
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("AUDIT_WORKERS", 2),
			Database:    loadDatabaseConfig(),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// Validate checks field ranges and the cross-field requirements of the
// optional features, reporting every problem at once
func (c *Config) Validate() error {
	var problems []string

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		problems = append(problems, "AUTH_JWT_SECRET is required when AUTH_ENABLED is set")
	}

	if c.Audit.Enabled {
		db := c.Audit.Database
		if db.ConnectionString == "" && (db.Host == "" || db.User == "" || db.Database == "") {
			problems = append(problems, "audit database requires DATABASE_URL or DB_HOST, DB_USER and DB_NAME")
		}
		if c.Audit.WorkerCount < 1 || c.Audit.BufferSize < 1 {
			problems = append(problems, "audit workers and buffer size must be positive")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}

	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "")
	pool.Password = getEnv("DB_PASSWORD", "")
	pool.Database = getEnv("DB_NAME", "chatbot")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 5000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 5000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
