package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENVIRONMENT", "PORT", "SERVER_PORT", "SERVER_HOST", "SERVER_READ_TIMEOUT",
	"DATASET_PATH", "RETRIEVAL_TOP_K", "RETRIEVAL_THRESHOLD",
	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS", "EMBEDDING_BATCH_SIZE", "EMBEDDING_TIMEOUT",
	"GENERATION_PROVIDER", "GENERATION_MODEL", "GENERATION_BASE_URL", "GENERATION_API_KEY_ENV",
	"GENERATION_TIMEOUT", "GENERATION_TEMPERATURE", "ASSISTANT_COMPANY",
	"AUDIT_ENABLED", "AUDIT_WORKERS", "AUDIT_BUFFER_SIZE", "DATABASE_URL", "DB_HOST", "DB_USER", "DB_NAME", "DB_PASSWORD",
	"AUTH_ENABLED", "AUTH_JWT_SECRET", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.True(t, cfg.IsDevelopment())
				assert.Equal(t, "0.0.0.0:5000", cfg.Server.Address())
				assert.Equal(t, "expert_soft_chatbot_dataset.json", cfg.Dataset.Path)
				assert.Equal(t, 5, cfg.Retrieval.TopK)
				assert.Equal(t, 0.5, cfg.Retrieval.Threshold)
				assert.Equal(t, "hash", cfg.Embedding.Provider)
				assert.Equal(t, 384, cfg.Embedding.Dimensions)
				assert.Equal(t, "groq", cfg.Generation.Provider)
				assert.Equal(t, "llama3-8b-8192", cfg.Generation.Model)
				assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Generation.BaseURL)
				assert.Equal(t, "GROQ_API_KEY", cfg.Generation.APIKeyEnv)
				assert.Equal(t, 60*time.Second, cfg.Generation.Timeout)
				assert.Equal(t, "Expert Soft Solution", cfg.Generation.Company)
				assert.False(t, cfg.Audit.Enabled)
				assert.True(t, cfg.Audit.Redact)
				assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
				assert.Equal(t, 10, cfg.RateLimit.Burst)
				assert.False(t, cfg.Auth.Enabled)
				assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "anthropic provider defaults",
			envVars: map[string]string{
				"GENERATION_PROVIDER": "Anthropic",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "anthropic", cfg.Generation.Provider)
				assert.Equal(t, "claude-3-5-haiku-latest", cfg.Generation.Model)
				assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Generation.APIKeyEnv)
			},
		},
		{
			name: "overrides",
			envVars: map[string]string{
				"ENVIRONMENT":            "production",
				"PORT":                   "8080",
				"RETRIEVAL_TOP_K":        "3",
				"RETRIEVAL_THRESHOLD":    "0.8",
				"EMBEDDING_PROVIDER":     "openai",
				"GENERATION_MODEL":       "llama-3.1-8b-instant",
				"GENERATION_TIMEOUT":     "15s",
				"CORS_ALLOWED_ORIGINS":   "https://a.example, https://b.example",
				"AUTH_ENABLED":           "true",
				"AUTH_JWT_SECRET":        "s3cret",
				"AUDIT_ENABLED":          "true",
				"DATABASE_URL":           "postgres://bot:pw@db.internal:6543/chat?sslmode=require",
				"GENERATION_API_KEY_ENV": "MY_GROQ_KEY",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 3, cfg.Retrieval.TopK)
				assert.Equal(t, 0.8, cfg.Retrieval.Threshold)
				assert.Equal(t, "openai", cfg.Embedding.Provider)
				assert.Equal(t, "llama-3.1-8b-instant", cfg.Generation.Model)
				assert.Equal(t, "MY_GROQ_KEY", cfg.Generation.APIKeyEnv)
				assert.Equal(t, 15*time.Second, cfg.Generation.Timeout)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, "host=db.internal port=6543 database=chat", cfg.Audit.Database.LogString())
				assert.Equal(t, "postgres://bot:pw@db.internal:6543/chat?sslmode=require", cfg.Audit.Database.DSN())
			},
		},
		{
			name:    "unknown generation provider",
			envVars: map[string]string{"GENERATION_PROVIDER": "gemini"},
			wantErr: true,
		},
		{
			name:    "unknown embedding provider",
			envVars: map[string]string{"EMBEDDING_PROVIDER": "bert"},
			wantErr: true,
		},
		{
			name:    "non-positive threshold",
			envVars: map[string]string{"RETRIEVAL_THRESHOLD": "0"},
			wantErr: true,
		},
		{
			name:    "negative top k",
			envVars: map[string]string{"RETRIEVAL_TOP_K": "-1"},
			wantErr: true,
		},
		{
			name:    "auth without secret",
			envVars: map[string]string{"AUTH_ENABLED": "true"},
			wantErr: true,
		},
		{
			name:    "audit without database user",
			envVars: map[string]string{"AUDIT_ENABLED": "true"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	cfg.Server.Port = 0
	cfg.Auth.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "bot",
		Password: "secret",
		Database: "chatbot",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=localhost port=5432 user=bot password=secret dbname=chatbot sslmode=disable", db.DSN())
	assert.Equal(t, "host=localhost port=5432 database=chatbot", db.LogString())
	assert.NotContains(t, db.LogString(), "secret")
}
