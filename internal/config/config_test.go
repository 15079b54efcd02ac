package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"finchat/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
auth:
  secret: "${TEST_JWT_SECRET}"
sources:
  - https://markets.example/us
vector_store:
  type: memory
`

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "http", cfg.Scraper.Mode)
	assert.Equal(t, 1024, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1, cfg.Retrieval.EmbedConcurrency)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, "finance-index", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 3, cfg.LLM.MaxFailuresBeforeSwitch)
	assert.Equal(t, 50, cfg.LLM.MinFragmentLength)
	assert.Equal(t, 3, cfg.LLM.FallbackFragments)
	assert.Equal(t, 200, cfg.LLM.FallbackFragmentLength)
	assert.Equal(t, 20, cfg.History.Limit)
}

func TestLoadConfig_GeminiEmbeddingDefaults(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
embedding:
  provider: gemini
`))
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-004", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Empty(t, cfg.Embedding.BaseURL)
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8088")
	t.Setenv("TEST_GROQ_KEY", "gsk-test")
	t.Setenv("TEST_ADMIN_PASSWORD", "123456")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
server:
  port: "3000"
seed_users:
  - username: Admin
    password: "${TEST_ADMIN_PASSWORD}"
llm:
  enabled: true
  providers:
    - type: groq
      api_key: "${TEST_GROQ_KEY}"
      model_name: llama-3.3-70b-versatile
      timeout: 60s
`))
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Server.Port)
	require.Len(t, cfg.SeedUsers, 1)
	assert.Equal(t, "123456", cfg.SeedUsers[0].Password)
	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, llm.ProviderGroq, cfg.LLM.Providers[0].Type)
	assert.Equal(t, "gsk-test", cfg.LLM.Providers[0].APIKey)
	assert.Equal(t, 60*time.Second, cfg.LLM.Providers[0].Timeout)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "")

	tests := []struct {
		name    string
		body    string
		wantErr []string
	}{
		{
			name:    "missing secret and sources",
			body:    "vector_store:\n  type: memory\n",
			wantErr: []string{"auth.secret is required", "at least one source URL is required"},
		},
		{
			name: "negative sizes",
			body: `
auth: {secret: x}
sources: [https://a.example]
vector_store: {type: memory}
retrieval: {chunk_size: -1, top_k: -2}
`,
			wantErr: []string{"retrieval.chunk_size must be positive", "retrieval.top_k must be positive"},
		},
		{
			name: "unknown backends",
			body: `
auth: {secret: x}
sources: [https://a.example]
database: {type: mongo}
scraper: {mode: curl}
embedding: {provider: cohere}
vector_store: {type: milvus}
`,
			wantErr: []string{"unknown database type: mongo", "unknown scraper mode: curl", "unknown embedding provider: cohere", "unknown vector store: milvus"},
		},
		{
			name: "missing endpoints",
			body: `
auth: {secret: x}
sources: [https://a.example]
database: {type: postgres}
`,
			wantErr: []string{"database.url is required for postgres", "vector_store.pinecone.host is required"},
		},
		{
			name: "llm without providers and bad seed",
			body: `
auth: {secret: x}
sources: [https://a.example]
vector_store: {type: memory}
llm: {enabled: true}
seed_users:
  - username: Admin
`,
			wantErr: []string{"llm.enabled requires at least one provider", "seed_users[0]: password or password_hash is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorContains(t, err, "failed to open config file")
}

func TestLoadConfig_ShippedExample(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_PASSWORD", "123456")
	t.Setenv("PINECONE_HOST", "finance-abc.svc.pinecone.io")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.investing.com/markets/united-states"}, cfg.Sources)
	assert.Equal(t, "Admin", cfg.SeedUsers[0].Username)
	assert.Len(t, cfg.LLM.Providers, 3)
}
