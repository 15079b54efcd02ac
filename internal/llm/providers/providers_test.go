package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"finchat/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewFactory(t *testing.T) {
	factory := NewFactory(context.Background(), zap.NewNop())

	p, err := factory(llm.ProviderConfig{Type: llm.ProviderGroq, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "groq", p.GetModelInfo()["provider"])

	_, err = factory(llm.ProviderConfig{Type: "claude-by-pigeon", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewMultiProvider_FailsOver(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"from backup"}}]}`))
	}))
	defer up.Close()

	client, err := NewMultiProvider(context.Background(), []llm.ProviderConfig{
		{Type: llm.ProviderOpenAI, APIKey: "a", BaseURL: down.URL},
		{Type: llm.ProviderOpenRouter, APIKey: "b", BaseURL: up.URL},
	}, 1, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	out, err := client.Complete(context.Background(), llm.Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "from backup", out)
	assert.Equal(t, 1, client.GetModelInfo()["provider_index"])
}
