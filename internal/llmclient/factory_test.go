package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharbelDaher34/jarvis/api/schemas"
	"github.com/CharbelDaher34/jarvis/internal/config"
)

func TestNewClient_BuildsTieredRouter(t *testing.T) {
	fastConfig := getValidModelConfig()
	fastConfig.Model = "gemini-flash"
	fastConfig.APIKey = "key-fast"

	powerfulConfig := getValidModelConfig()
	powerfulConfig.Model = "gemini-pro"
	powerfulConfig.APIKey = "key-powerful"

	cfg := config.LLMConfig{
		Provider: config.ProviderGemini,
		Fast:     fastConfig,
		Powerful: powerfulConfig,
	}

	client, err := NewClient(cfg, setupTestLogger(t))
	require.NoError(t, err)

	router, ok := client.(*LLMRouter)
	require.True(t, ok, "factory should return an LLMRouter")

	fast, ok := router.clients[schemas.TierFast].(*GeminiClient)
	require.True(t, ok)
	assert.Equal(t, "key-fast", fast.apiKey)

	powerful, ok := router.clients[schemas.TierPowerful].(*GeminiClient)
	require.True(t, ok)
	assert.Equal(t, "key-powerful", powerful.apiKey)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	cfg := config.LLMConfig{
		Provider: "openai",
		Fast:     getValidModelConfig(),
		Powerful: getValidModelConfig(),
	}

	client, err := NewClient(cfg, setupTestLogger(t))
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "unknown or unsupported LLM provider")
}

func TestNewClient_MissingAPIKeyFails(t *testing.T) {
	badFast := getValidModelConfig()
	badFast.APIKey = ""

	cfg := config.LLMConfig{
		Provider: config.ProviderGemini,
		Fast:     badFast,
		Powerful: getValidModelConfig(),
	}

	client, err := NewClient(cfg, setupTestLogger(t))
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "fast tier client")
}
