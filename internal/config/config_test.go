package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestSetDefaults_ProducesValidConfig(t *testing.T) {
	cfg := loadDefaults(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 20, cfg.Agent.MaxIterations)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.LLM.Fast.Model)
	assert.NotEmpty(t, cfg.LLM.Powerful.Model)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }},
		{"zero tool calls", func(c *Config) { c.Agent.MaxToolCalls = 0 }},
		{"attempt timeout too long", func(c *Config) {
			c.Resilience.Resolver.AttemptTimeout = c.Resilience.Resolver.ResolveTimeout
		}},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gpt-next" }},
		{"jitter out of range", func(c *Config) { c.Resilience.Retry.JitterFraction = 1.5 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_OverridesFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("agent.max_iterations", 5)
	v.Set("browser.blocked_domains", []string{"internal.corp"})

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, []string{"internal.corp"}, cfg.Browser.BlockedDomains)
}
