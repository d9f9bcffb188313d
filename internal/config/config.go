// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/CharbelDaher34/jarvis/internal/resilience"
	"github.com/CharbelDaher34/jarvis/internal/resolver"
)

// Config is the whole application configuration, unmarshalled from viper.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Resilience ResilienceConfig `mapstructure:"resilience" yaml:"resilience"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes, per rotated file
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// LLMProvider identifies a model backend.
type LLMProvider string

const ProviderGemini LLMProvider = "gemini"

// LLMConfig holds the model backend settings. The planner and critic run on
// the powerful tier; the actor runs on the fast tier.
type LLMConfig struct {
	Provider LLMProvider    `mapstructure:"provider" yaml:"provider"`
	Fast     LLMModelConfig `mapstructure:"fast" yaml:"fast"`
	Powerful LLMModelConfig `mapstructure:"powerful" yaml:"powerful"`
}

// LLMModelConfig configures one model endpoint.
type LLMModelConfig struct {
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxOutputTokens   int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// BrowserConfig controls the chromedp session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	StartURL          string        `mapstructure:"start_url" yaml:"start_url"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// BlockedDomains lists hosts the agent must never navigate to.
	// Violations are security errors and are never retried.
	BlockedDomains []string `mapstructure:"blocked_domains" yaml:"blocked_domains"`
}

// AgentConfig controls the orchestration loop and the acting role.
type AgentConfig struct {
	// MaxIterations caps plan/act/critique cycles per task.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// MultiAgent selects the full loop; false is the single-shot
	// pass-through to the actor.
	MultiAgent bool `mapstructure:"multi_agent" yaml:"multi_agent"`
	// MaxToolCalls caps the actor's inner tool loop per step.
	MaxToolCalls int `mapstructure:"max_tool_calls" yaml:"max_tool_calls"`
}

// ResilienceConfig groups the retry, breaker and resolver tuning knobs.
type ResilienceConfig struct {
	Retry    resilience.RetryConfig   `mapstructure:"retry" yaml:"retry"`
	Breaker  resilience.BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
	Resolver resolver.EngineConfig    `mapstructure:"resolver" yaml:"resolver"`
}

// SetDefaults registers every default on the given viper instance. Called
// before unmarshalling so a missing config file still yields a working setup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.service_name", "jarvis")
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.fast.model", "gemini-2.0-flash")
	v.SetDefault("llm.fast.api_timeout", 60*time.Second)
	v.SetDefault("llm.fast.max_output_tokens", 4096)
	v.SetDefault("llm.fast.temperature", 0.2)
	v.SetDefault("llm.fast.requests_per_minute", 60)
	v.SetDefault("llm.powerful.model", "gemini-2.5-pro")
	v.SetDefault("llm.powerful.api_timeout", 120*time.Second)
	v.SetDefault("llm.powerful.max_output_tokens", 8192)
	v.SetDefault("llm.powerful.temperature", 0.4)
	v.SetDefault("llm.powerful.requests_per_minute", 30)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.start_url", "https://www.google.com")
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.navigation_timeout", 45*time.Second)

	v.SetDefault("agent.max_iterations", 20)
	v.SetDefault("agent.multi_agent", true)
	v.SetDefault("agent.max_tool_calls", 8)

	retry := resilience.DefaultRetryConfig()
	v.SetDefault("resilience.retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("resilience.retry.base_delay", retry.BaseDelay)
	v.SetDefault("resilience.retry.max_delay", retry.MaxDelay)
	v.SetDefault("resilience.retry.multiplier", retry.Multiplier)
	v.SetDefault("resilience.retry.jitter_fraction", retry.JitterFraction)

	breaker := resilience.DefaultBreakerConfig()
	v.SetDefault("resilience.breaker.failure_threshold", breaker.FailureThreshold)
	v.SetDefault("resilience.breaker.recovery_timeout", breaker.RecoveryTimeout)

	engine := resolver.DefaultEngineConfig()
	v.SetDefault("resilience.resolver.resolve_timeout", engine.ResolveTimeout)
	v.SetDefault("resilience.resolver.attempt_timeout", engine.AttemptTimeout)
}

// Validate checks cross-field invariants the zero value cannot express.
func (c *Config) Validate() error {
	if err := c.Resilience.Retry.Validate(); err != nil {
		return fmt.Errorf("resilience.retry: %w", err)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be >= 1, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.MaxToolCalls < 1 {
		return fmt.Errorf("agent.max_tool_calls must be >= 1, got %d", c.Agent.MaxToolCalls)
	}
	if c.Resilience.Resolver.AttemptTimeout >= c.Resilience.Resolver.ResolveTimeout {
		return fmt.Errorf("resolver attempt_timeout (%v) must be shorter than resolve_timeout (%v)",
			c.Resilience.Resolver.AttemptTimeout, c.Resilience.Resolver.ResolveTimeout)
	}
	if c.LLM.Provider != ProviderGemini {
		return fmt.Errorf("unsupported llm provider %q (supported: %s)", c.LLM.Provider, ProviderGemini)
	}
	return nil
}
