package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	// DefaultSystemPromptPath and DefaultToolServersPath may be absent; explicit paths may not.
	DefaultSystemPromptPath = "config/system_prompt.txt"
	DefaultToolServersPath  = "mcp_servers.json"
	DefaultModel            = "gpt-4.1-mini"
	EnvPrefix               = "REACTAGENT"
)

// Config is the resolved configuration of one reactagent invocation.
type Config struct {
	LLM          LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Loop         LoopConfig   `mapstructure:"loop" yaml:"loop"`
	SystemPrompt string       `mapstructure:"system_prompt" yaml:"system_prompt"`
	MCPConfig    string       `mapstructure:"mcp_config" yaml:"mcp_config"`
	Tools        ToolsConfig  `mapstructure:"tools" yaml:"tools"`
	Audit        AuditConfig  `mapstructure:"audit" yaml:"audit"`
	Logger       LoggerConfig `mapstructure:"logger" yaml:"logger"`
}

// LLMConfig selects and tunes the oracle backend.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	APIURL            string        `mapstructure:"api_url" yaml:"api_url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	PlanTemperature   float64       `mapstructure:"plan_temperature" yaml:"plan_temperature"`
	EvalTemperature   float64       `mapstructure:"eval_temperature" yaml:"eval_temperature"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

type LoopConfig struct {
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
}

// ToolsConfig controls the built-in providers and how steps are executed.
type ToolsConfig struct {
	Builtin     bool          `mapstructure:"builtin" yaml:"builtin"`
	Workspace   string        `mapstructure:"workspace" yaml:"workspace"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	AutoApprove bool          `mapstructure:"auto_approve" yaml:"auto_approve"`
	Retry       RetryConfig   `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig configures provider-side retries of transient step failures.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LoggerConfig holds the zap logger settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// -- LLM --
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", DefaultModel)
	v.SetDefault("llm.api_url", "http://localhost:3000/v1")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.plan_temperature", 0.2)
	v.SetDefault("llm.eval_temperature", 0.0)
	v.SetDefault("llm.requests_per_minute", 0)

	// -- Loop --
	v.SetDefault("loop.max_iterations", 10)
	v.SetDefault("system_prompt", DefaultSystemPromptPath)
	v.SetDefault("mcp_config", DefaultToolServersPath)

	// -- Tools --
	v.SetDefault("tools.builtin", true)
	v.SetDefault("tools.workspace", ".")
	v.SetDefault("tools.timeout", "60s")
	v.SetDefault("tools.auto_approve", false)
	v.SetDefault("tools.retry.max_attempts", 1)
	v.SetDefault("tools.retry.initial_interval", "500ms")
	v.SetDefault("tools.retry.max_interval", "5s")

	// -- Audit --
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "~/.reactagent/history.db")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "reactagent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
}

// BindEnv wires the REACTAGENT_ prefix and the provider key variables into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewDefaultConfig returns the configuration produced by the defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = lookupProviderKey(cfg.LLM.Provider)
	}

	var err error
	if cfg.Tools.Workspace, err = homedir.Expand(cfg.Tools.Workspace); err != nil {
		return nil, fmt.Errorf("error expanding tools.workspace: %w", err)
	}
	if cfg.Audit.Path, err = homedir.Expand(cfg.Audit.Path); err != nil {
		return nil, fmt.Errorf("error expanding audit.path: %w", err)
	}
	if cfg.Logger.LogFile, err = homedir.Expand(cfg.Logger.LogFile); err != nil {
		return nil, fmt.Errorf("error expanding logger.log_file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if c.Loop.MaxIterations <= 0 {
		return fmt.Errorf("loop.max_iterations must be a positive integer")
	}
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("tools.timeout must not be negative")
	}
	if c.Tools.Retry.MaxAttempts < 1 {
		return fmt.Errorf("tools.retry.max_attempts must be at least 1")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when audit is enabled")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be one of console, json; got %q", c.Logger.Format)
	}
	return nil
}

// Validate checks the LLM settings. A missing API key is reported by the backend factory,
// so commands that never call a model still work without one.
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	case ProviderCompatible:
		if l.APIURL == "" {
			return fmt.Errorf("llm.api_url is required for the %s provider", ProviderCompatible)
		}
	default:
		return fmt.Errorf("llm.provider must be one of %s, %s, %s, %s; got %q",
			ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderCompatible, l.Provider)
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if l.PlanTemperature < 0 || l.PlanTemperature > 2 {
		return fmt.Errorf("llm.plan_temperature must be between 0 and 2")
	}
	if l.EvalTemperature < 0 || l.EvalTemperature > 2 {
		return fmt.Errorf("llm.eval_temperature must be between 0 and 2")
	}
	if l.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be a positive integer")
	}
	if l.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative")
	}
	return nil
}
