// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/PipeOpsHQ/agent-kickoff/providers/factory"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

const (
	DefaultAddr        = ":8000"
	DefaultStepTimeout = 60 * time.Second
)

type Config struct {
	Addr           string
	Model          string
	StepTimeout    time.Duration
	FlowsFile      string
	CORSOrigins    []string
	LogLevel       string
	LogFormat      string
	OTelEnabled    bool
	MetricsEnabled bool
	GinMode        string
	Providers      factory.Settings
}

// Load reads envFile, when set and present, and then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv reads the configuration from the current environment only.
func FromEnv() Config {
	providers := factory.Settings{
		DefaultProvider:    StringEnv("KICKOFF_PROVIDER", "gemini"),
		GeminiAPIKey:       StringEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:      StringEnv("GEMINI_BASE_URL", ""),
		OpenAIAPIKey:       StringEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      StringEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey:    StringEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL:   StringEnv("ANTHROPIC_BASE_URL", ""),
		AnthropicMaxTokens: ParseIntEnv("ANTHROPIC_MAX_TOKENS", 0),
	}
	return Config{
		Addr:           StringEnv("KICKOFF_ADDR", DefaultAddr),
		Model:          StringEnv("KICKOFF_MODEL", workflow.DefaultModel),
		StepTimeout:    ParseDurationEnv("KICKOFF_STEP_TIMEOUT", DefaultStepTimeout),
		FlowsFile:      StringEnv("KICKOFF_FLOWS_FILE", ""),
		CORSOrigins:    ListEnv("KICKOFF_CORS_ORIGINS", []string{"*"}),
		LogLevel:       StringEnv("KICKOFF_LOG_LEVEL", "info"),
		LogFormat:      StringEnv("KICKOFF_LOG_FORMAT", "text"),
		OTelEnabled:    ParseBoolEnv("KICKOFF_OTEL_ENABLED", false),
		MetricsEnabled: ParseBoolEnv("KICKOFF_METRICS_ENABLED", true),
		GinMode:        StringEnv("GIN_MODE", "release"),
		Providers:      providers,
	}
}
