package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type EmbeddingProvider string

const (
	ProviderGemini EmbeddingProvider = "gemini"
	ProviderOllama EmbeddingProvider = "ollama"
)

type AIConfig struct {
	Key                  string            `mapstructure:"key"`
	Model                string            `mapstructure:"model"`
	EmbeddingProvider    EmbeddingProvider `mapstructure:"embedding_provider"`
	EmbeddingModel       string            `mapstructure:"embedding_model"`
	OllamaURL            string            `mapstructure:"ollama_url"`
	MaxRequestsPerMinute float32           `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float32           `mapstructure:"max_requests_per_day"`
}

// Configured reports whether the reasoning provider can be reached at all.
func (config AIConfig) Configured() bool {
	return config.Key != ""
}

func (config AIConfig) validate() error {
	switch config.EmbeddingProvider {
	case ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider %q", config.EmbeddingProvider)
	}

	if config.MaxRequestsPerMinute <= 0 || config.MaxRequestsPerDay <= 0 {
		return fmt.Errorf("ai request limits must be positive")
	}

	return nil
}

func (config AIConfig) bindEnvironmentVariables() error {
	var errs []error
	if err := viper.BindEnv("ai.key", "AI_KEY"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("ai.model", "AI_MODEL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("ai.embedding_provider", "EMBEDDING_PROVIDER"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("ai.ollama_url", "OLLAMA_URL"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
