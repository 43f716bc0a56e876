package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type MatchingConfig struct {
	TopK                 int           `mapstructure:"top_k"`
	SearchTopK           int           `mapstructure:"search_top_k"`
	EvaluationVersion    int           `mapstructure:"evaluation_version"`
	EstimatedRunDuration time.Duration `mapstructure:"estimated_run_duration"`
	Workers              int           `mapstructure:"workers"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	RescoreSchedule      string        `mapstructure:"rescore_schedule"`
	JobRetention         time.Duration `mapstructure:"job_retention"`
}

func (config MatchingConfig) validate() error {
	var errs []error

	if config.TopK <= 0 || config.SearchTopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k and search_top_k must be positive"))
	}
	if config.EvaluationVersion <= 0 {
		errs = append(errs, fmt.Errorf("evaluation_version must be positive"))
	}
	if config.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	if config.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max_attempts must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config MatchingConfig) bindEnvironmentVariables() error {
	if err := viper.BindEnv("matching.evaluation_version", "EVALUATION_VERSION"); err != nil {
		return err
	}
	return viper.BindEnv("matching.workers", "MATCHING_WORKERS")
}
