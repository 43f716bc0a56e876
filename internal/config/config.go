package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	DB       DBConfig       `mapstructure:"db"`
	AI       AIConfig       `mapstructure:"ai"`
	Server   ServerConfig   `mapstructure:"server"`
	Matching MatchingConfig `mapstructure:"matching"`
	Activity ActivityConfig `mapstructure:"activity"`
}

var configFile = "./configs/config.yaml"

// SetFile overrides the config file location, e.g. from a command line flag.
func SetFile(file string) {
	if file != "" {
		configFile = file
	}
}

func Get() *Config {

	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		configFile = value
	}

	config, err := loadConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func loadConfig(file string) (*Config, error) {

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("couldn't load .env file: %v", err)
	}

	viper.Reset()
	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	setDefaults()

	err := bindEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&config, decodeHook); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("logger.log_level", string(LevelInfo))
	viper.SetDefault("logger.app_name", "vacancy-matcher")
	viper.SetDefault("logger.output_file", "./logs/errors.log")
	viper.SetDefault("server.addr", ":8081")
	viper.SetDefault("server.metrics_addr", ":8080")
	viper.SetDefault("ai.model", "gemini-1.5-flash")
	viper.SetDefault("ai.embedding_provider", string(ProviderGemini))
	viper.SetDefault("ai.embedding_model", "text-embedding-004")
	viper.SetDefault("ai.ollama_url", "http://localhost:11434")
	viper.SetDefault("ai.max_requests_per_minute", 60)
	viper.SetDefault("ai.max_requests_per_day", 10000)
	viper.SetDefault("matching.top_k", 20)
	viper.SetDefault("matching.search_top_k", 10)
	viper.SetDefault("matching.evaluation_version", 1)
	viper.SetDefault("matching.estimated_run_duration", "2m")
	viper.SetDefault("matching.workers", 2)
	viper.SetDefault("matching.max_attempts", 5)
	viper.SetDefault("matching.poll_interval", "1s")
	viper.SetDefault("matching.rescore_schedule", "0 3 * * *")
	viper.SetDefault("matching.job_retention", "168h")
}

func bindEnvironmentVariables() error {
	var errs []error

	ai, db, logger, server, matching, activity :=
		AIConfig{}, DBConfig{}, LoggerConfig{}, ServerConfig{}, MatchingConfig{}, ActivityConfig{}

	if err := ai.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("AIConfig: %w", err))
	}

	if err := db.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("DBConfig: %w", err))
	}

	if err := logger.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := server.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("ServerConfig: %w", err))
	}

	if err := matching.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("MatchingConfig: %w", err))
	}

	if err := activity.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("ActivityConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	if err := config.DB.validate(); err != nil {
		errs = append(errs, fmt.Errorf("DBConfig: %w", err))
	}

	if err := config.AI.validate(); err != nil {
		errs = append(errs, fmt.Errorf("AIConfig: %w", err))
	}

	if err := config.Logger.validate(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := config.Server.validate(); err != nil {
		errs = append(errs, fmt.Errorf("ServerConfig: %w", err))
	}

	if err := config.Matching.validate(); err != nil {
		errs = append(errs, fmt.Errorf("MatchingConfig: %w", err))
	}

	if err := config.Activity.validate(); err != nil {
		errs = append(errs, fmt.Errorf("ActivityConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func createMultiError(errs []error) error {
	return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
}
