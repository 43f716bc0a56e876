package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func (config ServerConfig) validate() error {
	if config.Addr == "" {
		return fmt.Errorf("missing variable: addr")
	}
	return nil
}

func (config ServerConfig) bindEnvironmentVariables() error {
	if err := viper.BindEnv("server.addr", "HTTP_ADDR"); err != nil {
		return err
	}
	return viper.BindEnv("server.metrics_addr", "METRICS_ADDR")
}
