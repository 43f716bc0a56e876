package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ActivityConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"`
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
}

func (config ActivityConfig) validate() error {
	if config.TelegramToken != "" && config.TelegramChatID == 0 {
		return fmt.Errorf("telegram_chat_id is required when telegram_token is set")
	}
	return nil
}

func (config ActivityConfig) bindEnvironmentVariables() error {
	var errs []error
	if err := viper.BindEnv("activity.webhook_url", "ACTIVITY_WEBHOOK_URL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("activity.telegram_token", "TELEGRAM_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("activity.telegram_chat_id", "TELEGRAM_CHAT_ID"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
