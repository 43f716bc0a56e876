package main

import (
	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/spf13/cobra"
)

const app = "vacancy-matcher"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "vacancy-matcher ranks and evaluates candidates against open vacancies",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"a config file (default is ./configs/config.yaml or $CONFIG_PATH)")
}

func initConfig() {
	config.SetFile(cfgFile)
}
