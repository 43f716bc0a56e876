package main

import (
	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/maxaizer/vacancy-matcher/internal/repositories"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg := config.Get()

		dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString, cfg.DB.MaxOpenConns)
		if err != nil {
			return errors.Wrap(err, "can't create db context")
		}
		defer dbContext.Close()

		if err = dbContext.Migrate(); err != nil {
			return errors.Wrap(err, "can't migrate db context")
		}

		log.Info("database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
