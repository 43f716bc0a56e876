package main

import (
	"fmt"
	"os"

	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/maxaizer/vacancy-matcher/internal/services"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import vacancies and candidate profiles from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "can't open seed file")
		}
		defer file.Close()

		seed, err := services.ReadSeedData(file)
		if err != nil {
			return err
		}

		a, err := newApplication(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer a.Close()

		if err = a.db.Migrate(); err != nil {
			return errors.Wrap(err, "can't migrate db context")
		}

		embedder, _ := a.retrieval()
		report, err := services.NewImporter(a.vacancies, a.candidates, embedder).Import(cmd.Context(), seed)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "imported %d vacancies and %d candidates, skipped %d\n",
			report.Vacancies, report.Candidates, report.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
