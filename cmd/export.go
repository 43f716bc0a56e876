package main

import (
	"fmt"
	"os"

	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/maxaizer/vacancy-matcher/internal/export"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <vacancy-id>",
	Short: "Export the stored match results of a vacancy to an XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vacancyID, err := parseVacancyID(args[0])
		if err != nil {
			return err
		}

		a, err := newApplication(cmd.Context(), config.Get())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		vacancy, requirements, err := a.vacancies.GetWithRequirements(ctx, vacancyID)
		if err != nil {
			return errors.Wrapf(err, "can't load vacancy %d", vacancyID)
		}

		results, err := a.results.GetByVacancy(ctx, vacancyID)
		if err != nil {
			return errors.Wrapf(err, "can't load match results of vacancy %d", vacancyID)
		}

		names := make(map[int]string, len(results))
		for _, result := range results {
			profile, err := a.candidates.GetByID(ctx, result.CandidateID)
			if err != nil {
				log.Warnf("failed to load candidate %d: %v", result.CandidateID, err)
				continue
			}
			if profile != nil {
				names[result.CandidateID] = profile.Name
			}
		}

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("vacancy-%d-matches.xlsx", vacancyID)
		}

		file, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "can't create export file")
		}
		defer file.Close()

		err = export.WriteMatchReport(file, export.MatchReport{
			Vacancy:        *vacancy,
			Requirements:   requirements,
			Results:        results,
			CandidateNames: names,
		})
		if err != nil {
			return errors.Wrap(err, "can't write match report")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported %d match results to %s\n", len(results), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default is vacancy-<id>-matches.xlsx)")
}
