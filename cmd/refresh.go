package main

import (
	"fmt"
	"strconv"

	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <vacancy-id>",
	Short: "Queue a new matching run for a vacancy",
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

		result, err := a.refresher().Refresh(cmd.Context(), vacancyID)
		if err != nil {
			return errors.Wrapf(err, "can't refresh vacancy %d", vacancyID)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "vacancy %d queued, estimated completion at %s\n",
			result.VacancyID, result.EstimatedCompletionTime.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func parseVacancyID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("vacancy id must be a positive integer, got %q", arg)
	}
	return id, nil
}
