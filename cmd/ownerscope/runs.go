package main

import (
	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/output"
)

var runsCompare []string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent training runs",
	Long: `Runs lists the retained training runs, newest first.

Examples:
  ownerscope runs
  ownerscope runs --compare <older-run-id>,<newer-run-id>
  ownerscope runs --compare latest`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadState(cmd.Context())
		if err != nil {
			return err
		}
		if len(runsCompare) == 0 {
			return printer.Runs(state.Runs)
		}

		from, to, err := pickRuns(state.Runs, runsCompare)
		if err != nil {
			return err
		}
		return printer.Comparison(output.CompareRuns(from, to))
	},
}

func init() {
	runsCmd.Flags().StringSliceVar(&runsCompare, "compare", nil, "compare two run ids, or 'latest' for the last two runs")
}

// pickRuns resolves the --compare arguments. Runs are stored oldest first.
func pickRuns(runs []models.RunSummary, ids []string) (models.RunSummary, models.RunSummary, error) {
	var none models.RunSummary
	if len(ids) == 1 && ids[0] == "latest" {
		if len(runs) < 2 {
			return none, none, errors.ValidationErrorf("need at least two runs to compare, have %d", len(runs))
		}
		return runs[len(runs)-2], runs[len(runs)-1], nil
	}
	if len(ids) != 2 {
		return none, none, errors.ValidationError("--compare takes two run ids or 'latest'")
	}

	find := func(id string) (models.RunSummary, error) {
		for _, r := range runs {
			if r.ID == id {
				return r, nil
			}
		}
		return none, errors.ValidationErrorf("run %s not found", id)
	}
	from, err := find(ids[0])
	if err != nil {
		return none, none, err
	}
	to, err := find(ids[1])
	if err != nil {
		return none, none, err
	}
	return from, to, nil
}
