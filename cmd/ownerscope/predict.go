package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/config"
	"github.com/rohankatakam/ownerscope/internal/output"
	"github.com/rohankatakam/ownerscope/internal/prediction"
)

var (
	predictTopK      int
	predictTitle     string
	predictAdditions int
	predictDeletions int
)

var predictCmd = &cobra.Command{
	Use:   "predict FILE...",
	Short: "Rank the most likely approvers for a set of changed files",
	Long: `Predict resolves each file to its ownership group, scores every candidate
with the group and team models, weights each score by the group's share of
the files, and prints the top candidates.

Examples:
  ownerscope predict core/scheduler.cpp docs/intro.md
  git diff --name-only main | xargs ownerscope predict --top-k 3 -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().IntVarP(&predictTopK, "top-k", "k", 0, "number of candidates to show (default from config, 0 in config means all)")
	predictCmd.Flags().StringVar(&predictTitle, "title", "", "title of the change")
	predictCmd.Flags().IntVar(&predictAdditions, "additions", 0, "lines added")
	predictCmd.Flags().IntVar(&predictDeletions, "deletions", 0, "lines deleted")
}

func runPredict(cmd *cobra.Command, args []string) error {
	if err := validate(config.ValidationContextPredict); err != nil {
		return err
	}

	state, err := loadState(cmd.Context())
	if err != nil {
		return err
	}

	agg, err := prediction.NewAggregator(state, trainers(), prediction.WithMetrics(metric))
	if err != nil {
		return err
	}

	topK := cfg.Prediction.TopK
	if cmd.Flags().Changed("top-k") {
		topK = predictTopK
	}

	preds, err := agg.PredictChange(prediction.Request{
		Files:     args,
		Title:     predictTitle,
		Additions: predictAdditions,
		Deletions: predictDeletions,
		CreatedAt: time.Now(),
		TopK:      topK,
	})
	if err != nil {
		return err
	}
	writeMetrics()

	return printer.Predictions(output.PredictionReport{Files: args, Predictions: preds})
}
