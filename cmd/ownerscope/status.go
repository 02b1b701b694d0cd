package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/output"
	"github.com/rohankatakam/ownerscope/internal/training"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored history and trained models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, err := loadState(ctx)
		if err != nil {
			return err
		}

		history, err := openHistory()
		if err != nil {
			return err
		}
		defer history.Close()
		stored, err := history.Count(ctx)
		if err != nil {
			return err
		}

		report := statusReport(state, stored)
		report.Storage = cfg.Storage.Type
		return printer.Status(report)
	},
}

func statusReport(state *training.State, stored int) output.StatusReport {
	r := output.StatusReport{
		Trained:          state.Trained,
		StoredRecords:    stored,
		ProcessedRecords: len(state.ProcessedIDs),
		Rules:            len(state.Rules),
		Runs:             len(state.Runs),
	}
	if !state.LastTrained.IsZero() {
		t := state.LastTrained
		r.LastTrained = &t
	}

	for _, set := range []map[string]*training.TrainedModel{state.Groups, state.Teams} {
		for _, m := range set {
			r.Models = append(r.Models, output.ModelInfo{
				Target:       m.Target,
				Family:       m.Family,
				Candidates:   len(m.Candidates),
				Samples:      m.Samples,
				TestAccuracy: m.TestAccuracy,
				TrainedAt:    m.TrainedAt,
			})
		}
	}
	for _, fb := range state.Fallbacks {
		r.Models = append(r.Models, output.ModelInfo{
			Target:     fb.Group,
			Family:     models.FamilyStats,
			Candidates: len(fb.Owners),
			TrainedAt:  fb.UpdatedAt,
		})
	}
	sort.Slice(r.Models, func(i, j int) bool {
		if r.Models[i].Family != r.Models[j].Family {
			return r.Models[i].Family < r.Models[j].Family
		}
		return r.Models[i].Target < r.Models[j].Target
	})
	return r
}
