package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/config"
	"github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/output"
	"github.com/rohankatakam/ownerscope/internal/stats"
)

var (
	statsGroup     string
	statsTeam      string
	statsOwnership string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-developer approval statistics for groups and teams",
	Long: `Stats replays the stored history against the ownership rules and prints
each developer's approval count, approval rate, file experience and
experience score, per group and per team.

Examples:
  ownerscope stats
  ownerscope stats --group alice,bob
  ownerscope stats --team acme/core -o yaml`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsGroup, "group", "", "only this group id (sorted owners joined by commas)")
	statsCmd.Flags().StringVar(&statsTeam, "team", "", "only this team (org/team)")
	statsCmd.Flags().StringVar(&statsOwnership, "ownership", "", "ownership file to resolve against")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := validate(config.ValidationContextTrain); err != nil {
		return err
	}

	rules, err := rulesFor(ctx, statsOwnership)
	if err != nil {
		return err
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	records, err := history.ListRecords(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		r.Normalize()
	}
	idx := stats.NewIndex(records, codeowners.NewResolver(rules))

	var targets []stats.Target
	switch {
	case statsGroup != "":
		targets = append(targets, stats.GroupTarget(codeowners.GroupID(codeowners.GroupOwners(statsGroup))))
	case statsTeam != "":
		targets = append(targets, stats.TeamTarget(codeowners.StripOwner(statsTeam)))
	default:
		for _, id := range idx.Groups() {
			targets = append(targets, stats.GroupTarget(id))
		}
		for _, team := range idx.Teams(1) {
			targets = append(targets, stats.TeamTarget(team))
		}
	}

	reports := make([]output.StatsReport, 0, len(targets))
	for _, t := range targets {
		if idx.Appearances(t) == 0 && (statsGroup != "" || statsTeam != "") {
			return errors.ValidationErrorf("%s does not appear in the stored history", t)
		}
		reports = append(reports, statsReport(idx, t))
	}
	return printer.Stats(reports)
}

// statsReport lists the target's owners and members, plus anyone who
// approved one of its changes, by approval count.
func statsReport(idx *stats.Index, t stats.Target) output.StatsReport {
	devs := make(map[string]bool)
	r := output.StatsReport{Target: t.String(), Appearances: idx.Appearances(t)}

	switch t.Family {
	case models.FamilyTeam:
		r.Members = idx.TeamMembers(t.ID)
		for _, m := range r.Members {
			devs[m] = true
		}
	default:
		for _, o := range (codeowners.Group{Owners: codeowners.GroupOwners(t.ID)}).Individuals() {
			devs[o] = true
		}
	}
	for _, res := range idx.Records() {
		if !res.Touches(t) {
			continue
		}
		for _, a := range res.Record.Approvers {
			devs[a] = true
		}
	}

	for d := range devs {
		r.Developers = append(r.Developers, output.DeveloperRow{Developer: d, DeveloperStats: idx.Developer(t, d)})
	}
	sort.Slice(r.Developers, func(i, j int) bool {
		a, b := r.Developers[i], r.Developers[j]
		if a.ApprovalCount != b.ApprovalCount {
			return a.ApprovalCount > b.ApprovalCount
		}
		return a.Developer < b.Developer
	})
	return r
}
