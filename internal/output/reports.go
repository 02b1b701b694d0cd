package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/stats"
)

// PredictionReport is the result of one predict invocation
type PredictionReport struct {
	Files       []string            `json:"files" yaml:"files"`
	Predictions []models.Prediction `json:"predictions" yaml:"predictions"`
}

// Predictions prints ranked approver candidates
func (p *Printer) Predictions(r PredictionReport) error {
	if r.Predictions == nil {
		r.Predictions = []models.Prediction{}
	}
	if done, err := p.emit(r); done {
		return err
	}

	p.printf("🔮 Likely approvers for %d file(s)\n", len(r.Files))
	p.printf("%s\n", rule)
	if len(r.Predictions) == 0 {
		p.printf("No trained model covers these files.\n")
		return nil
	}
	for i, pred := range r.Predictions {
		p.printf("%d. %-24s %5.1f%%  %s\n", i+1, codeowners.DisplayOwner(pred.Approver), pred.Confidence, confidenceBar(pred.Confidence))
		if pred.Reasoning != "" {
			p.printf("   %s\n", pred.Reasoning)
		}
	}
	return nil
}

func confidenceBar(confidence float64) string {
	n := int(confidence / 10)
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}

// RunSummary prints the outcome of a training run
func (p *Printer) RunSummary(s *models.RunSummary) error {
	if done, err := p.emit(s); done {
		return err
	}

	if s.NoOp {
		p.printf("✅ Models are up to date (%d records, no new changes)\n", s.TotalRecords)
		return nil
	}

	p.printf("🧠 Training run %s\n", s.ID)
	p.printf("%s\n", rule)
	p.printf("New records:     %d (of %d)\n", len(s.NewRecordIDs), s.TotalRecords)
	p.printf("Ownership rules: %d", s.Rules)
	if s.RulesChanged {
		p.printf(" (changed, full retrain)")
	}
	p.printf("\n")
	p.printf("Group models:    %d trained\n", s.TrainedGroups)
	p.printf("Team models:     %d trained\n", s.TrainedTeams)
	p.printf("Skipped:         %d\n", s.SkippedTargets)
	p.printf("Samples:         %d\n", s.TotalSamples)
	p.printf("Duration:        %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))

	if len(s.Outcomes) > 0 {
		p.printf("\n")
		for _, o := range s.Outcomes {
			if o.Status == models.StatusTrained {
				p.printf("  ✓ %-5s %-32s n=%-4d +%d/-%d test_acc=%.2f\n", o.Family, o.Target, o.Samples, o.Positive, o.Negative, o.TestAccuracy)
			} else {
				p.printf("  · %-5s %-32s n=%-4d skipped: %s\n", o.Family, o.Target, o.Samples, o.Reason)
			}
		}
	}
	return nil
}

// Runs prints the retained run history, newest first
func (p *Printer) Runs(runs []models.RunSummary) error {
	ordered := make([]models.RunSummary, len(runs))
	copy(ordered, runs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartedAt.After(ordered[j].StartedAt) })

	if done, err := p.emit(ordered); done {
		return err
	}

	if len(ordered) == 0 {
		p.printf("No training runs recorded.\n")
		return nil
	}
	p.printf("%-36s  %-19s  %5s  %6s  %5s  %7s\n", "RUN", "STARTED", "NEW", "GROUPS", "TEAMS", "SKIPPED")
	for _, r := range ordered {
		p.printf("%-36s  %-19s  %5d  %6d  %5d  %7d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), len(r.NewRecordIDs), r.TrainedGroups, r.TrainedTeams, r.SkippedTargets)
	}
	return nil
}

// RunComparison is the difference between two training runs
type RunComparison struct {
	From         string `json:"from" yaml:"from"`
	To           string `json:"to" yaml:"to"`
	NewRecords   int    `json:"new_records" yaml:"new_records"`
	GroupsDelta  int    `json:"groups_delta" yaml:"groups_delta"`
	TeamsDelta   int    `json:"teams_delta" yaml:"teams_delta"`
	SamplesDelta int    `json:"samples_delta" yaml:"samples_delta"`
	// Record ids both runs reported as new
	SharedRecords []int64 `json:"shared_records,omitempty" yaml:"shared_records,omitempty"`
	// Targets trained in To that were skipped or absent in From
	Gained []string `json:"gained,omitempty" yaml:"gained,omitempty"`
	// Targets trained in From that To skipped
	Lost []string `json:"lost,omitempty" yaml:"lost,omitempty"`
}

// CompareRuns diffs two run summaries
func CompareRuns(from, to models.RunSummary) RunComparison {
	trained := func(s models.RunSummary) map[string]bool {
		out := make(map[string]bool)
		for _, o := range s.Outcomes {
			if o.Status == models.StatusTrained {
				out[string(o.Family)+":"+o.Target] = true
			}
		}
		return out
	}
	before, after := trained(from), trained(to)

	c := RunComparison{
		From:         from.ID,
		To:           to.ID,
		NewRecords:   to.TotalRecords - from.TotalRecords,
		GroupsDelta:  to.TrainedGroups - from.TrainedGroups,
		TeamsDelta:   to.TrainedTeams - from.TrainedTeams,
		SamplesDelta: to.TotalSamples - from.TotalSamples,
	}
	for k := range after {
		if !before[k] {
			c.Gained = append(c.Gained, k)
		}
	}
	for _, o := range to.Outcomes {
		k := string(o.Family) + ":" + o.Target
		if o.Status == models.StatusSkipped && before[k] {
			c.Lost = append(c.Lost, k)
		}
	}
	processed := make(map[int64]bool, len(from.NewRecordIDs))
	for _, id := range from.NewRecordIDs {
		processed[id] = true
	}
	for _, id := range to.NewRecordIDs {
		if processed[id] {
			c.SharedRecords = append(c.SharedRecords, id)
		}
	}
	sort.Strings(c.Gained)
	sort.Strings(c.Lost)
	sort.Slice(c.SharedRecords, func(i, j int) bool { return c.SharedRecords[i] < c.SharedRecords[j] })
	return c
}

// Comparison prints a run comparison
func (p *Printer) Comparison(c RunComparison) error {
	if done, err := p.emit(c); done {
		return err
	}
	p.printf("Run %s → %s\n", c.From, c.To)
	p.printf("%s\n", rule)
	p.printf("Records:      %+d\n", c.NewRecords)
	p.printf("Group models: %+d\n", c.GroupsDelta)
	p.printf("Team models:  %+d\n", c.TeamsDelta)
	p.printf("Samples:      %+d\n", c.SamplesDelta)
	if len(c.SharedRecords) > 0 {
		p.printf("Reprocessed:  %d record(s)\n", len(c.SharedRecords))
	}
	for _, g := range c.Gained {
		p.printf("  + %s\n", g)
	}
	for _, l := range c.Lost {
		p.printf("  - %s\n", l)
	}
	return nil
}

// Ownership prints which rule owns each file
func (p *Printer) Ownership(entries []codeowners.FileOwnership) error {
	if done, err := p.emit(entries); done {
		return err
	}
	for _, e := range entries {
		if !e.Owned {
			p.printf("%s\n  (no owner)\n", e.File)
			continue
		}
		p.printf("%s\n  %s → %s (line %d)\n", e.File, e.Rule.Pattern, strings.Join(e.Rule.DisplayOwners(), " "), e.Rule.Sequence+1)
	}
	return nil
}

// DeveloperRow is one developer's stats for a target
type DeveloperRow struct {
	Developer string `json:"developer" yaml:"developer"`

	stats.DeveloperStats `yaml:",inline"`
}

// StatsReport lists developer stats for one group or team
type StatsReport struct {
	Target      string         `json:"target" yaml:"target"`
	Appearances int            `json:"appearances" yaml:"appearances"`
	Members     []string       `json:"members,omitempty" yaml:"members,omitempty"`
	Developers  []DeveloperRow `json:"developers" yaml:"developers"`
}

// Stats prints one or more stats reports
func (p *Printer) Stats(reports []StatsReport) error {
	if done, err := p.emit(reports); done {
		return err
	}
	if len(reports) == 0 {
		p.printf("No ownership groups found in history.\n")
		return nil
	}
	for i, r := range reports {
		if i > 0 {
			p.printf("\n")
		}
		p.printf("%s (%d changes)\n", r.Target, r.Appearances)
		if len(r.Members) > 0 {
			p.printf("  members: %s\n", strings.Join(r.Members, ", "))
		}
		for _, d := range r.Developers {
			p.printf("  %-24s approvals=%-4d rate=%.2f files=%-5d exp=%.1f\n",
				d.Developer, d.ApprovalCount, d.ApprovalRate, d.FileExperience, d.ExperienceScore)
		}
	}
	return nil
}

// ModelInfo summarizes one persisted model
type ModelInfo struct {
	Target       string        `json:"target" yaml:"target"`
	Family       models.Family `json:"family" yaml:"family"`
	Candidates   int           `json:"candidates" yaml:"candidates"`
	Samples      int           `json:"samples" yaml:"samples"`
	TestAccuracy float64       `json:"test_accuracy" yaml:"test_accuracy"`
	TrainedAt    time.Time     `json:"trained_at" yaml:"trained_at"`
}

// StatusReport describes the stored history and model bundle
type StatusReport struct {
	Storage          string      `json:"storage" yaml:"storage"`
	Trained          bool        `json:"trained" yaml:"trained"`
	LastTrained      *time.Time  `json:"last_trained,omitempty" yaml:"last_trained,omitempty"`
	StoredRecords    int         `json:"stored_records" yaml:"stored_records"`
	ProcessedRecords int         `json:"processed_records" yaml:"processed_records"`
	Rules            int         `json:"rules" yaml:"rules"`
	Runs             int         `json:"runs" yaml:"runs"`
	Models           []ModelInfo `json:"models" yaml:"models"`
}

// Status prints a status report
func (p *Printer) Status(s StatusReport) error {
	if s.Models == nil {
		s.Models = []ModelInfo{}
	}
	if done, err := p.emit(s); done {
		return err
	}

	if !s.Trained {
		p.printf("⚠️  No models trained yet. Run 'ownerscope train' first.\n")
	} else {
		p.printf("✅ Trained %s\n", formatTime(s.LastTrained))
	}
	if s.Storage != "" {
		p.printf("Storage:           %s\n", s.Storage)
	}
	p.printf("Stored records:    %d\n", s.StoredRecords)
	p.printf("Processed records: %d\n", s.ProcessedRecords)
	p.printf("Ownership rules:   %d\n", s.Rules)
	p.printf("Runs retained:     %d\n", s.Runs)
	if len(s.Models) == 0 {
		return nil
	}
	p.printf("\n%-5s  %-36s  %10s  %7s  %8s\n", "KIND", "TARGET", "CANDIDATES", "SAMPLES", "TEST_ACC")
	for _, m := range s.Models {
		p.printf("%-5s  %-36s  %10d  %7d  %8.2f\n", m.Family, m.Target, m.Candidates, m.Samples, m.TestAccuracy)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("at %s", t.Format(time.RFC3339))
}
