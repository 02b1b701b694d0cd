package models

import (
	"sort"
	"strings"
	"time"
)

// ChangeRecord is one historical, merged code change used for training
type ChangeRecord struct {
	ID        int64      `json:"id" db:"id"`
	RepoID    string     `json:"repo_id,omitempty" db:"repo_id"`
	FilePaths []string   `json:"file_paths"`
	Approvers []string   `json:"approvers"`
	Author    string     `json:"author" db:"author"`
	Additions int        `json:"additions" db:"additions"`
	Deletions int        `json:"deletions" db:"deletions"`
	Title     string     `json:"title" db:"title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	MergedAt  *time.Time `json:"merged_at,omitempty" db:"merged_at"`
}

// Normalize strips mention sigils and turns Approvers into a sorted set
func (c *ChangeRecord) Normalize() {
	c.Author = strings.TrimPrefix(c.Author, "@")
	c.Approvers = NormalizeLogins(c.Approvers)
}

// Approved reports whether dev approved this change
func (c *ChangeRecord) Approved(dev string) bool {
	for _, a := range c.Approvers {
		if a == dev {
			return true
		}
	}
	return false
}

// TotalChanges returns additions plus deletions
func (c *ChangeRecord) TotalChanges() int {
	return c.Additions + c.Deletions
}

// NormalizeLogins strips '@', drops empties and duplicates, and sorts
func NormalizeLogins(logins []string) []string {
	seen := make(map[string]bool, len(logins))
	out := make([]string, 0, len(logins))
	for _, l := range logins {
		l = strings.TrimPrefix(strings.TrimSpace(l), "@")
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Family identifies which kind of model produced a score
type Family string

const (
	FamilyGroup Family = "group"
	FamilyTeam  Family = "team"
	// FamilyStats marks a historical approval rate used for a group without a model
	FamilyStats Family = "stats"
)

// Contribution is one weighted model score added to a candidate
type Contribution struct {
	Target      string  `json:"target" yaml:"target"`
	Family      Family  `json:"family" yaml:"family"`
	Probability float64 `json:"probability" yaml:"probability"`
	Weight      float64 `json:"weight" yaml:"weight"`
}

// Prediction is a ranked approver candidate
type Prediction struct {
	Approver      string         `json:"approver" yaml:"approver"`
	Confidence    float64        `json:"confidence" yaml:"confidence"`   // 0-100, capped
	Probability   float64        `json:"probability" yaml:"probability"` // raw accumulated score
	Reasoning     string         `json:"reasoning" yaml:"reasoning"`
	Families      []Family       `json:"families" yaml:"families"`
	Contributions []Contribution `json:"contributions,omitempty" yaml:"contributions,omitempty"`
}

// Target outcome statuses
const (
	StatusTrained = "trained"
	StatusSkipped = "skipped"
)

// TargetOutcome reports what a training run did for one group or team
type TargetOutcome struct {
	Target        string  `json:"target" yaml:"target"`
	Family        Family  `json:"family" yaml:"family"`
	Status        string  `json:"status" yaml:"status"`
	Reason        string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	Samples       int     `json:"samples" yaml:"samples"`
	Positive      int     `json:"positive" yaml:"positive"`
	Negative      int     `json:"negative" yaml:"negative"`
	TrainAccuracy float64 `json:"train_accuracy,omitempty" yaml:"train_accuracy,omitempty"`
	TestAccuracy  float64 `json:"test_accuracy,omitempty" yaml:"test_accuracy,omitempty"`
}

// RunSummary describes one training run
type RunSummary struct {
	ID             string          `json:"id" yaml:"id"`
	StartedAt      time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time       `json:"finished_at" yaml:"finished_at"`
	NoOp           bool            `json:"no_op" yaml:"no_op"`
	Message        string          `json:"message,omitempty" yaml:"message,omitempty"`
	NewRecordIDs   []int64         `json:"new_record_ids" yaml:"new_record_ids"`
	TotalRecords   int             `json:"total_records" yaml:"total_records"`
	Rules          int             `json:"rules" yaml:"rules"`
	RulesChanged   bool            `json:"rules_changed,omitempty" yaml:"rules_changed,omitempty"`
	TrainedGroups  int             `json:"trained_groups" yaml:"trained_groups"`
	TrainedTeams   int             `json:"trained_teams" yaml:"trained_teams"`
	SkippedTargets int             `json:"skipped_targets" yaml:"skipped_targets"`
	TotalSamples   int             `json:"total_samples" yaml:"total_samples"`
	Outcomes       []TargetOutcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}
