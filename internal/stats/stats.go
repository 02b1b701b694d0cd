// Package stats derives per-developer approval statistics for ownership
// groups and teams from the full change history.
package stats

import (
	"sort"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/models"
)

// Target names a group or a team that a model is trained for.
type Target struct {
	Family models.Family `json:"family"`
	ID     string        `json:"id"`
}

// GroupTarget returns the target for a group id
func GroupTarget(id string) Target { return Target{Family: models.FamilyGroup, ID: id} }

// TeamTarget returns the target for a team slug
func TeamTarget(team string) Target { return Target{Family: models.FamilyTeam, ID: team} }

func (t Target) String() string {
	return string(t.Family) + ":" + t.ID
}

// DeveloperStats are the historical counters of one developer for one target.
type DeveloperStats struct {
	ApprovalCount   int     `json:"approval_count"`
	AppearanceCount int     `json:"appearance_count"`
	ApprovalRate    float64 `json:"approval_rate"`
	FileExperience  int     `json:"file_experience"`
	ExperienceScore float64 `json:"experience_score"`
}

// NewDeveloperStats derives rate and experience score from raw counts.
// A zero appearance count yields a zero rate.
func NewDeveloperStats(approvals, appearances, fileExperience int) DeveloperStats {
	s := DeveloperStats{
		ApprovalCount:   approvals,
		AppearanceCount: appearances,
		FileExperience:  fileExperience,
		ExperienceScore: float64(approvals*2+fileExperience) / 10.0,
	}
	if appearances > 0 {
		s.ApprovalRate = float64(approvals) / float64(appearances)
	}
	return s
}

// Resolved is a change record with its ownership groups resolved.
type Resolved struct {
	Record *models.ChangeRecord
	Groups []codeowners.Group
	Teams  []string
}

// Touches reports whether the change touched target
func (r Resolved) Touches(t Target) bool {
	return len(r.FilesFor(t)) > 0
}

// FilesFor returns the change's files owned by target. For a team this is
// every file of every group that lists the team as an owner.
func (r Resolved) FilesFor(t Target) []string {
	var files []string
	for _, g := range r.Groups {
		switch t.Family {
		case models.FamilyGroup:
			if g.ID == t.ID {
				return g.Files
			}
		case models.FamilyTeam:
			for _, o := range g.Owners {
				if o == t.ID {
					files = append(files, g.Files...)
					break
				}
			}
		}
	}
	return files
}

// Group returns the resolved group with the given id
func (r Resolved) Group(id string) (codeowners.Group, bool) {
	for _, g := range r.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return codeowners.Group{}, false
}

// ResolveRecord resolves one change against the rules
func ResolveRecord(rec *models.ChangeRecord, resolver *codeowners.Resolver) Resolved {
	groups := resolver.Groups(rec.FilePaths)
	teamSet := make(map[string]bool)
	for _, g := range groups {
		for _, t := range g.Teams() {
			teamSet[t] = true
		}
	}
	return Resolved{Record: rec, Groups: groups, Teams: sortedKeys(teamSet)}
}

// files sums the target's files over every appearance, independent of who approved
type counters struct {
	appearances int
	files       int
	approvals   map[string]int
}

// Index holds approval counters for every group and team seen in history,
// plus the empirically discovered membership of each team.
type Index struct {
	records []Resolved
	targets map[Target]*counters
	members map[string]map[string]bool
}

// NewIndex resolves every record and accumulates counters in one pass.
func NewIndex(records []*models.ChangeRecord, resolver *codeowners.Resolver) *Index {
	idx := &Index{
		records: make([]Resolved, 0, len(records)),
		targets: make(map[Target]*counters),
		members: make(map[string]map[string]bool),
	}

	for _, rec := range records {
		res := ResolveRecord(rec, resolver)
		idx.records = append(idx.records, res)

		for _, g := range res.Groups {
			idx.add(GroupTarget(g.ID), rec, len(g.Files))
		}
		for _, team := range res.Teams {
			idx.add(TeamTarget(team), rec, len(res.FilesFor(TeamTarget(team))))

			if idx.members[team] == nil {
				idx.members[team] = make(map[string]bool)
			}
			for _, a := range rec.Approvers {
				idx.members[team][a] = true
			}
		}
	}

	return idx
}

func (idx *Index) add(t Target, rec *models.ChangeRecord, files int) {
	c := idx.targets[t]
	if c == nil {
		c = &counters{approvals: make(map[string]int)}
		idx.targets[t] = c
	}
	c.appearances++
	c.files += files
	for _, a := range rec.Approvers {
		c.approvals[a]++
	}
}

// Records returns the resolved history in input order
func (idx *Index) Records() []Resolved {
	return idx.records
}

// Appearances returns how many historical changes touched target
func (idx *Index) Appearances(t Target) int {
	if c := idx.targets[t]; c != nil {
		return c.appearances
	}
	return 0
}

// Developer returns dev's stats for target over the full history.
func (idx *Index) Developer(t Target, dev string) DeveloperStats {
	c := idx.targets[t]
	if c == nil {
		return NewDeveloperStats(0, 0, 0)
	}
	return NewDeveloperStats(c.approvals[dev], c.appearances, c.files)
}

// Excluding returns dev's stats for target over every record except rec,
// which must be part of the indexed history and touch target.
func (idx *Index) Excluding(t Target, dev string, rec Resolved) DeveloperStats {
	c := idx.targets[t]
	if c == nil {
		return NewDeveloperStats(0, 0, 0)
	}

	approvals := c.approvals[dev]
	appearances := c.appearances
	fileExp := c.files

	if files := rec.FilesFor(t); len(files) > 0 {
		appearances--
		fileExp -= len(files)
		if rec.Record.Approved(dev) {
			approvals--
		}
	}

	return NewDeveloperStats(max(approvals, 0), max(appearances, 0), max(fileExp, 0))
}

// Snapshot returns full-history stats for each developer.
func (idx *Index) Snapshot(t Target, devs []string) map[string]DeveloperStats {
	out := make(map[string]DeveloperStats, len(devs))
	for _, d := range devs {
		out[d] = idx.Developer(t, d)
	}
	return out
}

// TeamMembers returns the developers observed approving changes owned by team.
func (idx *Index) TeamMembers(team string) []string {
	return sortedKeys(idx.members[team])
}

// Teams returns every team with at least minMembers discovered members.
func (idx *Index) Teams(minMembers int) []string {
	var teams []string
	for team, m := range idx.members {
		if len(m) >= minMembers {
			teams = append(teams, team)
		}
	}
	sort.Strings(teams)
	return teams
}

// Groups returns every group id seen in history
func (idx *Index) Groups() []string {
	var ids []string
	for t := range idx.targets {
		if t.Family == models.FamilyGroup {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
