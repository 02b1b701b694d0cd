package codeowners

import (
	"sort"
	"strings"
)

// groupSeparator joins sorted owners into a group id. Logins and org/team
// slugs cannot contain commas.
const groupSeparator = ","

// Group is the owner set of a winning rule together with the files it owns.
type Group struct {
	ID     string   `json:"id" yaml:"id"`
	Owners []string `json:"owners" yaml:"owners"`
	Files  []string `json:"files" yaml:"files"`
}

// Teams returns the team owners of the group.
func (g Group) Teams() []string {
	var teams []string
	for _, o := range g.Owners {
		if IsTeam(o) {
			teams = append(teams, o)
		}
	}
	return teams
}

// Individuals returns the non-team owners of the group.
func (g Group) Individuals() []string {
	var people []string
	for _, o := range g.Owners {
		if !IsTeam(o) {
			people = append(people, o)
		}
	}
	return people
}

// GroupID builds the order-independent identity of an owner set.
func GroupID(owners []string) string {
	return strings.Join(sortedUnique(owners), groupSeparator)
}

// GroupOwners splits a group id back into its owners.
func GroupOwners(id string) []string {
	if id == "" {
		return nil
	}
	return strings.Split(id, groupSeparator)
}

// Resolver applies last-match-wins resolution over an ordered rule list.
type Resolver struct {
	rules   []Rule
	matcher *Matcher
}

// NewResolver creates a resolver for rules in their declared order
func NewResolver(rules []Rule) *Resolver {
	return &Resolver{rules: rules, matcher: defaultMatcher}
}

// Rules returns the resolver's rules
func (r *Resolver) Rules() []Rule {
	return r.rules
}

// Owner returns the last rule matching filePath. Every rule is scanned in
// declared order and the final match is kept; later rules override earlier ones.
func (r *Resolver) Owner(filePath string) (Rule, bool) {
	var (
		winner Rule
		found  bool
	)
	for _, rule := range r.rules {
		if r.matcher.Matches(rule.Pattern, filePath) {
			winner = rule
			found = true
		}
	}
	return winner, found
}

// Groups buckets files by the owner set of their winning rule, sorted by group id.
// Files matched by no rule are omitted; file order within a group follows the input.
func (r *Resolver) Groups(files []string) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, f := range files {
		rule, ok := r.Owner(f)
		if !ok {
			continue
		}
		id := rule.GroupID()
		i, seen := index[id]
		if !seen {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{ID: id, Owners: sortedUnique(rule.Owners)})
		}
		groups[i].Files = append(groups[i].Files, f)
	}

	sort.Slice(groups, func(a, b int) bool { return groups[a].ID < groups[b].ID })
	return groups
}

// Resolve maps group id to the files it owns.
func (r *Resolver) Resolve(files []string) map[string][]string {
	out := make(map[string][]string)
	for _, g := range r.Groups(files) {
		out[g.ID] = g.Files
	}
	return out
}

// Resolve maps group id to files using rules in their declared order.
func Resolve(files []string, rules []Rule) map[string][]string {
	return NewResolver(rules).Resolve(files)
}

// FileOwnership explains which rule owns a file.
type FileOwnership struct {
	File    string `json:"file" yaml:"file"`
	Owned   bool   `json:"owned" yaml:"owned"`
	Rule    *Rule  `json:"rule,omitempty" yaml:"rule,omitempty"`
	GroupID string `json:"group_id,omitempty" yaml:"group_id,omitempty"`
}

// Explain reports the winning rule for each file, in input order.
func (r *Resolver) Explain(files []string) []FileOwnership {
	out := make([]FileOwnership, 0, len(files))
	for _, f := range files {
		fo := FileOwnership{File: f}
		if rule, ok := r.Owner(f); ok {
			rule := rule
			fo.Owned = true
			fo.Rule = &rule
			fo.GroupID = rule.GroupID()
		}
		out = append(out, fo)
	}
	return out
}

// Equal reports whether two rule lists are identical, including order.
func Equal(a, b []Rule) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Pattern != b[i].Pattern || a[i].Sequence != b[i].Sequence {
			return false
		}
		if strings.Join(a[i].Owners, " ") != strings.Join(b[i].Owners, " ") {
			return false
		}
	}
	return true
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
