// Package codeowners parses CODEOWNERS-style ownership files and resolves
// changed files to the owner group of the last matching rule.
package codeowners

import (
	"strings"
)

const mentionSigil = "@"

// Rule is one `<pattern> <owner>+` line of an ownership file.
// Owners are stored without the mention sigil, deduplicated, in declared order.
type Rule struct {
	Pattern  string   `json:"pattern" yaml:"pattern"`
	Owners   []string `json:"owners" yaml:"owners"`
	Sequence int      `json:"sequence" yaml:"sequence"`
}

// DisplayOwners returns the owners with their mention sigil restored.
func (r Rule) DisplayOwners() []string {
	out := make([]string, len(r.Owners))
	for i, o := range r.Owners {
		out[i] = DisplayOwner(o)
	}
	return out
}

// GroupID returns the group identity of this rule's owner set.
func (r Rule) GroupID() string {
	return GroupID(r.Owners)
}

// Parse turns ownership-file text into an ordered rule list.
// Blank lines, comment lines and lines with fewer than two tokens are skipped.
func Parse(content string) []Rule {
	var rules []Rule

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		// trailing comment
		for j, f := range fields {
			if strings.HasPrefix(f, "#") {
				fields = fields[:j]
				break
			}
		}
		if len(fields) < 2 {
			continue
		}

		owners := make([]string, 0, len(fields)-1)
		seen := make(map[string]bool, len(fields)-1)
		for _, f := range fields[1:] {
			o := StripOwner(f)
			if o == "" || seen[o] {
				continue
			}
			seen[o] = true
			owners = append(owners, o)
		}
		if len(owners) == 0 {
			continue
		}

		rules = append(rules, Rule{
			Pattern:  fields[0],
			Owners:   owners,
			Sequence: i,
		})
	}

	return rules
}

// StripOwner removes the leading mention sigil used for display.
func StripOwner(owner string) string {
	return strings.TrimPrefix(strings.TrimSpace(owner), mentionSigil)
}

// DisplayOwner restores the mention sigil. Email owners are returned unchanged.
func DisplayOwner(owner string) string {
	if owner == "" || strings.Contains(owner, mentionSigil) {
		return owner
	}
	return mentionSigil + owner
}

// IsTeam reports whether an owner token names a team (org/team) rather than a person.
func IsTeam(owner string) bool {
	return strings.Contains(owner, "/") && !strings.Contains(owner, mentionSigil)
}
