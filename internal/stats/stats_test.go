package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/models"
)

const rules = `
/core/ @alice @bob
/docs/ @carol @acme/writers
`

func history() []*models.ChangeRecord {
	return []*models.ChangeRecord{
		{ID: 1, FilePaths: []string{"core/a.go", "core/b.go"}, Approvers: []string{"alice"}},
		{ID: 2, FilePaths: []string{"core/a.go"}, Approvers: []string{"alice", "bob"}},
		{ID: 3, FilePaths: []string{"core/c.go", "docs/x.md"}, Approvers: []string{"dave"}},
		{ID: 4, FilePaths: []string{"docs/y.md"}, Approvers: []string{"erin"}},
		{ID: 5, FilePaths: []string{"misc/z.txt"}, Approvers: []string{"alice"}},
	}
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex(history(), codeowners.NewResolver(codeowners.Parse(rules)))
}

func TestNewDeveloperStatsZeroAppearances(t *testing.T) {
	s := NewDeveloperStats(0, 0, 0)
	assert.Zero(t, s.ApprovalRate)
	assert.Zero(t, s.ExperienceScore)

	s = NewDeveloperStats(2, 4, 3)
	assert.InDelta(t, 0.5, s.ApprovalRate, 1e-9)
	assert.InDelta(t, 0.7, s.ExperienceScore, 1e-9)
}

func TestDeveloperFullHistory(t *testing.T) {
	idx := newIndex(t)
	core := GroupTarget("alice,bob")

	assert.Equal(t, 3, idx.Appearances(core))

	alice := idx.Developer(core, "alice")
	assert.Equal(t, 2, alice.ApprovalCount)
	assert.Equal(t, 3, alice.AppearanceCount)
	assert.Equal(t, 4, alice.FileExperience) // 2 + 1 + 1 core files
	assert.InDelta(t, 2.0/3.0, alice.ApprovalRate, 1e-9)

	unknown := idx.Developer(GroupTarget("nobody"), "alice")
	assert.Equal(t, NewDeveloperStats(0, 0, 0), unknown)
}

func TestExcludingRemovesOwnRecord(t *testing.T) {
	idx := newIndex(t)
	core := GroupTarget("alice,bob")
	records := idx.Records()
	require.Len(t, records, 5)

	s := idx.Excluding(core, "alice", records[0])
	assert.Equal(t, 1, s.ApprovalCount)
	assert.Equal(t, 2, s.AppearanceCount)
	assert.Equal(t, 2, s.FileExperience)

	// a record that did not touch the target changes nothing
	s = idx.Excluding(core, "alice", records[4])
	assert.Equal(t, idx.Developer(core, "alice"), s)

	// developer absent from the record keeps approvals, loses one appearance
	s = idx.Excluding(core, "bob", records[0])
	assert.Equal(t, 1, s.ApprovalCount)
	assert.Equal(t, 2, s.AppearanceCount)
	assert.Equal(t, 2, s.FileExperience)
}

func TestFileExperienceCountsEveryAppearance(t *testing.T) {
	idx := newIndex(t)
	core := GroupTarget("alice,bob")

	// dave approved one core change, bob two; both saw all four core files
	assert.Equal(t, 4, idx.Developer(core, "dave").FileExperience)
	assert.Equal(t, 4, idx.Developer(core, "bob").FileExperience)
	assert.Equal(t, 1, idx.Developer(core, "dave").ApprovalCount)

	writers := TeamTarget("acme/writers")
	assert.Equal(t, 2, idx.Developer(writers, "alice").FileExperience)
	assert.Zero(t, idx.Developer(writers, "alice").ApprovalCount)
}

func TestTeamDiscovery(t *testing.T) {
	idx := newIndex(t)

	assert.Equal(t, []string{"dave", "erin"}, idx.TeamMembers("acme/writers"))
	assert.Equal(t, []string{"acme/writers"}, idx.Teams(2))
	assert.Empty(t, idx.Teams(3))
	assert.Empty(t, idx.TeamMembers("acme/ghosts"))

	writers := TeamTarget("acme/writers")
	assert.Equal(t, 2, idx.Appearances(writers))
	assert.Equal(t, []string{"docs/x.md"}, idx.Records()[2].FilesFor(writers))
	assert.Equal(t, []string{"acme/writers"}, idx.Records()[3].Teams)
}

func TestGroupsAndSnapshot(t *testing.T) {
	idx := newIndex(t)
	assert.Equal(t, []string{"acme/writers,carol", "alice,bob"}, idx.Groups())

	snap := idx.Snapshot(GroupTarget("alice,bob"), []string{"alice", "bob", "zed"})
	require.Len(t, snap, 3)
	assert.Equal(t, 1, snap["bob"].ApprovalCount)
	assert.Zero(t, snap["zed"].ApprovalRate)
}
