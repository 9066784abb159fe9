package leaderboard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, points int) *Entry {
	return &Entry{ScoutID: uuid.MustParse(id), Points: points}
}

func TestAssignRanksCompetitionRanking(t *testing.T) {
	entries := []*Entry{
		entry("00000000-0000-0000-0000-000000000003", 30),
		entry("00000000-0000-0000-0000-000000000001", 50),
		entry("00000000-0000-0000-0000-000000000002", 50),
	}

	AssignRanks(entries)

	require.Len(t, entries, 3)
	assert.Equal(t, 50, entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 50, entries[1].Points)
	assert.Equal(t, 1, entries[1].Rank)
	assert.Equal(t, 30, entries[2].Points)
	assert.Equal(t, 3, entries[2].Rank, "rank after a two-way tie at 1 resumes at 3, not 2")
}

func TestAssignRanksAllTied(t *testing.T) {
	entries := []*Entry{
		entry("00000000-0000-0000-0000-000000000002", 10),
		entry("00000000-0000-0000-0000-000000000001", 10),
		entry("00000000-0000-0000-0000-000000000003", 10),
	}

	AssignRanks(entries)

	for _, e := range entries {
		assert.Equal(t, 1, e.Rank)
	}
}

func TestAssignRanksDeterministicTieOrder(t *testing.T) {
	build := func() []*Entry {
		return []*Entry{
			entry("00000000-0000-0000-0000-00000000000b", 20),
			entry("00000000-0000-0000-0000-00000000000a", 20),
			entry("00000000-0000-0000-0000-00000000000c", 40),
		}
	}

	first := build()
	AssignRanks(first)

	// Same input in a different arrival order must produce the same element
	// order, so two concurrent reads of the same board agree.
	second := []*Entry{first[1], first[2], first[0]}
	AssignRanks(second)

	for i := range first {
		assert.Equal(t, first[i].ScoutID, second[i].ScoutID)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}

	assert.Equal(t, "00000000-0000-0000-0000-00000000000c", first[0].ScoutID.String())
	assert.Equal(t, "00000000-0000-0000-0000-00000000000a", first[1].ScoutID.String(), "ties break by scout id ascending")
	assert.Equal(t, "00000000-0000-0000-0000-00000000000b", first[2].ScoutID.String())
}

func TestAssignRanksEmptyAndSingle(t *testing.T) {
	AssignRanks(nil)

	one := []*Entry{entry("00000000-0000-0000-0000-000000000001", 0)}
	AssignRanks(one)
	assert.Equal(t, 1, one[0].Rank)
}

func TestScopeCacheKey(t *testing.T) {
	assert.Equal(t, "leaderboard:global", GlobalScope().CacheKey())
	assert.True(t, GlobalScope().Global())

	groupID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	scope := GroupScope(groupID)
	assert.False(t, scope.Global())
	assert.Equal(t, "leaderboard:group:11111111-2222-3333-4444-555555555555", scope.CacheKey())
}
