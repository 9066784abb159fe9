package leaderboard

import (
	"sort"

	"github.com/google/uuid"
)

// Scope selects the audience of a ranking: a single group or every group.
type Scope struct {
	GroupID *uuid.UUID
}

func GlobalScope() Scope { return Scope{} }

func GroupScope(groupID uuid.UUID) Scope { return Scope{GroupID: &groupID} }

func (s Scope) Global() bool { return s.GroupID == nil }

// CacheKey is the stable identifier of a scope for the leaderboard cache.
func (s Scope) CacheKey() string {
	if s.GroupID == nil {
		return "leaderboard:global"
	}
	return "leaderboard:group:" + s.GroupID.String()
}

type Entry struct {
	ScoutID  uuid.UUID `json:"scout_id" db:"scout_id"`
	Username string    `json:"username" db:"username"`
	ImageURL *string   `json:"image_url" db:"image_url"`
	Points   int       `json:"points" db:"points"`
	Rank     int       `json:"rank"`
}

type Board struct {
	Entries     []*Entry `json:"entries"`
	CallerEntry *Entry   `json:"caller_entry"`
	TotalScouts int      `json:"total_scouts"`
}

// AssignRanks orders entries by points descending (scout id ascending on
// ties, so repeated calls return the same element order) and assigns
// standard competition ranks: tied scores share a rank and the next distinct
// score resumes at previousRank + numberOfTied, e.g. 50,50,30 -> 1,1,3.
// Both the full board and single-scout lookups go through this one function.
func AssignRanks(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].ScoutID.String() < entries[j].ScoutID.String()
	})

	for i, e := range entries {
		if i > 0 && e.Points == entries[i-1].Points {
			e.Rank = entries[i-1].Rank
		} else {
			e.Rank = i + 1
		}
	}
}
