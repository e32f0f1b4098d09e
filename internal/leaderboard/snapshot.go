package leaderboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const (
	// FirstDay and LastDay bound the puzzle calendar.
	FirstDay = 1
	LastDay  = 25
)

// Parts is a bitset of completed puzzle parts for one day.
// Bit 0 is part 1, bit 1 is part 2. The zero value means "not started",
// so an absent day and an empty part set are the same thing by
// construction.
type Parts uint8

const (
	Part1 Parts = 1 << 0
	Part2 Parts = 1 << 1
)

// Has reports whether the given part (1 or 2) is completed.
func (p Parts) Has(part int) bool {
	return p&partBit(part) != 0
}

// Add marks the given part (1 or 2) as completed.
func (p *Parts) Add(part int) {
	*p |= partBit(part)
}

// List returns the completed parts in ascending order.
func (p Parts) List() []int {
	out := make([]int, 0, 2)
	if p.Has(1) {
		out = append(out, 1)
	}
	if p.Has(2) {
		out = append(out, 2)
	}
	return out
}

func partBit(part int) Parts {
	switch part {
	case 1:
		return Part1
	case 2:
		return Part2
	default:
		return 0
	}
}

// Days holds per-day completion state, indexed by day number 1..25.
// Index 0 is unused.
type Days [LastDay + 1]Parts

// MemberState is one member's observed state within a snapshot.
type MemberState struct {
	ID    string
	Name  string
	Score int
	Stars int
	// Rank uses competition ranking: 1 + the number of members with a
	// strictly greater score. Tied scores share a rank and the next
	// distinct score may skip integers. Recomputed per snapshot, never
	// carried over.
	Rank int
	Days Days
}

// Ranking is one entry of the derived score ordering.
type Ranking struct {
	MemberID string
	Score    int
}

// Snapshot is one point-in-time observation of a leaderboard.
type Snapshot struct {
	ObservedAt time.Time
	Members    map[string]MemberState
	// Rankings is derived from Members: descending by score, ties
	// broken by ascending member id.
	Rankings []Ranking
}

// MemberIDs returns all member ids in ascending order. The upstream
// JSON object ordering is not trusted, so sorted ids are the documented
// deterministic iteration order for diffing and event output.
func (s *Snapshot) MemberIDs() []string {
	ids := make([]string, 0, len(s.Members))
	for id := range s.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// finalize rebuilds Rankings and every member's Rank from the scores.
func (s *Snapshot) finalize() {
	rankings := make([]Ranking, 0, len(s.Members))
	for id, m := range s.Members {
		rankings = append(rankings, Ranking{MemberID: id, Score: m.Score})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].MemberID < rankings[j].MemberID
	})
	s.Rankings = rankings

	for _, r := range rankings {
		rank := 1
		for _, other := range rankings {
			if other.Score > r.Score {
				rank++
			}
		}
		m := s.Members[r.MemberID]
		m.Rank = rank
		s.Members[r.MemberID] = m
	}
}

// apiLeaderboard mirrors the relevant parts of the upstream AoC private
// leaderboard JSON.
type apiLeaderboard struct {
	Members map[string]apiMember `json:"members"`
}

type apiMember struct {
	Name       *string `json:"name"`
	Stars      int     `json:"stars"`
	LocalScore int     `json:"local_score"`
	// Only the day/part keys matter; the per-star payload
	// (get_star_ts etc) is discarded.
	CompletionDayLevel map[string]map[string]json.RawMessage `json:"completion_day_level"`
}

// ParseSnapshot converts a raw AoC leaderboard API response into a
// Snapshot observed at the given time.
func ParseSnapshot(raw []byte, observedAt time.Time) (*Snapshot, error) {
	var api apiLeaderboard
	if err := json.Unmarshal(raw, &api); err != nil {
		return nil, fmt.Errorf("parsing leaderboard response: %w", err)
	}

	snap := &Snapshot{
		ObservedAt: observedAt,
		Members:    make(map[string]MemberState, len(api.Members)),
	}

	for id, am := range api.Members {
		name := "User " + id
		if am.Name != nil && *am.Name != "" {
			name = *am.Name
		}

		var days Days
		for dayStr, parts := range am.CompletionDayLevel {
			day, err := strconv.Atoi(dayStr)
			if err != nil || day < FirstDay || day > LastDay {
				continue
			}
			for partStr := range parts {
				part, err := strconv.Atoi(partStr)
				if err != nil {
					continue
				}
				days[day].Add(part)
			}
		}

		snap.Members[id] = MemberState{
			ID:    id,
			Name:  name,
			Score: am.LocalScore,
			Stars: am.Stars,
			Days:  days,
		}
	}

	snap.finalize()
	return snap, nil
}
