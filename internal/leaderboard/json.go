package leaderboard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Slot wire format. One record per (chat, leaderboard, year) key:
//
//	{
//	  "observed_at": <unix seconds>,
//	  "members": {
//	    "<id>": {
//	      "name": ..., "score": ..., "stars": ..., "rank": ...,
//	      "completed_days": {"<day>": [1, 2]}
//	    }
//	  }
//	}
//
// Days with no completed parts are omitted and part lists are sorted
// ascending. Rankings are derived, not persisted.

type slotSnapshot struct {
	ObservedAt int64                 `json:"observed_at"`
	Members    map[string]slotMember `json:"members"`
}

type slotMember struct {
	Name          string           `json:"name"`
	Score         int              `json:"score"`
	Stars         int              `json:"stars"`
	Rank          int              `json:"rank"`
	CompletedDays map[string][]int `json:"completed_days"`
}

// MarshalJSON writes the snapshot in the slot wire format.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := slotSnapshot{
		ObservedAt: s.ObservedAt.Unix(),
		Members:    make(map[string]slotMember, len(s.Members)),
	}
	for id, m := range s.Members {
		days := make(map[string][]int)
		for day := FirstDay; day <= LastDay; day++ {
			if parts := m.Days[day]; parts != 0 {
				days[strconv.Itoa(day)] = parts.List()
			}
		}
		out.Members[id] = slotMember{
			Name:          m.Name,
			Score:         m.Score,
			Stars:         m.Stars,
			Rank:          m.Rank,
			CompletedDays: days,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the slot wire format. Rankings are rebuilt and
// ranks recomputed from the persisted scores rather than trusted.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in slotSnapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	s.ObservedAt = time.Unix(in.ObservedAt, 0).UTC()
	s.Members = make(map[string]MemberState, len(in.Members))

	for id, sm := range in.Members {
		var days Days
		for dayStr, parts := range sm.CompletedDays {
			day, err := strconv.Atoi(dayStr)
			if err != nil || day < FirstDay || day > LastDay {
				return fmt.Errorf("invalid day %q in stored snapshot", dayStr)
			}
			for _, part := range parts {
				days[day].Add(part)
			}
		}
		s.Members[id] = MemberState{
			ID:    id,
			Name:  sm.Name,
			Score: sm.Score,
			Stars: sm.Stars,
			Days:  days,
		}
	}

	s.finalize()
	return nil
}
