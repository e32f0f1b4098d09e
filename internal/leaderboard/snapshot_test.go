package leaderboard

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseSnapshot(t *testing.T) {
	raw := []byte(`{
		"event": "2024",
		"owner_id": 11,
		"members": {
			"11": {
				"name": "alice",
				"stars": 3,
				"local_score": 30,
				"completion_day_level": {
					"1": {"1": {"get_star_ts": 1733030000}, "2": {"get_star_ts": 1733031000}},
					"2": {"1": {"get_star_ts": 1733120000}}
				}
			},
			"22": {
				"name": null,
				"stars": 0,
				"local_score": 0,
				"completion_day_level": {}
			}
		}
	}`)

	snap, err := ParseSnapshot(raw, time.Unix(1733140000, 0))
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}

	if len(snap.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(snap.Members))
	}

	alice := snap.Members["11"]
	if alice.Name != "alice" || alice.Score != 30 || alice.Stars != 3 {
		t.Errorf("unexpected member state: %+v", alice)
	}
	if !alice.Days[1].Has(1) || !alice.Days[1].Has(2) {
		t.Error("expected day 1 fully completed")
	}
	if !alice.Days[2].Has(1) || alice.Days[2].Has(2) {
		t.Errorf("expected day 2 part 1 only, got %v", alice.Days[2].List())
	}
	if alice.Days[3] != 0 {
		t.Error("expected day 3 untouched")
	}

	anon := snap.Members["22"]
	if anon.Name != "User 22" {
		t.Errorf("expected anonymous fallback name, got %q", anon.Name)
	}

	if alice.Rank != 1 || anon.Rank != 2 {
		t.Errorf("expected ranks 1 and 2, got %d and %d", alice.Rank, anon.Rank)
	}
}

func TestCompetitionRanking(t *testing.T) {
	// Tied scores share a rank; the next distinct score skips numbers.
	snap := &Snapshot{
		Members: map[string]MemberState{
			"a": {ID: "a", Score: 100},
			"b": {ID: "b", Score: 100},
			"c": {ID: "c", Score: 80},
		},
	}
	snap.finalize()

	want := map[string]int{"a": 1, "b": 1, "c": 3}
	for id, rank := range want {
		if got := snap.Members[id].Rank; got != rank {
			t.Errorf("member %s: rank = %d, want %d", id, got, rank)
		}
	}
}

func TestRankingsOrder(t *testing.T) {
	snap := &Snapshot{
		Members: map[string]MemberState{
			"z": {ID: "z", Score: 50},
			"a": {ID: "a", Score: 50},
			"m": {ID: "m", Score: 70},
		},
	}
	snap.finalize()

	got := make([]string, 0, len(snap.Rankings))
	for _, r := range snap.Rankings {
		got = append(got, r.MemberID)
	}
	want := []string{"m", "a", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rankings order = %v, want %v", got, want)
		}
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	var days Days
	days[1].Add(1)
	days[1].Add(2)
	days[5].Add(1)

	orig := &Snapshot{
		ObservedAt: time.Unix(1733140000, 0).UTC(),
		Members: map[string]MemberState{
			"11": {ID: "11", Name: "alice", Score: 30, Stars: 3, Days: days},
			"22": {ID: "22", Name: "bob", Score: 10, Stars: 1},
		},
	}
	orig.finalize()

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// The wire shape is a compatibility contract: unix timestamp,
	// members keyed by id, days as string keys with sorted part lists.
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal wire: %v", err)
	}
	if ts, ok := wire["observed_at"].(float64); !ok || int64(ts) != 1733140000 {
		t.Errorf("observed_at = %v, want 1733140000", wire["observed_at"])
	}
	members := wire["members"].(map[string]any)
	alice := members["11"].(map[string]any)
	cd := alice["completed_days"].(map[string]any)
	if _, ok := cd["1"]; !ok {
		t.Error("expected day key \"1\" in completed_days")
	}
	if _, ok := cd["2"]; ok {
		t.Error("day with no parts must be omitted")
	}

	var restored Snapshot
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !restored.ObservedAt.Equal(orig.ObservedAt) {
		t.Errorf("observed_at = %v, want %v", restored.ObservedAt, orig.ObservedAt)
	}
	if len(restored.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(restored.Members))
	}
	got := restored.Members["11"]
	if got.Name != "alice" || got.Score != 30 || got.Stars != 3 || got.Rank != 1 {
		t.Errorf("unexpected restored member: %+v", got)
	}
	if got.Days != days {
		t.Errorf("restored days = %v, want %v", got.Days, days)
	}
	if restored.Members["22"].Rank != 2 {
		t.Errorf("rank not recomputed on load")
	}
}

func TestParts(t *testing.T) {
	var p Parts
	if p.Has(1) || p.Has(2) {
		t.Error("zero value must have no parts")
	}
	p.Add(2)
	if !p.Has(2) || p.Has(1) {
		t.Errorf("unexpected parts after Add(2): %v", p.List())
	}
	p.Add(1)
	got := p.List()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("List() = %v, want [1 2]", got)
	}
}
