package state

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/leaderboard"
)

func testSnapshot(score int) *leaderboard.Snapshot {
	snap := &leaderboard.Snapshot{
		ObservedAt: time.Unix(1733140000, 0).UTC(),
		Members: map[string]leaderboard.MemberState{
			"1": {ID: "1", Name: "alice", Score: score, Stars: 2},
		},
	}
	return snap
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewStore(t.TempDir(), logger)
}

func TestSaveLoad(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("-100", "12345", 2024, testSnapshot(30)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, err := store.Load("-100", "12345", 2024)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got := snap.Members["1"].Score; got != 30 {
		t.Errorf("score = %d, want 30", got)
	}
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load("-100", "12345", 2024)
	if err != nil {
		t.Fatalf("Load of missing slot errored: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil for missing slot, got %+v", snap)
	}
}

func TestLoadCorrupt(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	dir := t.TempDir()
	store := NewStore(dir, logger)

	path := filepath.Join(dir, "state_n100_12345_2024.json")
	if err := os.WriteFile(path, []byte("{not json"), 0640); err != nil {
		t.Fatal(err)
	}

	snap, err := store.Load("-100", "12345", 2024)
	if err != nil {
		t.Fatalf("Load of corrupt slot errored: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil for corrupt slot, got %+v", snap)
	}
}

func TestSaveReplacesSlot(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("-100", "12345", 2024, testSnapshot(10)); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("-100", "12345", 2024, testSnapshot(20)); err != nil {
		t.Fatal(err)
	}

	snap, err := store.Load("-100", "12345", 2024)
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Members["1"].Score; got != 20 {
		t.Errorf("score = %d, want 20 (latest save wins)", got)
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)

	if err := store.Remove("-100", "12345", 2024); err != nil {
		t.Fatalf("Remove of missing slot errored: %v", err)
	}

	if err := store.Save("-100", "12345", 2024, testSnapshot(10)); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove("-100", "12345", 2024); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	snap, _ := store.Load("-100", "12345", 2024)
	if snap != nil {
		t.Error("slot still present after Remove")
	}
}

// Concurrent loads during saves must observe either the fully-old or
// fully-new snapshot, never a partial one.
func TestAtomicSave(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("-100", "12345", 2024, testSnapshot(0)); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 50; i++ {
			if err := store.Save("-100", "12345", 2024, testSnapshot(i)); err != nil {
				t.Errorf("Save failed: %v", err)
				return
			}
		}
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			snap, err := store.Load("-100", "12345", 2024)
			if err != nil {
				t.Errorf("Load failed: %v", err)
				return
			}
			if snap == nil {
				t.Error("reader observed missing slot mid-save")
				return
			}
			m, ok := snap.Members["1"]
			if !ok || m.Name != "alice" {
				t.Errorf("reader observed partial snapshot: %+v", snap)
				return
			}
		}
	}()

	wg.Wait()
}
