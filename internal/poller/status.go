package poller

import (
	"fmt"
	"time"
)

// TaskKey identifies one polling loop: a chat watching one leaderboard
// for one event year.
type TaskKey struct {
	ChatID  string `json:"chat_id"`
	BoardID string `json:"board_id"`
	Year    int    `json:"year"`
}

func (k TaskKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.ChatID, k.BoardID, k.Year)
}

// TaskState is the lifecycle state of a polling loop.
type TaskState string

const (
	StateRunning TaskState = "running"
	StateStopped TaskState = "stopped"
	StateError   TaskState = "error"
)

// TaskStatus is a point-in-time copy of one loop's health. Only the
// owning loop writes it; readers always get a copy.
type TaskStatus struct {
	Key          TaskKey   `json:"key"`
	State        TaskState `json:"state"`
	LastPoll     time.Time `json:"last_poll"`
	NextPoll     time.Time `json:"next_poll"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ErrorCount   int       `json:"error_count"`
}

// recordSuccess resets error tracking after a clean cycle.
func (t *task) recordSuccess(now time.Time, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateRunning
	t.status.LastPoll = now
	t.status.NextPoll = now.Add(interval)
	t.status.ErrorCount = 0
	t.status.ErrorMessage = ""
}

// recordFailure bumps the consecutive error count. The interval is the
// retry cadence, so NextPoll still advances by it.
func (t *task) recordFailure(err error, now time.Time, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateError
	t.status.LastPoll = now
	t.status.NextPoll = now.Add(interval)
	t.status.ErrorCount++
	t.status.ErrorMessage = err.Error()
}

func (t *task) setState(state TaskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = state
}

// snapshotStatus returns a copy for readers.
func (t *task) snapshotStatus() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
