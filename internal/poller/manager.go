// Package poller runs one independent polling loop per monitored
// (chat, leaderboard, year) key. Loops are fault-isolated: a failing or
// misconfigured task never affects its siblings, and the scheduler
// stays responsive to add/remove/status calls while loops run.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/aoc"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/leaderboard"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/metrics"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/store"
)

// FetcherFactory builds the leaderboard client for one task's
// credentials.
type FetcherFactory func(cfg store.ChatConfig) aoc.Client

// SnapshotStore is the single-slot persistence the loops diff against.
type SnapshotStore interface {
	Load(chatID, boardID string, year int) (*leaderboard.Snapshot, error)
	Save(chatID, boardID string, year int, snap *leaderboard.Snapshot) error
}

// ConfigStore is the slice of the configuration store the loops need:
// permanently disabling a task whose credentials are rejected.
type ConfigStore interface {
	Disable(ctx context.Context, chatID, boardID string, year int) error
}

// Sink receives detected changes for delivery. Calls are best-effort;
// a sink error never aborts a cycle.
type Sink interface {
	DeliverChanges(ctx context.Context, chatID string, events []leaderboard.Event) error
	DeliverText(ctx context.Context, chatID, text string) error
}

type task struct {
	key    TaskKey
	cfg    store.ChatConfig
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status TaskStatus
}

type Manager struct {
	fetchers  FetcherFactory
	snapshots SnapshotStore
	configs   ConfigStore
	sink      Sink
	metrics   *metrics.Metrics
	logger    *zap.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu    sync.Mutex
	tasks map[TaskKey]*task
	wg    sync.WaitGroup
}

func NewManager(fetchers FetcherFactory, snapshots SnapshotStore, configs ConfigStore, sink Sink, m *metrics.Metrics, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fetchers:   fetchers,
		snapshots:  snapshots,
		configs:    configs,
		sink:       sink,
		metrics:    m,
		logger:     logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		tasks:      make(map[TaskKey]*task),
	}
}

// Add starts a polling loop for the config. Adding a key whose loop is
// already running is a no-op; a key whose previous loop has terminated
// (disabled credentials) is replaced.
func (m *Manager) Add(cfg store.ChatConfig) {
	key := TaskKey{ChatID: cfg.ChatID, BoardID: cfg.BoardID, Year: cfg.Year}

	m.mu.Lock()
	if existing, ok := m.tasks[key]; ok {
		select {
		case <-existing.done:
			// Terminated loop; fall through and replace it.
		default:
			m.mu.Unlock()
			m.logger.Warn("task already running", zap.Stringer("task", key))
			return
		}
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	t := &task{
		key:    key,
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
		status: TaskStatus{
			Key:      key,
			State:    StateRunning,
			NextPoll: time.Now(),
		},
	}
	m.tasks[key] = t
	m.metrics.SetActiveTasks(len(m.tasks))
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(ctx, t)
	m.logger.Info("started monitoring",
		zap.Stringer("task", key),
		zap.Duration("interval", cfg.Interval()))
}

// Remove cancels the key's loop, waits for it to wind down, and deletes
// its status entry. Removing an unknown key is a no-op.
func (m *Manager) Remove(key TaskKey) {
	m.mu.Lock()
	t, ok := m.tasks[key]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("task not running", zap.Stringer("task", key))
		return
	}
	delete(m.tasks, key)
	m.metrics.SetActiveTasks(len(m.tasks))
	m.mu.Unlock()

	t.cancel()
	<-t.done
	m.logger.Info("stopped monitoring", zap.Stringer("task", key))
}

// Status returns a copy of the key's status, or false when the key is
// unknown.
func (m *Manager) Status(key TaskKey) (TaskStatus, bool) {
	m.mu.Lock()
	t, ok := m.tasks[key]
	m.mu.Unlock()
	if !ok {
		return TaskStatus{}, false
	}
	return t.snapshotStatus(), true
}

// StatusForChat returns the status of the chat's task, if any. Each
// chat has at most one configured leaderboard.
func (m *Manager) StatusForChat(chatID string) (TaskStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, t := range m.tasks {
		if key.ChatID == chatID {
			return t.snapshotStatus(), true
		}
	}
	return TaskStatus{}, false
}

// List returns a copy of every task's status, sorted by key.
func (m *Manager) List() []TaskStatus {
	m.mu.Lock()
	statuses := make([]TaskStatus, 0, len(m.tasks))
	for _, t := range m.tasks {
		statuses = append(statuses, t.snapshotStatus())
	}
	m.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key.String() < statuses[j].Key.String()
	})
	return statuses
}

// Stop cancels every loop and blocks until all of them have
// acknowledged cancellation, so no fetch or save is in flight when it
// returns.
func (m *Manager) Stop() {
	m.logger.Info("stopping polling manager")
	m.baseCancel()
	m.wg.Wait()
	m.logger.Info("all polling loops stopped")
}

// run is one task's polling loop. Cycles are strictly sequential:
// fetch, diff against the stored snapshot, deliver, persist, update
// status, sleep for the interval. The interval is also the retry
// cadence after transient errors.
func (m *Manager) run(ctx context.Context, t *task) {
	defer m.wg.Done()
	defer close(t.done)

	logger := m.logger.With(zap.Stringer("task", t.key))
	fetch := m.fetchers(t.cfg)
	interval := t.cfg.Interval()

	for {
		if ctx.Err() != nil {
			t.setState(StateStopped)
			return
		}

		snap, err := fetch.FetchLeaderboard(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.setState(StateStopped)
				return
			}
			if errors.Is(err, aoc.ErrUnauthorized) {
				m.disableTask(ctx, t, logger, err)
				return
			}

			m.metrics.ObservePoll("error")
			t.recordFailure(err, time.Now(), interval)
			logger.Error("poll failed", zap.Error(err))

			if !sleepCtx(ctx, interval) {
				t.setState(StateStopped)
				return
			}
			continue
		}

		m.cycle(ctx, t, logger, snap, interval)

		if !sleepCtx(ctx, interval) {
			t.setState(StateStopped)
			return
		}
	}
}

// cycle handles one successful fetch: diff, deliver, persist, status.
func (m *Manager) cycle(ctx context.Context, t *task, logger *zap.Logger, snap *leaderboard.Snapshot, interval time.Duration) {
	prev, err := m.snapshots.Load(t.key.ChatID, t.key.BoardID, t.key.Year)
	if err != nil {
		// The store treats missing and corrupt slots as absent, so an
		// error here is unexpected; fall back to baseline behavior.
		logger.Warn("failed to load previous snapshot", zap.Error(err))
		prev = nil
	}

	events := leaderboard.Detect(prev, snap)
	if len(events) > 0 {
		logger.Info("changes detected", zap.Int("events", len(events)))
		m.countEvents(events)
		if derr := m.sink.DeliverChanges(ctx, t.cfg.ChatID, events); derr != nil {
			// Best effort: the snapshot is still saved below so future
			// diffs stay correct even when notification failed.
			logger.Warn("delivery failed", zap.Error(derr))
		}
	}

	if serr := m.snapshots.Save(t.key.ChatID, t.key.BoardID, t.key.Year, snap); serr != nil {
		// A failed save risks re-reporting the same changes next
		// cycle, so it counts as a cycle error.
		m.metrics.ObservePoll("error")
		t.recordFailure(serr, time.Now(), interval)
		logger.Error("failed to persist snapshot", zap.Error(serr))
		return
	}

	m.metrics.ObservePoll("success")
	t.recordSuccess(time.Now(), interval)
}

// disableTask handles the one fatal error kind: rejected credentials.
// Retrying with the same cookie is certain to keep failing, so the
// chat gets a single notification, the stored config is disabled, and
// the loop terminates. The status entry stays visible for operators.
func (m *Manager) disableTask(ctx context.Context, t *task, logger *zap.Logger, cause error) {
	m.metrics.ObservePoll("auth_failure")
	t.recordFailure(cause, time.Now(), 0)
	logger.Warn("authentication failed, disabling task", zap.Error(cause))

	msg := fmt.Sprintf("Session cookie invalid for leaderboard %s.\nPlease set it again with /set_leaderboard.", t.cfg.BoardID)
	if err := m.sink.DeliverText(ctx, t.cfg.ChatID, msg); err != nil {
		logger.Warn("failed to notify chat about disabled task", zap.Error(err))
	}

	if err := m.configs.Disable(ctx, t.key.ChatID, t.key.BoardID, t.key.Year); err != nil {
		logger.Error("failed to disable config", zap.Error(err))
	}
}

func (m *Manager) countEvents(events []leaderboard.Event) {
	counts := make(map[string]int, 4)
	for _, e := range events {
		switch e.(type) {
		case leaderboard.NewStar:
			counts["new_star"]++
		case leaderboard.RankChange:
			counts["rank_change"]++
		case leaderboard.ScoreChange:
			counts["score_change"]++
		case leaderboard.NewMember:
			counts["new_member"]++
		}
	}
	for kind, n := range counts {
		m.metrics.ObserveEvents(kind, n)
	}
}

// sleepCtx waits for d or until the context is cancelled. It returns
// false on cancellation, so shutdown latency is bounded by the signal,
// not the poll interval.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
