// Package sessions implements the session manager: the only component that
// knows how many Agents exist. It enforces the idle timeout, the session
// cardinality bound, and shutdown fan-out.
package sessions

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openptc/ptcd/internal/agent"
	"github.com/openptc/ptcd/pkg/protocol"
)

// ErrManagerClosed is returned by Acquire after Shutdown has begun.
var ErrManagerClosed = protocol.Errorf(protocol.KindManagerClosed, "session manager is shut down")

// Factory constructs a fresh Agent for a session id. It must not block; the
// manager calls it under its mutex.
type Factory func(sessionID string) *agent.Agent

// Config configures a Manager.
type Config struct {
	SessionTimeout time.Duration // idle bound; default 30m
	MaxSessions    int           // cardinality bound; default 1000
	SweepInterval  time.Duration // sweeper period; default 60s
	DrainTimeout   time.Duration // shutdown fan-out bound; default 30s
	NewAgent       Factory
}

type entry struct {
	agent        *agent.Agent
	lastActivity time.Time
	seq          uint64 // insertion order, tie-break for eviction
}

// Manager maps sessionId → Agent. A single mutex guards the registry and the
// activity timestamps; it is held only for map operations and timestamp
// updates, never across I/O or a Run call.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
	nextSeq uint64
	closed  bool

	stopSweep chan struct{}
	sweepDone chan struct{}
	shutdown  sync.Once
}

// NewManager creates a manager and starts its background sweeper.
func NewManager(cfg Config) *Manager {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 30 * time.Second
	}

	m := &Manager{
		cfg:       cfg,
		entries:   make(map[string]*entry),
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go m.sweeper()
	return m
}

// Acquire returns the Agent for a session id, constructing it on first use.
// Two Acquire calls for the same id during one session lifetime return the
// same Agent. A new session may evict the least recently used one.
func (m *Manager) Acquire(sessionID string) (*agent.Agent, error) {
	var evicted *agent.Agent

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}

	if e, ok := m.entries[sessionID]; ok {
		e.lastActivity = time.Now()
		ag := e.agent
		m.mu.Unlock()
		return ag, nil
	}

	if len(m.entries) >= m.cfg.MaxSessions {
		if victim := m.oldestLocked(); victim != "" {
			evicted = m.entries[victim].agent
			delete(m.entries, victim)
			slog.Info("evicting least recently used session", "session", victim)
		}
	}

	ag := m.cfg.NewAgent(sessionID)
	m.nextSeq++
	m.entries[sessionID] = &entry{agent: ag, lastActivity: time.Now(), seq: m.nextSeq}
	m.mu.Unlock()

	// The evicted agent's caller (if any) still holds a valid reference; we
	// only drop ours and release its resources.
	if evicted != nil {
		evicted.Cleanup()
	}
	return ag, nil
}

// oldestLocked picks the entry with the oldest lastActivity, breaking ties by
// insertion order. Caller holds the mutex.
func (m *Manager) oldestLocked() string {
	var victim string
	var oldest time.Time
	var oldestSeq uint64

	for id, e := range m.entries {
		older := victim == "" ||
			e.lastActivity.Before(oldest) ||
			(e.lastActivity.Equal(oldest) && e.seq < oldestSeq)
		if older {
			victim = id
			oldest = e.lastActivity
			oldestSeq = e.seq
		}
	}
	return victim
}

// Release removes a session and cleans its Agent. No-op for unknown ids.
func (m *Manager) Release(sessionID string) {
	m.mu.Lock()
	e, ok := m.entries[sessionID]
	if ok {
		delete(m.entries, sessionID)
	}
	m.mu.Unlock()

	if ok {
		e.agent.Cleanup()
	}
}

// Touch updates a session's activity time. No-op for unknown ids.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	if e, ok := m.entries[sessionID]; ok {
		e.lastActivity = time.Now()
	}
	m.mu.Unlock()
}

// Count returns the number of resident sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ActiveSessions returns the resident session ids.
func (m *Manager) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	return ids
}

// sweeper releases sessions idle past the timeout, one pass per interval.
func (m *Manager) sweeper() {
	defer close(m.sweepDone)
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopSweep:
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

// sweepOnce collects expired sessions under the mutex, then cleans them
// outside it.
func (m *Manager) sweepOnce() {
	cutoff := time.Now().Add(-m.cfg.SessionTimeout)

	var expired []*entry
	m.mu.Lock()
	for id, e := range m.entries {
		if e.lastActivity.Before(cutoff) {
			expired = append(expired, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		slog.Info("releasing idle session", "session", e.agent.SessionID())
		e.agent.Cleanup()
	}
}

// Shutdown stops the sweeper and cleans every Agent concurrently, bounded by
// the drain timeout. Idempotent; Acquire fails with ErrManagerClosed once
// shutdown has begun.
func (m *Manager) Shutdown() {
	m.shutdown.Do(func() {
		m.mu.Lock()
		m.closed = true
		remaining := make([]*entry, 0, len(m.entries))
		for _, e := range m.entries {
			remaining = append(remaining, e)
		}
		m.entries = make(map[string]*entry)
		m.mu.Unlock()

		close(m.stopSweep)
		<-m.sweepDone

		var wg sync.WaitGroup
		for _, e := range remaining {
			wg.Add(1)
			go func(e *entry) {
				defer wg.Done()
				e.agent.Cleanup()
			}(e)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(m.cfg.DrainTimeout):
			slog.Warn("session drain deadline exceeded", "sessions", len(remaining))
		}
	})
}
