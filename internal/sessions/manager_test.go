package sessions

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openptc/ptcd/internal/agent"
	"github.com/openptc/ptcd/pkg/protocol"
)

func testFactory() Factory {
	return func(sessionID string) *agent.Agent {
		return agent.New(agent.Config{}, sessionID)
	}
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.NewAgent == nil {
		cfg.NewAgent = testFactory()
	}
	m := NewManager(cfg)
	t.Cleanup(m.Shutdown)
	return m
}

func TestAcquireIdentity(t *testing.T) {
	m := newTestManager(t, Config{})

	a1, err := m.Acquire("s1")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := m.Acquire("s1")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Error("same session id must return the same agent")
	}

	b, err := m.Acquire("s2")
	if err != nil {
		t.Fatal(err)
	}
	if b == a1 {
		t.Error("different session ids must get different agents")
	}
	if m.Count() != 2 {
		t.Errorf("count = %d", m.Count())
	}
}

func TestAcquireEvictsLRU(t *testing.T) {
	m := newTestManager(t, Config{MaxSessions: 2})

	if _, err := m.Acquire("old"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Acquire("newer"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	// touching "old" makes "newer" the eviction victim
	m.Touch("old")
	time.Sleep(5 * time.Millisecond)

	if _, err := m.Acquire("third"); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 2 {
		t.Fatalf("count = %d, want bound of 2", m.Count())
	}

	ids := map[string]bool{}
	for _, id := range m.ActiveSessions() {
		ids[id] = true
	}
	if !ids["old"] || !ids["third"] || ids["newer"] {
		t.Errorf("resident sessions = %v, want old+third", m.ActiveSessions())
	}
}

func TestRelease(t *testing.T) {
	m := newTestManager(t, Config{})

	a1, _ := m.Acquire("s1")
	m.Release("s1")
	if m.Count() != 0 {
		t.Errorf("count = %d", m.Count())
	}

	a2, err := m.Acquire("s1")
	if err != nil {
		t.Fatal(err)
	}
	if a1 == a2 {
		t.Error("released session must get a fresh agent on re-acquire")
	}

	// unknown ids are a no-op
	m.Release("never-existed")
}

func TestIdleSweep(t *testing.T) {
	m := newTestManager(t, Config{
		SessionTimeout: 30 * time.Millisecond,
		SweepInterval:  10 * time.Millisecond,
	})

	if _, err := m.Acquire("idle"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.Count() != 0 {
		t.Error("idle session never swept")
	}
}

func TestShutdown(t *testing.T) {
	m := NewManager(Config{NewAgent: testFactory()})

	for i := 0; i < 5; i++ {
		if _, err := m.Acquire(fmt.Sprintf("s%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	m.Shutdown()

	if _, err := m.Acquire("after"); err == nil {
		t.Fatal("Acquire after Shutdown must fail")
	} else {
		var perr *protocol.Error
		if !errors.As(err, &perr) || perr.Kind != protocol.KindManagerClosed {
			t.Errorf("err = %v, want manager_closed", err)
		}
	}
	if m.Count() != 0 {
		t.Errorf("count after shutdown = %d", m.Count())
	}

	// idempotent
	m.Shutdown()
}

func TestAcquireIdentityConcurrent(t *testing.T) {
	m := newTestManager(t, Config{})

	const workers = 16
	agents := make([]*agent.Agent, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := m.Acquire("shared")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			agents[i] = a
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if agents[i] != agents[0] {
			t.Fatal("concurrent Acquire returned distinct agents for one id")
		}
	}
	if m.Count() != 1 {
		t.Errorf("count = %d", m.Count())
	}
}

func TestConcurrentAcquireReleaseSweep(t *testing.T) {
	m := newTestManager(t, Config{
		MaxSessions:    8,
		SessionTimeout: 20 * time.Millisecond,
		SweepInterval:  5 * time.Millisecond,
	})

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%4) // overlapping ids across workers
			for j := 0; j < 50; j++ {
				a, err := m.Acquire(id)
				if err != nil {
					t.Errorf("acquire %s: %v", id, err)
					return
				}
				if a.SessionID() != id {
					t.Errorf("agent bound to %q, want %q", a.SessionID(), id)
					return
				}
				m.Touch(id)
				if j%10 == 9 {
					m.Release(id)
				}
			}
		}(i)
	}
	wg.Wait()

	if c := m.Count(); c > 8 {
		t.Errorf("count = %d, exceeds session bound", c)
	}
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	m := newTestManager(t, Config{
		SessionTimeout: 60 * time.Millisecond,
		SweepInterval:  15 * time.Millisecond,
	})

	if _, err := m.Acquire("busy"); err != nil {
		t.Fatal(err)
	}

	// keep touching for a few timeout periods
	stop := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(stop) {
		m.Touch("busy")
		time.Sleep(10 * time.Millisecond)
	}
	if m.Count() != 1 {
		t.Error("touched session was swept")
	}
}
