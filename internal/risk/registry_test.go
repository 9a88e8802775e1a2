package risk

import (
	"sync"
	"testing"
	"time"
)

// TestRegistryCleanupIdle verifies that CleanupIdle removes only idle contexts.
func TestRegistryCleanupIdle(t *testing.T) {
	reg := NewRegistry(DefaultConfig())

	reg.GetOrCreate("BTC/USDT")
	reg.GetOrCreate("ETH/USDT")
	if got := reg.Count(); got != 2 {
		t.Fatalf("expected 2 contexts before cleanup, got %d", got)
	}

	// Make BTC look idle by moving its lastSeen far in the past.
	reg.mu.Lock()
	reg.lastSeen["BTC/USDT"] = time.Now().Add(-2 * time.Hour)
	reg.lastSeen["ETH/USDT"] = time.Now()
	reg.mu.Unlock()

	if removed := reg.CleanupIdle(time.Hour); removed != 1 {
		t.Fatalf("expected 1 context removed, got %d", removed)
	}
	if reg.Get("BTC/USDT") != nil {
		t.Fatalf("expected BTC/USDT to be removed")
	}
	if reg.Get("ETH/USDT") == nil {
		t.Fatalf("expected ETH/USDT to remain")
	}
}

// TestRegistryGetRefreshesLastSeen ensures read access counts as activity.
func TestRegistryGetRefreshesLastSeen(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	reg.GetOrCreate("active")

	reg.mu.Lock()
	reg.lastSeen["active"] = time.Now().Add(-2 * time.Hour)
	reg.mu.Unlock()

	if reg.Get("active") == nil {
		t.Fatalf("expected active manager to be returned")
	}
	reg.CleanupIdle(time.Hour)
	if reg.Get("active") == nil {
		t.Fatalf("expected active to remain after cleanup")
	}
}

func TestRegistryGetMissingDoesNotCreate(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	if reg.Get("missing") != nil {
		t.Fatalf("expected nil manager for missing context")
	}
	if got := reg.Count(); got != 0 {
		t.Fatalf("expected no contexts to be created, found %d", got)
	}
	if _, ok := reg.Snapshot("missing"); ok {
		t.Fatalf("expected Snapshot to report missing context")
	}
}

// TestRegistryContextsAreIsolated checks that state recorded for one context
// does not leak into another.
func TestRegistryContextsAreIsolated(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	reg.Do("a", func(m *Manager) {
		m.RecordTradeResult(true)
		m.UpdateBalance(1000)
	})
	reg.Do("b", func(m *Manager) {})

	a, _ := reg.Snapshot("a")
	b, _ := reg.Snapshot("b")
	if a.ConsecutiveLosses != 1 || a.PeakBalance != 1000 {
		t.Fatalf("unexpected state for a: %+v", a)
	}
	if b.ConsecutiveLosses != 0 || b.PeakBalance != 0 {
		t.Fatalf("unexpected state for b: %+v", b)
	}
	if ids := reg.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("IDs=%v, expected [a b]", ids)
	}
}

func TestRegistryDoSerializes(t *testing.T) {
	reg := NewRegistry(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Do("ctx", func(m *Manager) { m.RecordTradeResult(true) })
		}()
	}
	wg.Wait()

	s, _ := reg.Snapshot("ctx")
	if s.ConsecutiveLosses != 50 {
		t.Fatalf("ConsecutiveLosses=%d, expected 50", s.ConsecutiveLosses)
	}
	if got := len(reg.Snapshots()); got != 1 {
		t.Fatalf("Snapshots len=%d, expected 1", got)
	}
}

func TestRegistryCleanupKeepsGuardedContexts(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(DefaultConfig())
	reg.SetClock(func() time.Time { return now })

	reg.Do("cooldown", func(m *Manager) { m.TriggerCooldown(now) })
	reg.Do("streak", func(m *Manager) {
		for i := 0; i < 3; i++ {
			m.RecordTradeResult(true)
		}
	})
	reg.Do("daily", func(m *Manager) { m.RecordDailyLoss(250, now) })
	reg.Do("peak", func(m *Manager) { m.UpdateBalance(50000) })

	now = now.Add(2 * time.Hour)
	if removed := reg.CleanupIdle(time.Hour); removed != 1 {
		t.Fatalf("expected only the inert context evicted, got %d", removed)
	}
	for _, id := range []string{"cooldown", "streak", "daily"} {
		if reg.Get(id) == nil {
			t.Fatalf("context %q with live guard state was evicted", id)
		}
	}

	var cooldownOK, streakOK bool
	reg.Do("cooldown", func(m *Manager) { cooldownOK = m.CheckCooldown(now) })
	reg.Do("streak", func(m *Manager) { streakOK = m.CheckConsecutiveLosses() })
	if cooldownOK || streakOK {
		t.Fatalf("guards must still block: cooldownOK=%v streakOK=%v", cooldownOK, streakOK)
	}

	// The evicted context comes back with its peak, so a 40% drawdown trips.
	var breakerOK bool
	reg.Do("peak", func(m *Manager) { breakerOK = m.CheckCircuitBreakerTracked(30000) })
	if breakerOK {
		t.Fatalf("peak balance was lost on eviction")
	}
}

func TestRegistryCleanupAfterCooldownExpires(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(DefaultConfig())
	reg.SetClock(func() time.Time { return now })

	reg.Do("BTC/USDT", func(m *Manager) { m.TriggerCooldown(now) })
	now = now.Add(25 * time.Hour)
	if removed := reg.CleanupIdle(time.Hour); removed != 1 {
		t.Fatalf("expected expired cooldown context evicted, got %d", removed)
	}
}

func TestRegistryDoAfterEvictionUsesLiveEntry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(DefaultConfig())
	reg.SetClock(func() time.Time { return now })

	stale := reg.getOrCreate("BTC/USDT")
	now = now.Add(2 * time.Hour)
	if removed := reg.CleanupIdle(time.Hour); removed != 1 {
		t.Fatalf("expected eviction, got %d", removed)
	}
	if !stale.evicted {
		t.Fatalf("evicted entry must be marked")
	}

	reg.Do("BTC/USDT", func(m *Manager) { m.RecordTradeResult(true) })
	st, ok := reg.Snapshot("BTC/USDT")
	if !ok || st.ConsecutiveLosses != 1 {
		t.Fatalf("update went to an orphaned manager: ok=%v state=%+v", ok, st)
	}
	if stale.mgr.consecutiveLosses != 0 {
		t.Fatalf("evicted manager was mutated")
	}
}

func TestRegistryRemoveDropsPeak(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	reg.Do("acct", func(m *Manager) { m.UpdateBalance(1000) })
	reg.Remove("acct")
	if got := reg.GetOrCreate("acct").PeakBalance(); got != 0 {
		t.Fatalf("Remove should drop the peak, got %v", got)
	}
}
