package cache

import (
	"sync"
	"testing"
	"time"
)

func TestPriceBookRecordAndForget(t *testing.T) {
	b := NewPriceBook()
	if _, ok := b.Expected("BTC/USDT"); ok {
		t.Fatalf("expected empty book")
	}

	b.Record("BTC/USDT", 40000)
	b.Record("BTC/USDT", 40100)
	b.Record("ETH/USDT", 2500)

	if p, ok := b.Expected("BTC/USDT"); !ok || p != 40100 {
		t.Fatalf("Expected=(%v, %v), want 40100", p, ok)
	}
	if got := b.Len(); got != 2 {
		t.Fatalf("Len=%d, want 2", got)
	}

	b.Forget("BTC/USDT")
	if _, ok := b.Lookup("BTC/USDT"); ok {
		t.Fatalf("expected BTC/USDT to be forgotten")
	}
	if e, ok := b.Lookup("ETH/USDT"); !ok || e.Price != 2500 || e.Pair != "ETH/USDT" {
		t.Fatalf("Lookup ETH=%+v, %v", e, ok)
	}
}

func TestPriceBookCleanup(t *testing.T) {
	b := NewPriceBook()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now.Add(-2 * time.Hour) }
	b.Record("OLD/USDT", 1)
	b.now = func() time.Time { return now }
	b.Record("NEW/USDT", 2)

	if removed := b.Cleanup(time.Hour); removed != 1 {
		t.Fatalf("removed=%d, want 1", removed)
	}
	if _, ok := b.Expected("OLD/USDT"); ok {
		t.Fatalf("expected stale entry to be removed")
	}
	if _, ok := b.Expected("NEW/USDT"); !ok {
		t.Fatalf("expected fresh entry to remain")
	}
}

func TestPriceBookConcurrentAccess(t *testing.T) {
	b := NewPriceBook()
	pairs := []string{"A", "B", "C", "D"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := pairs[i%len(pairs)]
			b.Record(p, float64(i))
			b.Expected(p)
		}(i)
	}
	wg.Wait()

	if got := b.Len(); got != len(pairs) {
		t.Fatalf("Len=%d, want %d", got, len(pairs))
	}
}
