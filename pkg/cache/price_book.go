// Package cache keeps the expected entry price recorded for each pair.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// PriceBook maps a pair to the last close seen when its entry signal was
// evaluated. Entries are sharded to keep per-pair writes from contending.
type PriceBook struct {
	shards [numShards]*bookShard
	now    func() time.Time
}

type bookShard struct {
	mu    sync.RWMutex
	items map[string]expectedPrice
}

type expectedPrice struct {
	price      float64
	recordedAt time.Time
}

// ExpectedPrice is an exported view of one entry.
type ExpectedPrice struct {
	Pair       string    `json:"pair"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewPriceBook creates an empty book.
func NewPriceBook() *PriceBook {
	b := &PriceBook{now: time.Now}
	for i := 0; i < numShards; i++ {
		b.shards[i] = &bookShard{items: make(map[string]expectedPrice)}
	}
	return b
}

// SetClock replaces the clock used to stamp and age entries. Call it before
// the book is shared.
func (b *PriceBook) SetClock(now func() time.Time) { b.now = now }

func (b *PriceBook) shard(pair string) *bookShard {
	h := fnv.New32a()
	h.Write([]byte(pair))
	return b.shards[h.Sum32()%numShards]
}

// Record stores the expected entry price for pair, replacing any previous one.
func (b *PriceBook) Record(pair string, price float64) {
	s := b.shard(pair)
	s.mu.Lock()
	s.items[pair] = expectedPrice{price: price, recordedAt: b.now()}
	s.mu.Unlock()
}

// Expected returns the recorded price for pair.
func (b *PriceBook) Expected(pair string) (float64, bool) {
	s := b.shard(pair)
	s.mu.RLock()
	e, ok := s.items[pair]
	s.mu.RUnlock()
	return e.price, ok
}

// Lookup returns the full entry for pair.
func (b *PriceBook) Lookup(pair string) (ExpectedPrice, bool) {
	s := b.shard(pair)
	s.mu.RLock()
	e, ok := s.items[pair]
	s.mu.RUnlock()
	if !ok {
		return ExpectedPrice{}, false
	}
	return ExpectedPrice{Pair: pair, Price: e.price, RecordedAt: e.recordedAt}, true
}

// Forget removes pair from the book.
func (b *PriceBook) Forget(pair string) {
	s := b.shard(pair)
	s.mu.Lock()
	delete(s.items, pair)
	s.mu.Unlock()
}

// Len returns the number of pairs with a recorded price.
func (b *PriceBook) Len() int {
	total := 0
	for _, s := range b.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Cleanup removes entries recorded more than maxAge ago.
func (b *PriceBook) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := b.now().Add(-maxAge)

	for _, s := range b.shards {
		s.mu.Lock()
		for pair, e := range s.items {
			if e.recordedAt.Before(cutoff) {
				delete(s.items, pair)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
