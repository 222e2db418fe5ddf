// Package quotecache provides short-lived caches for market quotes.
package quotecache

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

type memoryEntry struct {
	quote   models.Quote
	expires time.Time
}

// Memory is an in-process QuoteCache. Expired entries are dropped on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ interfaces.QuoteCache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, symbol string) (*models.Quote, error) {
	m.mu.RLock()
	entry, ok := m.entries[symbol]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !m.now().Before(entry.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[symbol]; ok && cur.expires.Equal(entry.expires) {
			delete(m.entries, symbol)
		}
		m.mu.Unlock()
		return nil, nil
	}
	q := entry.quote
	return &q, nil
}

// Set stores a copy of q. A non-positive ttl is a no-op.
func (m *Memory) Set(_ context.Context, symbol string, q *models.Quote, ttl time.Duration) error {
	if q == nil || ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[symbol] = memoryEntry{quote: *q, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, including expired ones not yet read.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Close() error {
	return nil
}
