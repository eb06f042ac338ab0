package journal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store and SessionRegistry.
type MemoryStore struct {
	mu       sync.Mutex
	trades   map[string][]TradeRecord
	sessions map[string]time.Time
	active   string
	closed   bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		trades:   make(map[string][]TradeRecord),
		sessions: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Append(ctx context.Context, t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.trades[t.SessionID] {
		if rec.TradeID == t.TradeID {
			return fmt.Errorf("append trade %d for %s: %w", t.TradeID, t.SessionID, ErrDuplicateTrade)
		}
	}
	m.trades[t.SessionID] = append(m.trades[t.SessionID], t)
	return nil
}

func (m *MemoryStore) QueryAll(ctx context.Context, sessionID string) ([]TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TradeRecord, len(m.trades[sessionID]))
	copy(out, m.trades[sessionID])
	sortByTradeID(out)
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.trades, sessionID)
	return nil
}

func (m *MemoryStore) ActiveSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return "", ErrNoSession
	}
	return m.active, nil
}

func (m *MemoryStore) StartSession(ctx context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = at
	}
	m.active = sessionID
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
