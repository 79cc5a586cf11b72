package namelog

import (
	"context"
	"sync"
)

// Store is the append-only log of every display name ever registered.
// The engine only writes through it; reads exist for the debug listing.
type Store interface {
	// Append records one registered display name.
	Append(ctx context.Context, name string) error
	// Distinct returns up to limit distinct names in insertion-biased order.
	Distinct(ctx context.Context, limit int) ([]string, error)
	Close() error
}

// Memory is an in-process Store, used when no persistence is configured
// and in tests.
type Memory struct {
	mu    sync.Mutex
	names []string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	return nil
}

func (m *Memory) Distinct(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return distinct(m.names, limit), nil
}

func (m *Memory) Close() error { return nil }

// distinct collapses duplicates keeping first-seen order.
func distinct(names []string, limit int) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
