package audit

import (
	"context"
	"sync"

	id "tempora/pkg/domain"
)

// Store is the durable journal. Append-only; entries are never mutated.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOwner(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, limit int) ([]Event, error)
}

// MemoryStore keeps journal entries in memory for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByOwner returns the owner's entries newest first.
func (s *MemoryStore) ListByOwner(_ context.Context, tenantID id.TenantID, ownerID id.EmployeeID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.TenantID == tenantID && e.OwnerID == ownerID {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// All returns every stored event, for test assertions.
func (s *MemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
