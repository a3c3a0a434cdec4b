package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
	"tempora/pkg/platform/sentinel"
)

// In-memory stores back unit tests and single-process deployments. They
// favor clarity over performance; chains are tens of rows.

type slotIdentity struct {
	tenantID id.TenantID
	ownerID  id.EmployeeID
	kind     id.EntityKind
	slotKey  string
}

// MemoryVersionStore keeps slots and version chains in maps.
type MemoryVersionStore struct {
	mu       sync.RWMutex
	slots    map[id.SlotID]*models.Slot
	bySlotID map[slotIdentity]id.SlotID
	chains   map[id.SlotID][]models.Version
	seq      int64
}

func NewMemoryVersionStore() *MemoryVersionStore {
	return &MemoryVersionStore{
		slots:    make(map[id.SlotID]*models.Slot),
		bySlotID: make(map[slotIdentity]id.SlotID),
		chains:   make(map[id.SlotID][]models.Version),
	}
}

func (s *MemoryVersionStore) EnsureSlot(_ context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotIdentity{tenantID, ownerID, kind, slotKey}
	if slotID, ok := s.bySlotID[key]; ok {
		return *s.slots[slotID], nil
	}
	s.seq++
	slot := &models.Slot{
		ID:        id.NewSlotID(),
		TenantID:  tenantID,
		OwnerID:   ownerID,
		Kind:      kind,
		SlotKey:   slotKey,
		CreatedAt: time.Now().Add(time.Duration(s.seq)), // strictly increasing for tie-breaks
	}
	s.slots[slot.ID] = slot
	s.bySlotID[key] = slot.ID
	return *slot, nil
}

func (s *MemoryVersionStore) FindSlot(_ context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if slotID, ok := s.bySlotID[slotIdentity{tenantID, ownerID, kind, slotKey}]; ok {
		return *s.slots[slotID], nil
	}
	return models.Slot{}, sentinel.ErrNotFound
}

func (s *MemoryVersionStore) ListSlots(_ context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Slot
	for _, slot := range s.slots {
		if slot.TenantID == tenantID && slot.OwnerID == ownerID && slot.Kind == kind {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryVersionStore) ReadChain(_ context.Context, slotID id.SlotID) ([]models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.slots[slotID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	chain := append([]models.Version(nil), s.chains[slotID]...)
	sort.SliceStable(chain, func(i, j int) bool {
		if !chain[i].EffectiveFrom.Equal(chain[j].EffectiveFrom) {
			return chain[i].EffectiveFrom.Before(chain[j].EffectiveFrom)
		}
		return chain[i].CreatedAt.Before(chain[j].CreatedAt)
	})
	return chain, nil
}

func (s *MemoryVersionStore) ReadAsOf(ctx context.Context, slotID id.SlotID, date time.Time) (models.Version, error) {
	chain, err := s.ReadChain(ctx, slotID)
	if err != nil {
		return models.Version{}, err
	}
	date = models.Date(date)
	for _, v := range chain {
		if v.Active() && v.Contains(date) {
			return v, nil
		}
	}
	return models.Version{}, sentinel.ErrNotFound
}

func (s *MemoryVersionStore) Apply(_ context.Context, slotID id.SlotID, mutation Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return sentinel.ErrNotFound
	}
	chain := s.chains[slotID]

	if mutation.ClosePriorID != nil {
		idx := indexOf(chain, *mutation.ClosePriorID)
		if idx < 0 {
			return sentinel.ErrNotFound
		}
		if chain[idx].EffectiveTo != nil {
			return sentinel.ErrStaleTarget
		}
		closeAt := mutation.CloseAt
		chain[idx].EffectiveTo = &closeAt
	}

	if mutation.RetireID != nil {
		idx := indexOf(chain, *mutation.RetireID)
		if idx < 0 {
			return sentinel.ErrNotFound
		}
		retiredBy := mutation.RetiredBy
		chain[idx].SupersededBy = &retiredBy
	}

	now := time.Now()
	for i, v := range mutation.Append {
		v.CreatedAt = now.Add(time.Duration(i)) // preserve append order on equal stamps
		chain = append(chain, v)
	}

	s.chains[slotID] = chain
	slot.Generation++
	return nil
}

func indexOf(chain []models.Version, versionID id.VersionID) int {
	for i := range chain {
		if chain[i].ID == versionID {
			return i
		}
	}
	return -1
}

// MemoryDispatchStore keeps dispatch records in a map.
type MemoryDispatchStore struct {
	mu      sync.RWMutex
	records map[string]models.DispatchRecord
}

func NewMemoryDispatchStore() *MemoryDispatchStore {
	return &MemoryDispatchStore{records: make(map[string]models.DispatchRecord)}
}

func dispatchKey(tenantID id.TenantID, requestID string) string {
	return tenantID.String() + "|" + requestID
}

func (s *MemoryDispatchStore) Find(_ context.Context, tenantID id.TenantID, requestID string) (models.DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[dispatchKey(tenantID, requestID)]; ok {
		return record, nil
	}
	return models.DispatchRecord{}, sentinel.ErrNotFound
}

func (s *MemoryDispatchStore) Save(_ context.Context, record models.DispatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dispatchKey(record.TenantID, record.RequestID)
	if _, ok := s.records[key]; ok {
		return sentinel.ErrConflict
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.records[key] = record
	return nil
}
