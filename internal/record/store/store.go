// Package store persists slots, versions, and dispatch records. Memory and
// PostgreSQL implementations sit behind small interfaces so the engine and
// its tests are storage-agnostic.
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks VersionStore,DispatchStore

import (
	"context"
	"time"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
)

// Mutation is one atomic write against a slot, produced from a validator
// plan. Applying it appends the listed versions, optionally closes the prior
// open version, and optionally retires a superseded one, all in a single
// storage transaction. Every successful apply bumps the slot generation.
type Mutation struct {
	Append []models.Version

	// ClosePriorID, when set, closes that version at CloseAt. The apply fails
	// with sentinel.ErrStaleTarget if the version is already closed (a
	// concurrent writer won the race).
	ClosePriorID *id.VersionID
	CloseAt      time.Time

	// RetireID, when set, marks that version as superseded by RetiredBy,
	// keeping its interval for audit.
	RetireID  *id.VersionID
	RetiredBy id.VersionID
}

// VersionStore is the durable home of slots and their version chains.
type VersionStore interface {
	// EnsureSlot resolves the slot for the identity tuple, creating it on
	// first sight.
	EnsureSlot(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (models.Slot, error)

	// FindSlot resolves an existing slot or returns sentinel.ErrNotFound.
	FindSlot(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (models.Slot, error)

	// ListSlots returns the owner's slots of one kind, oldest first.
	ListSlots(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind) ([]models.Slot, error)

	// ReadChain returns every version of the slot (including superseded
	// ones) ordered by effective_from ascending, then created_at.
	ReadChain(ctx context.Context, slotID id.SlotID) ([]models.Version, error)

	// ReadAsOf returns the non-superseded version whose interval contains
	// the date, or sentinel.ErrNotFound.
	ReadAsOf(ctx context.Context, slotID id.SlotID, date time.Time) (models.Version, error)

	// Apply executes one mutation atomically.
	Apply(ctx context.Context, slotID id.SlotID, mutation Mutation) error
}

// DispatchStore durably records command outcomes for idempotency.
type DispatchStore interface {
	// Find returns the stored outcome for a request id, or
	// sentinel.ErrNotFound on first sight.
	Find(ctx context.Context, tenantID id.TenantID, requestID string) (models.DispatchRecord, error)

	// Save persists an outcome. First writer wins: a concurrent duplicate
	// gets sentinel.ErrConflict and should re-read the stored record.
	Save(ctx context.Context, record models.DispatchRecord) error
}
