// Package models defines the effective-dated record model: slots, versions,
// commands, and dispatch records.
//
// A slot is one independently versioned fact under an owner ("this employee's
// primary bank account"). Versions are time-sliced payloads over half-open
// intervals [EffectiveFrom, EffectiveTo); a nil EffectiveTo means the version
// is currently in force. Superseded versions keep their interval for audit but
// no longer participate in coverage.
package models

import (
	"time"

	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
)

// Slot identifies one versioned chain: (tenant, owner, kind, slot key).
// Slots have no lifecycle of their own; they exist while versions exist.
type Slot struct {
	ID         id.SlotID
	TenantID   id.TenantID
	OwnerID    id.EmployeeID
	Kind       id.EntityKind
	SlotKey    string
	Generation int64
	CreatedAt  time.Time
}

// Payload carries the entity-kind-specific fields of a version. Shapes are
// enforced by the kind catalog, not by this type.
type Payload map[string]any

// Clone returns a shallow copy so split plans can carry the original payload
// without aliasing.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Version is one time-bounded payload for a slot.
type Version struct {
	ID            id.VersionID
	SlotID        id.SlotID
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Payload       Payload
	SupersededBy  *id.VersionID
	RequestID     string
	CreatedAt     time.Time
}

// Open reports whether the version is currently in force (no effective_to).
func (v Version) Open() bool { return v.EffectiveTo == nil }

// Active reports whether the version still participates in coverage.
func (v Version) Active() bool { return v.SupersededBy == nil }

// Contains reports whether date falls inside [EffectiveFrom, EffectiveTo).
func (v Version) Contains(date time.Time) bool {
	if date.Before(v.EffectiveFrom) {
		return false
	}
	return v.EffectiveTo == nil || date.Before(*v.EffectiveTo)
}

// Overlaps applies the window overlap test used by range-filter screens:
// versionStart <= windowEnd AND versionEnd >= windowStart, treating a nil
// window bound as infinity and an open version end as +infinity.
func (v Version) Overlaps(windowStart, windowEnd *time.Time) bool {
	if windowEnd != nil && v.EffectiveFrom.After(*windowEnd) {
		return false
	}
	if windowStart != nil && v.EffectiveTo != nil && v.EffectiveTo.Before(*windowStart) {
		return false
	}
	return true
}

// Date normalizes a timestamp to its UTC calendar date. All effective dates
// in the engine are day-granular.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Command is an external request to mutate a slot. Immutable once accepted.
type Command struct {
	ActionKey   string
	TenantID    id.TenantID
	OwnerID     id.EmployeeID
	SlotKey     string
	EffectiveAt time.Time
	RequestID   string
	Payload     Payload

	// Correction marks the command as an explicit retroactive edit, which
	// forces split/replace semantics instead of append-current.
	Correction bool
}

// DispatchStatus is the persisted outcome class of a processed command.
type DispatchStatus string

const (
	StatusApplied DispatchStatus = "applied"
	StatusError   DispatchStatus = "error"
)

// DispatchRecord durably maps a request id to its outcome. Written once,
// never mutated; retries read it back verbatim.
type DispatchRecord struct {
	TenantID  id.TenantID
	RequestID string
	OwnerID   id.EmployeeID
	Kind      id.EntityKind
	SlotKey   string
	ActionKey string
	Status    DispatchStatus
	VersionID *id.VersionID
	ErrorCode dErrors.Code
	CreatedAt time.Time
}

// Result reports the outcome of the record.
func (r DispatchRecord) Result(replayed bool) DispatchResult {
	return DispatchResult{
		Status:    r.Status,
		VersionID: r.VersionID,
		ErrorCode: r.ErrorCode,
		Replayed:  replayed,
	}
}

// DispatchResult is what callers receive. Replayed distinguishes a fresh
// application from an idempotent short-circuit; the stored outcome fields are
// identical either way.
type DispatchResult struct {
	Status    DispatchStatus
	VersionID *id.VersionID
	ErrorCode dErrors.Code
	Replayed  bool
}
