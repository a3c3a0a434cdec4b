// Package domain holds shared domain primitives: typed identifiers and the
// entity-kind vocabulary used across slots, versions, and dispatch records.
//
// IDs are distinct uuid wrappers so the compiler rejects cross-assignment
// (a SlotID can never be passed where a VersionID is expected). Parsing
// enforces the invariant "IDs are valid, non-nil UUIDs" at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "tempora/pkg/domain-errors"
)

type (
	// TenantID partitions all stored data. Every slot, version, and dispatch
	// record belongs to exactly one tenant.
	TenantID uuid.UUID

	// EmployeeID identifies the owner of a versioned fact.
	EmployeeID uuid.UUID

	// SlotID identifies one independently versioned chain under an owner.
	SlotID uuid.UUID

	// VersionID identifies one time-bounded payload within a slot.
	VersionID uuid.UUID
)

func parseUUID(value, what string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what+": "+value)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseTenantID validates and returns a TenantID.
func ParseTenantID(value string) (TenantID, error) {
	parsed, err := parseUUID(value, "tenant id")
	return TenantID(parsed), err
}

// ParseEmployeeID validates and returns an EmployeeID.
func ParseEmployeeID(value string) (EmployeeID, error) {
	parsed, err := parseUUID(value, "employee id")
	return EmployeeID(parsed), err
}

// ParseSlotID validates and returns a SlotID.
func ParseSlotID(value string) (SlotID, error) {
	parsed, err := parseUUID(value, "slot id")
	return SlotID(parsed), err
}

// ParseVersionID validates and returns a VersionID.
func ParseVersionID(value string) (VersionID, error) {
	parsed, err := parseUUID(value, "version id")
	return VersionID(parsed), err
}

// NewSlotID returns a freshly generated slot identifier.
func NewSlotID() SlotID { return SlotID(uuid.New()) }

// NewVersionID returns a freshly generated version identifier.
func NewVersionID() VersionID { return VersionID(uuid.New()) }

func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id EmployeeID) String() string { return uuid.UUID(id).String() }
func (id SlotID) String() string     { return uuid.UUID(id).String() }
func (id VersionID) String() string  { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EmployeeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SlotID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the typed IDs JSON-friendly (uuid strings, not byte
// arrays). Defined types do not inherit uuid.UUID's methods.

func (id TenantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id EmployeeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id SlotID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id VersionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = TenantID(parsed)
	return nil
}

func (id *EmployeeID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = EmployeeID(parsed)
	return nil
}

func (id *SlotID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = SlotID(parsed)
	return nil
}

func (id *VersionID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = VersionID(parsed)
	return nil
}
