package domain

import (
	dErrors "tempora/pkg/domain-errors"
)

// EntityKind names one family of effective-dated facts about an employee.
// The kind selects the payload schema and per-kind policies in the catalog.
type EntityKind string

const (
	KindBankDetails EntityKind = "bank_details"
	KindAddress     EntityKind = "address"
	KindDependent   EntityKind = "dependent"
	KindRoleHistory EntityKind = "role_history"
	KindAsset       EntityKind = "asset"
	KindJobGrade    EntityKind = "job_grade"
	KindJobTitle    EntityKind = "job_title"
	KindPosition    EntityKind = "position"
)

var knownKinds = map[EntityKind]bool{
	KindBankDetails: true,
	KindAddress:     true,
	KindDependent:   true,
	KindRoleHistory: true,
	KindAsset:       true,
	KindJobGrade:    true,
	KindJobTitle:    true,
	KindPosition:    true,
}

// ParseEntityKind validates and returns an EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	kind := EntityKind(value)
	if !knownKinds[kind] {
		return "", dErrors.New(dErrors.CodeUnknownEntityKind, "unknown entity kind: "+value)
	}
	return kind, nil
}

func (k EntityKind) String() string { return string(k) }
