// Package validator computes, for a proposed effective date against a slot's
// current chain, the minimal set of store operations that keep the chain's
// invariants:
//
//	I1: intervals of non-superseded versions are pairwise disjoint
//	I2: at most one non-superseded version is open, and it has the maximum
//	    effective_from
//	I3: effective_from < effective_to whenever effective_to is set
//
// The validator is pure: it reads a chain snapshot and returns a Plan; the
// store applies the plan atomically under the slot lock.
package validator

import (
	"fmt"
	"time"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
)

// PlanKind labels which rule produced the plan, for metrics and audit.
type PlanKind string

const (
	PlanAppendCurrent PlanKind = "append_current" // close open version, append new open one
	PlanFirstVersion  PlanKind = "first_version"  // empty chain
	PlanGapInsert     PlanKind = "gap_insert"     // between existing closed intervals
	PlanSplit         PlanKind = "split"          // mid-window correction
	PlanReplace       PlanKind = "replace"        // same effective_from, payload swap
	PlanPrehistory    PlanKind = "prehistory"     // before the earliest version
)

// Plan is the set of store operations for one accepted command.
//
// NewVersion is always appended and is the version reported to the caller.
// Carry, when set, preserves the original payload over the left part of a
// split interval. ClosePriorID closes the current open version at the new
// effective date. RetireID marks the replaced version as superseded by
// NewVersion, keeping its interval for audit.
type Plan struct {
	Kind         PlanKind
	NewVersion   models.Version
	Carry        *models.Version
	ClosePriorID *id.VersionID
	RetireID     *id.VersionID
}

// Input carries what the plan computation needs besides the chain.
type Input struct {
	SlotID      id.SlotID
	EffectiveAt time.Time
	Payload     models.Payload
	RequestID   string

	// Correction forces split/replace semantics: an ordinary command landing
	// inside history is rejected unless the caller explicitly asked for a
	// retroactive edit.
	Correction bool

	// AllowPrehistory is the kind's policy for effective dates earlier than
	// the earliest version.
	AllowPrehistory bool
}

// Compute derives the plan for inserting a version effective at in.EffectiveAt
// into the given chain. The chain must be ordered by effective_from ascending;
// superseded versions are ignored.
func Compute(chain []models.Version, in Input) (Plan, error) {
	effective := models.Date(in.EffectiveAt)
	if effective.IsZero() {
		return Plan{}, dErrors.New(dErrors.CodeInvalidEffectiveDate, "effective date is required")
	}

	active := make([]models.Version, 0, len(chain))
	for _, v := range chain {
		if v.Active() {
			active = append(active, v)
		}
	}

	newVersion := models.Version{
		ID:            id.NewVersionID(),
		SlotID:        in.SlotID,
		EffectiveFrom: effective,
		Payload:       in.Payload,
		RequestID:     in.RequestID,
	}

	if len(active) == 0 {
		return Plan{Kind: PlanFirstVersion, NewVersion: newVersion}, nil
	}

	// Rule 4: exact effective_from match is a replace-in-place. The version
	// processed later wins; serialization by the slot lock makes the order
	// deterministic once both commands commit.
	for _, v := range active {
		if v.EffectiveFrom.Equal(effective) {
			newVersion.EffectiveTo = v.EffectiveTo
			retireID := v.ID
			return Plan{Kind: PlanReplace, NewVersion: newVersion, RetireID: &retireID}, nil
		}
	}

	earliest := active[0].EffectiveFrom
	if effective.Before(earliest) {
		if !in.AllowPrehistory {
			return Plan{}, dErrors.New(dErrors.CodeInvalidEffectiveDate,
				fmt.Sprintf("effective date %s precedes the earliest version (%s) and the kind does not allow prehistory",
					effective.Format(time.DateOnly), earliest.Format(time.DateOnly)))
		}
		// Close the prehistory version where recorded history begins.
		to := earliest
		newVersion.EffectiveTo = &to
		return Plan{Kind: PlanPrehistory, NewVersion: newVersion}, nil
	}

	// Locate the active version covering the new date, if any.
	for _, v := range active {
		if !v.EffectiveFrom.Before(effective) || !v.Contains(effective) {
			continue
		}
		if v.Open() {
			if in.Correction {
				// Retroactive edit of the current state: split at the
				// effective date so the pre-edit belief stays auditable.
				to := effective
				carry := models.Version{
					ID:            id.NewVersionID(),
					SlotID:        in.SlotID,
					EffectiveFrom: v.EffectiveFrom,
					EffectiveTo:   &to,
					Payload:       v.Payload.Clone(),
					RequestID:     in.RequestID,
				}
				retireID := v.ID
				return Plan{Kind: PlanSplit, NewVersion: newVersion, Carry: &carry, RetireID: &retireID}, nil
			}
			// Rule 2: the common append-a-new-current-state path.
			closeID := v.ID
			return Plan{Kind: PlanAppendCurrent, NewVersion: newVersion, ClosePriorID: &closeID}, nil
		}

		// Rule 3: mid-window correction of a closed interval [S, T) splits it
		// into [S, E) with the original payload and [E, T) with the new one.
		if !in.Correction {
			return Plan{}, dErrors.New(dErrors.CodeInvalidEffectiveDate,
				fmt.Sprintf("effective date %s falls inside recorded history; submit a correction",
					effective.Format(time.DateOnly)))
		}
		to := effective
		carry := models.Version{
			ID:            id.NewVersionID(),
			SlotID:        in.SlotID,
			EffectiveFrom: v.EffectiveFrom,
			EffectiveTo:   &to,
			Payload:       v.Payload.Clone(),
			RequestID:     in.RequestID,
		}
		newVersion.EffectiveTo = v.EffectiveTo
		retireID := v.ID
		return Plan{Kind: PlanSplit, NewVersion: newVersion, Carry: &carry, RetireID: &retireID}, nil
	}

	// No covering version: the date lands in a gap or after all closed
	// intervals. Clamp to the next version's start so I1 holds.
	var nextStart *time.Time
	for _, v := range active {
		if v.EffectiveFrom.After(effective) {
			from := v.EffectiveFrom
			nextStart = &from
			break
		}
	}
	if nextStart != nil {
		newVersion.EffectiveTo = nextStart
		return Plan{Kind: PlanGapInsert, NewVersion: newVersion}, nil
	}
	return Plan{Kind: PlanAppendCurrent, NewVersion: newVersion}, nil
}
