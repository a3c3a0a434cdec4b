// Package query serves the read side: point-in-time snapshots, range-filter
// screens, and full slot timelines. Reads never take slot locks; they see
// whatever chains the store holds at the moment of the read.
package query

import (
	"context"
	"errors"
	"time"

	"tempora/internal/record/kinds"
	"tempora/internal/record/metrics"
	"tempora/internal/record/models"
	"tempora/internal/record/store"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
	"tempora/pkg/platform/sentinel"
)

// Engine answers read queries over version chains.
type Engine struct {
	versions store.VersionStore
	catalog  *kinds.Catalog
	metrics  *metrics.Metrics
}

func NewEngine(versions store.VersionStore, catalog *kinds.Catalog, m *metrics.Metrics) *Engine {
	return &Engine{versions: versions, catalog: catalog, metrics: m}
}

// SlotRecord pairs a slot with the versions a query selected from it.
type SlotRecord struct {
	Slot     models.Slot
	Versions []models.Version
}

// AsOf returns, per slot of the kind, the version in force on the given
// date. Slots with no coverage on that date are omitted.
func (e *Engine) AsOf(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, date time.Time) ([]SlotRecord, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveQuery("as_of", time.Since(start)) }()

	if _, err := e.catalog.ByKind(kind); err != nil {
		return nil, err
	}
	slots, err := e.versions.ListSlots(ctx, tenantID, ownerID, kind)
	if err != nil {
		return nil, err
	}
	day := models.Date(date)
	out := make([]SlotRecord, 0, len(slots))
	for _, slot := range slots {
		chain, err := e.versions.ReadChain(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range chain {
			if v.Active() && v.Contains(day) {
				out = append(out, SlotRecord{Slot: slot, Versions: []models.Version{v}})
				break
			}
		}
	}
	return out, nil
}

// Overlapping returns, per slot of the kind, the active versions whose
// intervals overlap the window. Nil bounds mean an unbounded side; passing
// both nil returns every active version. Versions come back ordered by
// effective_from ascending.
func (e *Engine) Overlapping(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, from, to *time.Time) ([]SlotRecord, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveQuery("overlapping", time.Since(start)) }()

	if _, err := e.catalog.ByKind(kind); err != nil {
		return nil, err
	}
	if from != nil {
		day := models.Date(*from)
		from = &day
	}
	if to != nil {
		day := models.Date(*to)
		to = &day
	}
	slots, err := e.versions.ListSlots(ctx, tenantID, ownerID, kind)
	if err != nil {
		return nil, err
	}
	out := make([]SlotRecord, 0, len(slots))
	for _, slot := range slots {
		chain, err := e.versions.ReadChain(ctx, slot.ID)
		if err != nil {
			return nil, err
		}
		var matched []models.Version
		for _, v := range chain {
			if v.Active() && v.Overlaps(from, to) {
				matched = append(matched, v)
			}
		}
		if len(matched) > 0 {
			out = append(out, SlotRecord{Slot: slot, Versions: matched})
		}
	}
	return out, nil
}

// Timeline returns a slot's full chain, superseded versions included, for
// audit screens.
func (e *Engine) Timeline(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (SlotRecord, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveQuery("timeline", time.Since(start)) }()

	if _, err := e.catalog.ByKind(kind); err != nil {
		return SlotRecord{}, err
	}
	if slotKey == "" {
		slotKey = "primary"
	}
	slot, err := e.versions.FindSlot(ctx, tenantID, ownerID, kind, slotKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return SlotRecord{}, dErrors.Wrap(dErrors.CodeNotFound, "no such slot", err)
		}
		return SlotRecord{}, err
	}
	chain, err := e.versions.ReadChain(ctx, slot.ID)
	if err != nil {
		return SlotRecord{}, err
	}
	return SlotRecord{Slot: slot, Versions: chain}, nil
}
