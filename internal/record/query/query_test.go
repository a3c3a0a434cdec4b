package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempora/internal/record/kinds"
	"tempora/internal/record/models"
	"tempora/internal/record/store"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
	"tempora/pkg/platform/sentinel"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	engine   *Engine
	versions *store.MemoryVersionStore
	tenantID id.TenantID
	ownerID  id.EmployeeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	versions := store.NewMemoryVersionStore()
	tenantID, err := id.ParseTenantID(uuid.NewString())
	require.NoError(t, err)
	ownerID, err := id.ParseEmployeeID(uuid.NewString())
	require.NoError(t, err)
	return &fixture{
		engine:   NewEngine(versions, kinds.Default(), nil),
		versions: versions,
		tenantID: tenantID,
		ownerID:  ownerID,
	}
}

// seed appends versions to a slot, bypassing the dispatcher.
func (f *fixture) seed(t *testing.T, kind id.EntityKind, slotKey string, versions ...models.Version) models.Slot {
	t.Helper()
	slot, err := f.versions.EnsureSlot(context.Background(), f.tenantID, f.ownerID, kind, slotKey)
	require.NoError(t, err)
	for i := range versions {
		versions[i].SlotID = slot.ID
	}
	require.NoError(t, f.versions.Apply(context.Background(), slot.ID, store.Mutation{Append: versions}))
	return slot
}

func closed(from, to time.Time, payload models.Payload) models.Version {
	return models.Version{ID: id.NewVersionID(), EffectiveFrom: from, EffectiveTo: &to, Payload: payload}
}

func open(from time.Time, payload models.Payload) models.Version {
	return models.Version{ID: id.NewVersionID(), EffectiveFrom: from, Payload: payload}
}

func TestAsOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, id.KindBankDetails, "primary",
		closed(day(2024, 1, 1), day(2024, 6, 1), models.Payload{"bank_code": "10"}),
		open(day(2024, 6, 1), models.Payload{"bank_code": "20"}),
	)

	t.Run("inside closed interval", func(t *testing.T) {
		records, err := f.engine.AsOf(ctx, f.tenantID, f.ownerID, id.KindBankDetails, day(2024, 3, 1))
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Len(t, records[0].Versions, 1)
		assert.Equal(t, "10", records[0].Versions[0].Payload["bank_code"])
	})

	t.Run("boundary date belongs to the next interval", func(t *testing.T) {
		records, err := f.engine.AsOf(ctx, f.tenantID, f.ownerID, id.KindBankDetails, day(2024, 6, 1))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "20", records[0].Versions[0].Payload["bank_code"])
	})

	t.Run("before all coverage returns nothing", func(t *testing.T) {
		records, err := f.engine.AsOf(ctx, f.tenantID, f.ownerID, id.KindBankDetails, day(2023, 1, 1))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := f.engine.AsOf(ctx, f.tenantID, f.ownerID, id.EntityKind("shoe_size"), day(2024, 1, 1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnknownEntityKind))
	})
}

func TestAsOfSkipsSupersededVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	replacement := open(day(2024, 1, 1), models.Payload{"bank_code": "20"})
	retired := open(day(2024, 1, 1), models.Payload{"bank_code": "10"})
	retired.SupersededBy = &replacement.ID

	f.seed(t, id.KindBankDetails, "primary", retired, replacement)

	records, err := f.engine.AsOf(ctx, f.tenantID, f.ownerID, id.KindBankDetails, day(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "20", records[0].Versions[0].Payload["bank_code"])
}

func TestOverlapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, id.KindBankDetails, "primary",
		closed(day(2024, 1, 1), day(2024, 4, 1), models.Payload{"bank_code": "10"}),
		closed(day(2024, 4, 1), day(2024, 8, 1), models.Payload{"bank_code": "20"}),
		open(day(2024, 8, 1), models.Payload{"bank_code": "30"}),
	)

	window := func(from, to time.Time) (*time.Time, *time.Time) { return &from, &to }

	t.Run("window selects overlapping versions", func(t *testing.T) {
		from, to := window(day(2024, 3, 1), day(2024, 5, 1))
		records, err := f.engine.Overlapping(ctx, f.tenantID, f.ownerID, id.KindBankDetails, from, to)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Len(t, records[0].Versions, 2)
		assert.Equal(t, "10", records[0].Versions[0].Payload["bank_code"])
		assert.Equal(t, "20", records[0].Versions[1].Payload["bank_code"])
	})

	t.Run("open version reaches any future window", func(t *testing.T) {
		from, to := window(day(2030, 1, 1), day(2031, 1, 1))
		records, err := f.engine.Overlapping(ctx, f.tenantID, f.ownerID, id.KindBankDetails, from, to)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Len(t, records[0].Versions, 1)
		assert.Equal(t, "30", records[0].Versions[0].Payload["bank_code"])
	})

	t.Run("nil bounds return every active version", func(t *testing.T) {
		records, err := f.engine.Overlapping(ctx, f.tenantID, f.ownerID, id.KindBankDetails, nil, nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Len(t, records[0].Versions, 3)
	})

	t.Run("window before all coverage", func(t *testing.T) {
		from, to := window(day(2020, 1, 1), day(2020, 6, 1))
		records, err := f.engine.Overlapping(ctx, f.tenantID, f.ownerID, id.KindBankDetails, from, to)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestOverlappingMultipleSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, id.KindDependent, "child-1", open(day(2020, 1, 1), models.Payload{"first_name": "Noa"}))
	f.seed(t, id.KindDependent, "child-2", open(day(2022, 5, 1), models.Payload{"first_name": "Adam"}))

	records, err := f.engine.Overlapping(ctx, f.tenantID, f.ownerID, id.KindDependent, nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Slot order follows creation order.
	assert.Equal(t, "child-1", records[0].Slot.SlotKey)
	assert.Equal(t, "child-2", records[1].Slot.SlotKey)
}

func TestTimeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	replacement := open(day(2024, 1, 1), models.Payload{"bank_code": "20"})
	retired := open(day(2024, 1, 1), models.Payload{"bank_code": "10"})
	retired.SupersededBy = &replacement.ID
	f.seed(t, id.KindBankDetails, "primary", retired, replacement)

	record, err := f.engine.Timeline(ctx, f.tenantID, f.ownerID, id.KindBankDetails, "")
	require.NoError(t, err)
	// Superseded versions stay visible in the timeline.
	assert.Len(t, record.Versions, 2)

	_, err = f.engine.Timeline(ctx, f.tenantID, f.ownerID, id.KindAddress, "primary")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
