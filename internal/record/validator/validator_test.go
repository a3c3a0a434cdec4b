package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func version(from time.Time, to *time.Time) models.Version {
	return models.Version{
		ID:            id.NewVersionID(),
		EffectiveFrom: from,
		EffectiveTo:   to,
		Payload:       models.Payload{"bank_code": "10"},
	}
}

func closedVersion(from, to time.Time) models.Version {
	return version(from, &to)
}

func input(effective time.Time) Input {
	return Input{
		SlotID:      id.NewSlotID(),
		EffectiveAt: effective,
		Payload:     models.Payload{"bank_code": "20"},
		RequestID:   "req-1",
	}
}

func TestComputeEmptyChain(t *testing.T) {
	plan, err := Compute(nil, input(day(2024, 3, 1)))
	require.NoError(t, err)

	assert.Equal(t, PlanFirstVersion, plan.Kind)
	assert.True(t, plan.NewVersion.Open())
	assert.Equal(t, day(2024, 3, 1), plan.NewVersion.EffectiveFrom)
	assert.Nil(t, plan.ClosePriorID)
	assert.Nil(t, plan.RetireID)
	assert.Nil(t, plan.Carry)
}

func TestComputeZeroEffectiveDate(t *testing.T) {
	_, err := Compute(nil, input(time.Time{}))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidEffectiveDate))
}

func TestComputeAppendCurrent(t *testing.T) {
	open := version(day(2024, 1, 1), nil)
	chain := []models.Version{open}

	plan, err := Compute(chain, input(day(2024, 3, 1)))
	require.NoError(t, err)

	assert.Equal(t, PlanAppendCurrent, plan.Kind)
	require.NotNil(t, plan.ClosePriorID)
	assert.Equal(t, open.ID, *plan.ClosePriorID)
	assert.True(t, plan.NewVersion.Open())
	assert.Nil(t, plan.RetireID)
}

func TestComputeReplaceInPlace(t *testing.T) {
	t.Run("open version keeps new version open", func(t *testing.T) {
		open := version(day(2024, 1, 1), nil)

		plan, err := Compute([]models.Version{open}, input(day(2024, 1, 1)))
		require.NoError(t, err)

		assert.Equal(t, PlanReplace, plan.Kind)
		require.NotNil(t, plan.RetireID)
		assert.Equal(t, open.ID, *plan.RetireID)
		assert.True(t, plan.NewVersion.Open())
		assert.Nil(t, plan.ClosePriorID)
	})

	t.Run("closed version inherits the interval end", func(t *testing.T) {
		closed := closedVersion(day(2024, 1, 1), day(2024, 6, 1))
		open := version(day(2024, 6, 1), nil)

		plan, err := Compute([]models.Version{closed, open}, input(day(2024, 1, 1)))
		require.NoError(t, err)

		assert.Equal(t, PlanReplace, plan.Kind)
		require.NotNil(t, plan.NewVersion.EffectiveTo)
		assert.Equal(t, day(2024, 6, 1), *plan.NewVersion.EffectiveTo)
		assert.Equal(t, closed.ID, *plan.RetireID)
	})
}

func TestComputeMidWindowClosedInterval(t *testing.T) {
	closed := closedVersion(day(2024, 1, 1), day(2024, 6, 1))
	open := version(day(2024, 6, 1), nil)
	chain := []models.Version{closed, open}

	t.Run("rejected without correction flag", func(t *testing.T) {
		_, err := Compute(chain, input(day(2024, 3, 15)))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidEffectiveDate))
	})

	t.Run("correction splits the interval", func(t *testing.T) {
		in := input(day(2024, 3, 15))
		in.Correction = true

		plan, err := Compute(chain, in)
		require.NoError(t, err)

		assert.Equal(t, PlanSplit, plan.Kind)
		require.NotNil(t, plan.Carry)
		assert.Equal(t, day(2024, 1, 1), plan.Carry.EffectiveFrom)
		assert.Equal(t, day(2024, 3, 15), *plan.Carry.EffectiveTo)
		assert.Equal(t, closed.Payload, plan.Carry.Payload)

		assert.Equal(t, day(2024, 3, 15), plan.NewVersion.EffectiveFrom)
		assert.Equal(t, day(2024, 6, 1), *plan.NewVersion.EffectiveTo)

		require.NotNil(t, plan.RetireID)
		assert.Equal(t, closed.ID, *plan.RetireID)
	})
}

func TestComputeCorrectionInsideOpenVersion(t *testing.T) {
	open := version(day(2024, 1, 1), nil)
	in := input(day(2024, 4, 1))
	in.Correction = true

	plan, err := Compute([]models.Version{open}, in)
	require.NoError(t, err)

	assert.Equal(t, PlanSplit, plan.Kind)
	require.NotNil(t, plan.Carry)
	assert.Equal(t, day(2024, 4, 1), *plan.Carry.EffectiveTo)
	assert.True(t, plan.NewVersion.Open())
	assert.Equal(t, open.ID, *plan.RetireID)
}

func TestComputePrehistory(t *testing.T) {
	open := version(day(2024, 6, 1), nil)
	chain := []models.Version{open}

	t.Run("rejected by default", func(t *testing.T) {
		_, err := Compute(chain, input(day(2024, 1, 1)))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidEffectiveDate))
	})

	t.Run("allowed kinds close at the earliest version", func(t *testing.T) {
		in := input(day(2024, 1, 1))
		in.AllowPrehistory = true

		plan, err := Compute(chain, in)
		require.NoError(t, err)

		assert.Equal(t, PlanPrehistory, plan.Kind)
		require.NotNil(t, plan.NewVersion.EffectiveTo)
		assert.Equal(t, day(2024, 6, 1), *plan.NewVersion.EffectiveTo)
		assert.Nil(t, plan.ClosePriorID)
		assert.Nil(t, plan.RetireID)
	})
}

func TestComputeGapInsert(t *testing.T) {
	first := closedVersion(day(2024, 1, 1), day(2024, 3, 1))
	second := closedVersion(day(2024, 6, 1), day(2024, 9, 1))
	chain := []models.Version{first, second}

	plan, err := Compute(chain, input(day(2024, 4, 1)))
	require.NoError(t, err)

	assert.Equal(t, PlanGapInsert, plan.Kind)
	require.NotNil(t, plan.NewVersion.EffectiveTo)
	assert.Equal(t, day(2024, 6, 1), *plan.NewVersion.EffectiveTo)
	assert.Nil(t, plan.ClosePriorID)
	assert.Nil(t, plan.RetireID)
}

func TestComputeAfterAllClosedIntervals(t *testing.T) {
	closed := closedVersion(day(2024, 1, 1), day(2024, 3, 1))

	plan, err := Compute([]models.Version{closed}, input(day(2024, 6, 1)))
	require.NoError(t, err)

	assert.Equal(t, PlanAppendCurrent, plan.Kind)
	assert.True(t, plan.NewVersion.Open())
	assert.Nil(t, plan.ClosePriorID)
}

func TestComputeIgnoresSupersededVersions(t *testing.T) {
	retiredBy := id.NewVersionID()
	superseded := version(day(2024, 1, 1), nil)
	superseded.SupersededBy = &retiredBy

	plan, err := Compute([]models.Version{superseded}, input(day(2024, 3, 1)))
	require.NoError(t, err)

	// With the only version superseded the chain is effectively empty.
	assert.Equal(t, PlanFirstVersion, plan.Kind)
}

func TestComputeNormalizesEffectiveDate(t *testing.T) {
	open := version(day(2024, 1, 1), nil)

	// A timestamp mid-day lands on its calendar date.
	in := input(time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC))
	plan, err := Compute([]models.Version{open}, in)
	require.NoError(t, err)

	assert.Equal(t, day(2024, 3, 1), plan.NewVersion.EffectiveFrom)
}
