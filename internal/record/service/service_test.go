package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tempora/internal/audit"
	"tempora/internal/record/kinds"
	"tempora/internal/record/models"
	"tempora/internal/record/store"
	"tempora/internal/record/store/mocks"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
	"tempora/pkg/platform/sentinel"
)

type DispatcherSuite struct {
	suite.Suite
	versions   *store.MemoryVersionStore
	dispatches *store.MemoryDispatchStore
	journal    *audit.MemoryStore
	service    *Service

	tenantID id.TenantID
	ownerID  id.EmployeeID
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.versions = store.NewMemoryVersionStore()
	s.dispatches = store.NewMemoryDispatchStore()
	s.journal = audit.NewMemoryStore()

	logger := slog.Default()
	s.service = NewService(
		s.versions, s.dispatches, store.NewSlotLocker(), kinds.Default(),
		audit.NewPublisher(s.journal, logger), logger,
	)

	var err error
	s.tenantID, err = id.ParseTenantID(uuid.NewString())
	s.Require().NoError(err)
	s.ownerID, err = id.ParseEmployeeID(uuid.NewString())
	s.Require().NoError(err)
}

func (s *DispatcherSuite) bankCommand(requestID string, effective time.Time) models.Command {
	return models.Command{
		ActionKey:   "employee_bank.changed",
		TenantID:    s.tenantID,
		OwnerID:     s.ownerID,
		EffectiveAt: effective,
		RequestID:   requestID,
		Payload: models.Payload{
			"bank_code":      "10",
			"branch_code":    "987",
			"account_number": "123456",
		},
	}
}

func (s *DispatcherSuite) chain(kind id.EntityKind) []models.Version {
	slot, err := s.versions.FindSlot(context.Background(), s.tenantID, s.ownerID, kind, "primary")
	s.Require().NoError(err)
	chain, err := s.versions.ReadChain(context.Background(), slot.ID)
	s.Require().NoError(err)
	return chain
}

// assertInvariants checks that active intervals are pairwise disjoint and at
// most one is open, with the maximum effective_from.
func (s *DispatcherSuite) assertInvariants(chain []models.Version) {
	var active []models.Version
	for _, v := range chain {
		if v.Active() {
			active = append(active, v)
		}
	}
	openCount := 0
	for i, v := range active {
		if v.Open() {
			openCount++
			for _, other := range active {
				s.False(other.EffectiveFrom.After(v.EffectiveFrom),
					"open version must have the maximum effective_from")
			}
			continue
		}
		s.True(v.EffectiveFrom.Before(*v.EffectiveTo), "interval must be non-empty")
		if i+1 < len(active) {
			s.False(active[i+1].EffectiveFrom.Before(*v.EffectiveTo),
				"active intervals must not overlap")
		}
	}
	s.LessOrEqual(openCount, 1)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// Happy paths
// =============================================================================

func (s *DispatcherSuite) TestFirstVersionApplied() {
	result, err := s.service.Dispatch(context.Background(), s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)

	s.Equal(models.StatusApplied, result.Status)
	s.False(result.Replayed)
	s.Require().NotNil(result.VersionID)

	chain := s.chain(id.KindBankDetails)
	s.Require().Len(chain, 1)
	s.True(chain[0].Open())
	s.Equal(day(2024, 1, 1), chain[0].EffectiveFrom)
	s.assertInvariants(chain)

	events, err := s.journal.ListByOwner(context.Background(), s.tenantID, s.ownerID, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventActionApplied, events[0].Type)
	s.Equal("req-1", events[0].RequestID)
}

func (s *DispatcherSuite) TestAppendCurrentClosesPrior() {
	ctx := context.Background()
	_, err := s.service.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)

	result, err := s.service.Dispatch(ctx, s.bankCommand("req-2", day(2024, 6, 1)))
	s.Require().NoError(err)
	s.Equal(models.StatusApplied, result.Status)

	chain := s.chain(id.KindBankDetails)
	s.Require().Len(chain, 2)
	s.Require().NotNil(chain[0].EffectiveTo)
	s.Equal(day(2024, 6, 1), *chain[0].EffectiveTo)
	s.True(chain[1].Open())
	s.assertInvariants(chain)
}

func (s *DispatcherSuite) TestReplaceInPlace() {
	ctx := context.Background()
	first, err := s.service.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)

	cmd := s.bankCommand("req-2", day(2024, 1, 1))
	cmd.Payload["bank_code"] = "20"
	second, err := s.service.Dispatch(ctx, cmd)
	s.Require().NoError(err)

	chain := s.chain(id.KindBankDetails)
	s.Require().Len(chain, 2)
	s.assertInvariants(chain)

	var retired, current *models.Version
	for i := range chain {
		if chain[i].ID == *first.VersionID {
			retired = &chain[i]
		}
		if chain[i].ID == *second.VersionID {
			current = &chain[i]
		}
	}
	s.Require().NotNil(retired)
	s.Require().NotNil(current)
	s.Require().NotNil(retired.SupersededBy)
	s.Equal(*second.VersionID, *retired.SupersededBy)
	s.True(current.Open())
	s.Equal("20", current.Payload["bank_code"])
}

func (s *DispatcherSuite) TestCorrectionSplitsClosedInterval() {
	ctx := context.Background()
	first, err := s.service.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)
	_, err = s.service.Dispatch(ctx, s.bankCommand("req-2", day(2024, 6, 1)))
	s.Require().NoError(err)

	// A non-correction landing inside [Jan 1, Jun 1) is rejected.
	rejected, err := s.service.Dispatch(ctx, s.bankCommand("req-3", day(2024, 3, 15)))
	s.Require().NoError(err)
	s.Equal(models.StatusError, rejected.Status)
	s.Equal(dErrors.CodeInvalidEffectiveDate, rejected.ErrorCode)

	cmd := s.bankCommand("req-4", day(2024, 3, 15))
	cmd.Payload["bank_code"] = "30"
	corrected, err := s.service.Correct(ctx, cmd)
	s.Require().NoError(err)
	s.Equal(models.StatusApplied, corrected.Status)

	chain := s.chain(id.KindBankDetails)
	s.Require().Len(chain, 4)
	s.assertInvariants(chain)

	// Original [Jan 1, Jun 1) is retired, replaced by the carry [Jan 1,
	// Mar 15) and the corrected [Mar 15, Jun 1).
	var original *models.Version
	for i := range chain {
		if chain[i].ID == *first.VersionID {
			original = &chain[i]
		}
	}
	s.Require().NotNil(original)
	s.Require().NotNil(original.SupersededBy)
	s.Equal(*corrected.VersionID, *original.SupersededBy)

	var covering []models.Version
	for _, v := range chain {
		if v.Active() && v.Contains(day(2024, 2, 1)) {
			covering = append(covering, v)
		}
	}
	s.Require().Len(covering, 1)
	s.Equal("10", covering[0].Payload["bank_code"])

	asOf, err := s.versions.ReadAsOf(ctx, chain[0].SlotID, day(2024, 4, 1))
	s.Require().NoError(err)
	s.Equal("30", asOf.Payload["bank_code"])

	events, err := s.journal.ListByOwner(ctx, s.tenantID, s.ownerID, 10)
	s.Require().NoError(err)
	s.Equal(audit.EventCorrectionApplied, events[0].Type)
}

func (s *DispatcherSuite) TestPrehistoryPolicy() {
	ctx := context.Background()

	s.Run("rejected for kinds without prehistory", func() {
		_, err := s.service.Dispatch(ctx, s.bankCommand("req-1", day(2024, 6, 1)))
		s.Require().NoError(err)

		result, err := s.service.Dispatch(ctx, s.bankCommand("req-2", day(2024, 1, 1)))
		s.Require().NoError(err)
		s.Equal(models.StatusError, result.Status)
		s.Equal(dErrors.CodeInvalidEffectiveDate, result.ErrorCode)
	})

	s.Run("allowed kinds insert a closed prefix", func() {
		dependent := func(requestID string, effective time.Time) models.Command {
			return models.Command{
				ActionKey:   "employee_family.changed",
				TenantID:    s.tenantID,
				OwnerID:     s.ownerID,
				EffectiveAt: effective,
				RequestID:   requestID,
				Payload:     models.Payload{"first_name": "Noa", "last_name": "Levi"},
			}
		}
		_, err := s.service.Dispatch(ctx, dependent("req-3", day(2024, 6, 1)))
		s.Require().NoError(err)

		result, err := s.service.Dispatch(ctx, dependent("req-4", day(2024, 1, 1)))
		s.Require().NoError(err)
		s.Equal(models.StatusApplied, result.Status)

		chain := s.chain(id.KindDependent)
		s.Require().Len(chain, 2)
		s.Require().NotNil(chain[0].EffectiveTo)
		s.Equal(day(2024, 6, 1), *chain[0].EffectiveTo)
		s.assertInvariants(chain)
	})
}

// =============================================================================
// Idempotency
// =============================================================================

func (s *DispatcherSuite) TestReplayReturnsStoredOutcome() {
	ctx := context.Background()
	first, err := s.service.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)

	// Retry with the same request id but a different payload: the stored
	// outcome wins and nothing new is written.
	retry := s.bankCommand("req-1", day(2024, 9, 1))
	retry.Payload["bank_code"] = "99"
	second, err := s.service.Dispatch(ctx, retry)
	s.Require().NoError(err)

	s.True(second.Replayed)
	s.Equal(models.StatusApplied, second.Status)
	s.Equal(*first.VersionID, *second.VersionID)
	s.Len(s.chain(id.KindBankDetails), 1)

	events, err := s.journal.ListByOwner(ctx, s.tenantID, s.ownerID, 10)
	s.Require().NoError(err)
	s.Equal(audit.EventDispatchReplayed, events[0].Type)
}

func (s *DispatcherSuite) TestDeterministicRejectionIsCached() {
	ctx := context.Background()
	cmd := s.bankCommand("req-1", day(2024, 1, 1))
	delete(cmd.Payload, "account_number")

	first, err := s.service.Dispatch(ctx, cmd)
	s.Require().NoError(err)
	s.Equal(models.StatusError, first.Status)
	s.Equal(dErrors.CodePayloadValidation, first.ErrorCode)
	s.False(first.Replayed)

	second, err := s.service.Dispatch(ctx, cmd)
	s.Require().NoError(err)
	s.Equal(models.StatusError, second.Status)
	s.Equal(dErrors.CodePayloadValidation, second.ErrorCode)
	s.True(second.Replayed)
}

func (s *DispatcherSuite) TestConcurrentDuplicatesPersistOneVersion() {
	ctx := context.Background()
	locker := store.NewSlotLocker()
	logger := slog.Default()
	svc := NewService(
		s.versions, s.dispatches, locker, kinds.Default(),
		audit.NewPublisher(s.journal, logger), logger,
	)

	// Hold the slot lock so both dispatches pass the unlocked record lookup
	// and queue on acquisition, then race once it frees up.
	key := store.LockKey(s.tenantID.String(), s.ownerID.String(), id.KindBankDetails.String(), "primary")
	release, err := locker.Acquire(ctx, key, time.Second)
	s.Require().NoError(err)

	results := make(chan models.DispatchResult, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Dispatch(ctx, s.bankCommand("req-race", day(2024, 1, 1)))
			s.NoError(err)
			results <- result
		}()
	}
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()
	close(results)

	chain := s.chain(id.KindBankDetails)
	s.Require().Len(chain, 1, "expected exactly one persisted version")
	s.Nil(chain[0].SupersededBy)
	s.assertInvariants(chain)

	fresh := 0
	for result := range results {
		s.Equal(models.StatusApplied, result.Status)
		s.Require().NotNil(result.VersionID)
		s.Equal(chain[0].ID, *result.VersionID)
		if !result.Replayed {
			fresh++
		}
	}
	s.Equal(1, fresh, "exactly one dispatch applies; the other replays")
}

func (s *DispatcherSuite) TestRequestIDScopedPerTenant() {
	ctx := context.Background()
	_, err := s.service.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)

	otherTenant, err := id.ParseTenantID(uuid.NewString())
	s.Require().NoError(err)
	cmd := s.bankCommand("req-1", day(2024, 1, 1))
	cmd.TenantID = otherTenant

	result, err := s.service.Dispatch(ctx, cmd)
	s.Require().NoError(err)
	s.Equal(models.StatusApplied, result.Status)
	s.False(result.Replayed)
}

func (s *DispatcherSuite) TestUnknownActionKey() {
	cmd := s.bankCommand("req-1", day(2024, 1, 1))
	cmd.ActionKey = "employee_shoe_size.changed"

	result, err := s.service.Dispatch(context.Background(), cmd)
	s.Require().NoError(err)
	s.Equal(models.StatusError, result.Status)
	s.Equal(dErrors.CodeUnknownEntityKind, result.ErrorCode)
}

func (s *DispatcherSuite) TestMissingRequestID() {
	cmd := s.bankCommand("", day(2024, 1, 1))
	_, err := s.service.Dispatch(context.Background(), cmd)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

// =============================================================================
// Transient failures are never cached
// =============================================================================

func (s *DispatcherSuite) TestLockTimeoutIsRetryable() {
	ctx := context.Background()
	locker := store.NewSlotLocker()
	logger := slog.Default()
	svc := NewService(
		s.versions, s.dispatches, locker, kinds.Default(),
		audit.NewPublisher(s.journal, logger), logger,
		WithLockWait(20*time.Millisecond),
	)

	key := store.LockKey(s.tenantID.String(), s.ownerID.String(), id.KindBankDetails.String(), "primary")
	release, err := locker.Acquire(ctx, key, time.Second)
	s.Require().NoError(err)

	_, err = svc.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSlotLockTimeout))

	release()

	// The same request id succeeds once the slot frees up; the timeout was
	// not cached as an outcome.
	result, err := svc.Dispatch(ctx, s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)
	s.Equal(models.StatusApplied, result.Status)
	s.False(result.Replayed)
}

func (s *DispatcherSuite) TestStaleCloseTargetIsRetryable() {
	ctrl := gomock.NewController(s.T())
	versions := mocks.NewMockVersionStore(ctrl)
	dispatches := mocks.NewMockDispatchStore(ctrl)

	open := models.Version{
		ID:            id.NewVersionID(),
		EffectiveFrom: day(2024, 1, 1),
		Payload:       models.Payload{"bank_code": "10"},
	}
	slot := models.Slot{ID: id.NewSlotID(), TenantID: s.tenantID, OwnerID: s.ownerID}

	dispatches.EXPECT().Find(gomock.Any(), s.tenantID, "req-1").
		Return(models.DispatchRecord{}, sentinel.ErrNotFound)
	versions.EXPECT().EnsureSlot(gomock.Any(), s.tenantID, s.ownerID, id.KindBankDetails, "primary").
		Return(slot, nil)
	versions.EXPECT().ReadChain(gomock.Any(), slot.ID).
		Return([]models.Version{open}, nil)
	versions.EXPECT().Apply(gomock.Any(), slot.ID, gomock.Any()).
		Return(sentinel.ErrStaleTarget)

	logger := slog.Default()
	svc := NewService(versions, dispatches, store.NewSlotLocker(), kinds.Default(),
		audit.NewPublisher(s.journal, logger), logger)

	_, err := svc.Dispatch(context.Background(), s.bankCommand("req-1", day(2024, 6, 1)))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStaleCloseTarget))
}

func (s *DispatcherSuite) TestSaveConflictReturnsWinningRecord() {
	ctrl := gomock.NewController(s.T())
	dispatches := mocks.NewMockDispatchStore(ctrl)

	winnerVersion := id.NewVersionID()
	winner := models.DispatchRecord{
		TenantID:  s.tenantID,
		RequestID: "req-1",
		Status:    models.StatusApplied,
		VersionID: &winnerVersion,
	}

	gomock.InOrder(
		dispatches.EXPECT().Find(gomock.Any(), s.tenantID, "req-1").
			Return(models.DispatchRecord{}, sentinel.ErrNotFound),
		dispatches.EXPECT().Save(gomock.Any(), gomock.Any()).
			Return(sentinel.ErrConflict),
		dispatches.EXPECT().Find(gomock.Any(), s.tenantID, "req-1").
			Return(winner, nil),
	)

	logger := slog.Default()
	svc := NewService(s.versions, dispatches, store.NewSlotLocker(), kinds.Default(),
		audit.NewPublisher(s.journal, logger), logger)

	result, err := svc.Dispatch(context.Background(), s.bankCommand("req-1", day(2024, 1, 1)))
	s.Require().NoError(err)
	s.True(result.Replayed)
	s.Equal(winnerVersion, *result.VersionID)
}
