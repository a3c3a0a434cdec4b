// Package service implements the command dispatcher: the single write path
// for effective-dated records. Every mutation flows through Dispatch, which
// enforces idempotency by request id, serializes writers per slot, computes
// the mutation plan, and journals the outcome.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tempora/internal/audit"
	"tempora/internal/record/kinds"
	"tempora/internal/record/metrics"
	"tempora/internal/record/models"
	"tempora/internal/record/store"
	"tempora/internal/record/validator"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
	"tempora/pkg/platform/sentinel"
	"tempora/pkg/requestcontext"
)

const defaultLockWait = 3 * time.Second

// Emitter journals dispatcher outcomes.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the command dispatcher.
//
// Dispatch returns a nil error with a populated result for every persisted
// outcome, including deterministic rejections: those are cached under the
// request id and replayed verbatim on retry. A non-nil error means the
// outcome was NOT persisted and the caller should retry with the same
// request id (lock timeout, stale close target, storage unavailable).
type Service struct {
	versions   store.VersionStore
	dispatches store.DispatchStore
	locker     *store.SlotLocker
	catalog    *kinds.Catalog
	emitter    Emitter
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	lockWait   time.Duration
}

// Option configures the Service.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLockWait(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

func NewService(
	versions store.VersionStore,
	dispatches store.DispatchStore,
	locker *store.SlotLocker,
	catalog *kinds.Catalog,
	emitter Emitter,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		versions:   versions,
		dispatches: dispatches,
		locker:     locker,
		catalog:    catalog,
		emitter:    emitter,
		logger:     logger,
		tracer:     otel.Tracer("tempora/record"),
		lockWait:   defaultLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch processes one command.
func (s *Service) Dispatch(ctx context.Context, cmd models.Command) (models.DispatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "record.Dispatch", trace.WithAttributes(
		attribute.String("action_key", cmd.ActionKey),
		attribute.String("request_id", cmd.RequestID),
	))
	defer span.End()

	if cmd.RequestID == "" {
		return models.DispatchResult{}, dErrors.New(dErrors.CodeBadRequest, "request_id is required")
	}
	if cmd.TenantID.IsNil() || cmd.OwnerID.IsNil() {
		return models.DispatchResult{}, dErrors.New(dErrors.CodeBadRequest, "tenant and owner are required")
	}
	if cmd.SlotKey == "" {
		cmd.SlotKey = "primary"
	}

	// Idempotency short-circuit: a seen request id replays its stored
	// outcome verbatim, whatever the current payload says.
	if prior, err := s.dispatches.Find(ctx, cmd.TenantID, cmd.RequestID); err == nil {
		s.journalReplay(ctx, cmd, prior)
		s.metrics.ObserveDispatch(cmd.ActionKey, "duplicate")
		return prior.Result(true), nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return models.DispatchResult{}, s.storageErr("read dispatch record", err)
	}

	descriptor, err := s.catalog.ByAction(cmd.ActionKey)
	if err != nil {
		return s.reject(ctx, cmd, "", dErrors.CodeOf(err), err)
	}
	if err := descriptor.ValidatePayload(cmd.Payload); err != nil {
		return s.reject(ctx, cmd, descriptor.Kind, dErrors.CodeOf(err), err)
	}
	if cmd.EffectiveAt.IsZero() {
		return s.reject(ctx, cmd, descriptor.Kind,
			dErrors.CodeInvalidEffectiveDate,
			dErrors.New(dErrors.CodeInvalidEffectiveDate, "effective_at is required"))
	}

	key := store.LockKey(cmd.TenantID.String(), cmd.OwnerID.String(), descriptor.Kind.String(), cmd.SlotKey)
	lockStart := time.Now()
	release, err := s.locker.Acquire(ctx, key, s.lockWait)
	s.metrics.ObserveLockWait(time.Since(lockStart))
	if err != nil {
		if errors.Is(err, sentinel.ErrLockTimeout) {
			s.metrics.ObserveLockTimeout()
			return models.DispatchResult{}, dErrors.Wrap(dErrors.CodeSlotLockTimeout, "slot is busy", err)
		}
		return models.DispatchResult{}, err
	}
	defer release()

	// Re-check under the lock: a concurrent duplicate may have committed
	// between the first lookup and acquisition. The winner saves its record
	// before releasing, so this read closes the race window.
	if prior, err := s.dispatches.Find(ctx, cmd.TenantID, cmd.RequestID); err == nil {
		s.journalReplay(ctx, cmd, prior)
		s.metrics.ObserveDispatch(cmd.ActionKey, "duplicate")
		return prior.Result(true), nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return models.DispatchResult{}, s.storageErr("read dispatch record", err)
	}

	slot, err := s.versions.EnsureSlot(ctx, cmd.TenantID, cmd.OwnerID, descriptor.Kind, cmd.SlotKey)
	if err != nil {
		return models.DispatchResult{}, s.storageErr("ensure slot", err)
	}
	chain, err := s.versions.ReadChain(ctx, slot.ID)
	if err != nil {
		return models.DispatchResult{}, s.storageErr("read chain", err)
	}

	plan, err := validator.Compute(chain, validator.Input{
		SlotID:          slot.ID,
		EffectiveAt:     cmd.EffectiveAt,
		Payload:         cmd.Payload,
		RequestID:       cmd.RequestID,
		Correction:      cmd.Correction,
		AllowPrehistory: descriptor.Prehistory,
	})
	if err != nil {
		return s.reject(ctx, cmd, descriptor.Kind, dErrors.CodeOf(err), err)
	}

	mutation := store.Mutation{}
	if plan.Carry != nil {
		mutation.Append = append(mutation.Append, *plan.Carry)
	}
	mutation.Append = append(mutation.Append, plan.NewVersion)
	if plan.ClosePriorID != nil {
		mutation.ClosePriorID = plan.ClosePriorID
		mutation.CloseAt = plan.NewVersion.EffectiveFrom
	}
	if plan.RetireID != nil {
		mutation.RetireID = plan.RetireID
		mutation.RetiredBy = plan.NewVersion.ID
	}

	if err := s.versions.Apply(ctx, slot.ID, mutation); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrStaleTarget):
			return models.DispatchResult{}, dErrors.Wrap(dErrors.CodeStaleCloseTarget,
				"a concurrent writer changed the open version", err)
		default:
			return models.DispatchResult{}, s.storageErr("apply mutation", err)
		}
	}
	s.metrics.ObservePlan(string(plan.Kind))

	versionID := plan.NewVersion.ID
	record := models.DispatchRecord{
		TenantID:  cmd.TenantID,
		RequestID: cmd.RequestID,
		OwnerID:   cmd.OwnerID,
		Kind:      descriptor.Kind,
		SlotKey:   cmd.SlotKey,
		ActionKey: cmd.ActionKey,
		Status:    models.StatusApplied,
		VersionID: &versionID,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.dispatches.Save(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race to a concurrent duplicate; its outcome stands.
			prior, ferr := s.dispatches.Find(ctx, cmd.TenantID, cmd.RequestID)
			if ferr != nil {
				return models.DispatchResult{}, s.storageErr("re-read dispatch record", ferr)
			}
			s.journalReplay(ctx, cmd, prior)
			s.metrics.ObserveDispatch(cmd.ActionKey, "duplicate")
			return prior.Result(true), nil
		}
		// The mutation committed; losing the dispatch row only weakens
		// replay protection for this request id.
		s.logger.Error("save dispatch record",
			"request_id", cmd.RequestID, "error", err)
	}

	s.journalApplied(ctx, cmd, slot, plan)
	s.metrics.ObserveDispatch(cmd.ActionKey, "applied")
	s.logger.Info("command applied",
		"action_key", cmd.ActionKey,
		"request_id", cmd.RequestID,
		"plan", string(plan.Kind),
		"version_id", versionID.String(),
	)
	return record.Result(false), nil
}

// Correct dispatches a retroactive edit.
func (s *Service) Correct(ctx context.Context, cmd models.Command) (models.DispatchResult, error) {
	cmd.Correction = true
	return s.Dispatch(ctx, cmd)
}

// reject persists a deterministic failure under the request id so retries
// replay it instead of re-validating.
func (s *Service) reject(ctx context.Context, cmd models.Command, kind id.EntityKind, code dErrors.Code, cause error) (models.DispatchResult, error) {
	record := models.DispatchRecord{
		TenantID:  cmd.TenantID,
		RequestID: cmd.RequestID,
		OwnerID:   cmd.OwnerID,
		Kind:      kind,
		SlotKey:   cmd.SlotKey,
		ActionKey: cmd.ActionKey,
		Status:    models.StatusError,
		ErrorCode: code,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.dispatches.Save(ctx, record); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		s.logger.Error("save rejection record",
			"request_id", cmd.RequestID, "error", err)
	}
	s.journal(ctx, cmd, audit.EventDispatchRejected, nil, nil)
	s.metrics.ObserveDispatch(cmd.ActionKey, "rejected")
	s.logger.Warn("command rejected",
		"action_key", cmd.ActionKey,
		"request_id", cmd.RequestID,
		"error", cause,
	)
	return record.Result(false), nil
}

func (s *Service) storageErr(op string, err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(dErrors.CodeStorageUnavailable, op+" failed", err)
	}
	return dErrors.Wrap(dErrors.CodeInternal, op+" failed", err)
}

func (s *Service) journalApplied(ctx context.Context, cmd models.Command, slot models.Slot, plan validator.Plan) {
	eventType := audit.EventActionApplied
	if cmd.Correction {
		eventType = audit.EventCorrectionApplied
	}
	slotID := slot.ID
	versionID := plan.NewVersion.ID
	s.journal(ctx, cmd, eventType, &slotID, &versionID)
}

func (s *Service) journalReplay(ctx context.Context, cmd models.Command, prior models.DispatchRecord) {
	s.journal(ctx, cmd, audit.EventDispatchReplayed, nil, prior.VersionID)
}

func (s *Service) journal(ctx context.Context, cmd models.Command, eventType audit.EventType, slotID *id.SlotID, versionID *id.VersionID) {
	if s.emitter == nil {
		return
	}
	event := audit.Event{
		Type:       eventType,
		TenantID:   cmd.TenantID,
		OwnerID:    cmd.OwnerID,
		SlotID:     slotID,
		VersionID:  versionID,
		ActionKey:  cmd.ActionKey,
		RequestID:  cmd.RequestID,
		ActorID:    requestcontext.ActorID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
		RecordedAt: requestcontext.Now(ctx),
	}
	if !cmd.EffectiveAt.IsZero() {
		at := models.Date(cmd.EffectiveAt)
		event.EffectiveAt = &at
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Error("journal event",
			"event_type", eventType, "request_id", cmd.RequestID, "error", err)
	}
}
