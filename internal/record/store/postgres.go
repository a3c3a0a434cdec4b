package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
	"tempora/pkg/platform/sentinel"
)

// PostgresVersionStore persists slots and version chains in PostgreSQL.
// This store is pure I/O; interval math and plan computation belong to the
// validator.
type PostgresVersionStore struct {
	db *sql.DB
}

func NewPostgresVersionStore(db *sql.DB) *PostgresVersionStore {
	return &PostgresVersionStore{db: db}
}

func (s *PostgresVersionStore) EnsureSlot(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (models.Slot, error) {
	query := `
		INSERT INTO record_slots (id, tenant_id, owner_id, kind, slot_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, owner_id, kind, slot_key) DO UPDATE SET
			slot_key = EXCLUDED.slot_key
		RETURNING id, tenant_id, owner_id, kind, slot_key, generation, created_at
	`
	slot, err := scanSlot(s.db.QueryRowContext(ctx, query,
		id.NewSlotID().String(), tenantID.String(), ownerID.String(), kind.String(), slotKey))
	if err != nil {
		return models.Slot{}, fmt.Errorf("ensure slot: %w", translate(err))
	}
	return slot, nil
}

func (s *PostgresVersionStore) FindSlot(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind, slotKey string) (models.Slot, error) {
	query := `
		SELECT id, tenant_id, owner_id, kind, slot_key, generation, created_at
		FROM record_slots
		WHERE tenant_id = $1 AND owner_id = $2 AND kind = $3 AND slot_key = $4
	`
	slot, err := scanSlot(s.db.QueryRowContext(ctx, query,
		tenantID.String(), ownerID.String(), kind.String(), slotKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Slot{}, sentinel.ErrNotFound
		}
		return models.Slot{}, fmt.Errorf("find slot: %w", translate(err))
	}
	return slot, nil
}

func (s *PostgresVersionStore) ListSlots(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, kind id.EntityKind) ([]models.Slot, error) {
	query := `
		SELECT id, tenant_id, owner_id, kind, slot_key, generation, created_at
		FROM record_slots
		WHERE tenant_id = $1 AND owner_id = $2 AND kind = $3
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID.String(), ownerID.String(), kind.String())
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", translate(err))
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *PostgresVersionStore) ReadChain(ctx context.Context, slotID id.SlotID) ([]models.Version, error) {
	query := `
		SELECT id, slot_id, effective_from, effective_to, payload, superseded_by, request_id, created_at
		FROM record_versions
		WHERE slot_id = $1
		ORDER BY effective_from, created_at
	`
	rows, err := s.db.QueryContext(ctx, query, slotID.String())
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", translate(err))
	}
	defer rows.Close()

	var chain []models.Version
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("read chain: %w", err)
		}
		chain = append(chain, version)
	}
	return chain, rows.Err()
}

func (s *PostgresVersionStore) ReadAsOf(ctx context.Context, slotID id.SlotID, date time.Time) (models.Version, error) {
	query := `
		SELECT id, slot_id, effective_from, effective_to, payload, superseded_by, request_id, created_at
		FROM record_versions
		WHERE slot_id = $1
		  AND superseded_by IS NULL
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to > $2)
	`
	version, err := scanVersion(s.db.QueryRowContext(ctx, query, slotID.String(), models.Date(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Version{}, sentinel.ErrNotFound
		}
		return models.Version{}, fmt.Errorf("read as of: %w", translate(err))
	}
	return version, nil
}

// Apply executes the mutation in one transaction. The close step asserts the
// target is still open so a lost race surfaces as ErrStaleTarget instead of
// silently overwriting.
func (s *PostgresVersionStore) Apply(ctx context.Context, slotID id.SlotID, mutation Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply: %w", translate(err))
	}
	defer tx.Rollback()

	if mutation.ClosePriorID != nil {
		result, err := tx.ExecContext(ctx, `
			UPDATE record_versions
			SET effective_to = $1
			WHERE id = $2 AND effective_to IS NULL
		`, models.Date(mutation.CloseAt), mutation.ClosePriorID.String())
		if err != nil {
			return fmt.Errorf("close prior version: %w", translate(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("close prior version: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrStaleTarget
		}
	}

	if mutation.RetireID != nil {
		_, err := tx.ExecContext(ctx, `
			UPDATE record_versions
			SET superseded_by = $1
			WHERE id = $2
		`, mutation.RetiredBy.String(), mutation.RetireID.String())
		if err != nil {
			return fmt.Errorf("retire version: %w", translate(err))
		}
	}

	for _, version := range mutation.Append {
		payload, err := json.Marshal(version.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		var effectiveTo any
		if version.EffectiveTo != nil {
			effectiveTo = *version.EffectiveTo
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO record_versions (id, slot_id, effective_from, effective_to, payload, request_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, version.ID.String(), slotID.String(), version.EffectiveFrom, effectiveTo, payload, version.RequestID)
		if err != nil {
			return fmt.Errorf("append version: %w", translate(err))
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE record_slots SET generation = generation + 1 WHERE id = $1
	`, slotID.String()); err != nil {
		return fmt.Errorf("bump generation: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", translate(err))
	}
	return nil
}

// PostgresDispatchStore persists dispatch records in PostgreSQL.
type PostgresDispatchStore struct {
	db *sql.DB
}

func NewPostgresDispatchStore(db *sql.DB) *PostgresDispatchStore {
	return &PostgresDispatchStore{db: db}
}

func (s *PostgresDispatchStore) Find(ctx context.Context, tenantID id.TenantID, requestID string) (models.DispatchRecord, error) {
	query := `
		SELECT tenant_id, request_id, owner_id, kind, slot_key, action_key, status, version_id, error_code, created_at
		FROM dispatch_records
		WHERE tenant_id = $1 AND request_id = $2
	`
	record, err := scanDispatchRecord(s.db.QueryRowContext(ctx, query, tenantID.String(), requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DispatchRecord{}, sentinel.ErrNotFound
		}
		return models.DispatchRecord{}, fmt.Errorf("find dispatch record: %w", translate(err))
	}
	return record, nil
}

func (s *PostgresDispatchStore) Save(ctx context.Context, record models.DispatchRecord) error {
	var versionID any
	if record.VersionID != nil {
		versionID = record.VersionID.String()
	}
	var errorCode any
	if record.ErrorCode != "" {
		errorCode = string(record.ErrorCode)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_records (tenant_id, request_id, owner_id, kind, slot_key, action_key, status, version_id, error_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.TenantID.String(), record.RequestID, record.OwnerID.String(), record.Kind.String(),
		record.SlotKey, record.ActionKey, string(record.Status), versionID, errorCode)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save dispatch record: %w", translate(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (models.Slot, error) {
	var (
		slot                            models.Slot
		slotID, tenantID, ownerID, kind string
	)
	if err := row.Scan(&slotID, &tenantID, &ownerID, &kind, &slot.SlotKey, &slot.Generation, &slot.CreatedAt); err != nil {
		return models.Slot{}, err
	}
	var err error
	if slot.ID, err = id.ParseSlotID(slotID); err != nil {
		return models.Slot{}, err
	}
	if slot.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return models.Slot{}, err
	}
	if slot.OwnerID, err = id.ParseEmployeeID(ownerID); err != nil {
		return models.Slot{}, err
	}
	if slot.Kind, err = id.ParseEntityKind(kind); err != nil {
		return models.Slot{}, err
	}
	return slot, nil
}

func scanVersion(row rowScanner) (models.Version, error) {
	var (
		version                   models.Version
		versionID, slotID         string
		effectiveTo               sql.NullTime
		supersededBy              sql.NullString
		payload                   []byte
	)
	if err := row.Scan(&versionID, &slotID, &version.EffectiveFrom, &effectiveTo, &payload, &supersededBy, &version.RequestID, &version.CreatedAt); err != nil {
		return models.Version{}, err
	}
	var err error
	if version.ID, err = id.ParseVersionID(versionID); err != nil {
		return models.Version{}, err
	}
	if version.SlotID, err = id.ParseSlotID(slotID); err != nil {
		return models.Version{}, err
	}
	version.EffectiveFrom = models.Date(version.EffectiveFrom)
	if effectiveTo.Valid {
		to := models.Date(effectiveTo.Time)
		version.EffectiveTo = &to
	}
	if supersededBy.Valid {
		by, err := id.ParseVersionID(supersededBy.String)
		if err != nil {
			return models.Version{}, err
		}
		version.SupersededBy = &by
	}
	if err := json.Unmarshal(payload, &version.Payload); err != nil {
		return models.Version{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return version, nil
}

func scanDispatchRecord(row rowScanner) (models.DispatchRecord, error) {
	var (
		record               models.DispatchRecord
		tenantID, ownerID    string
		kind, status         string
		versionID, errorCode sql.NullString
	)
	if err := row.Scan(&tenantID, &record.RequestID, &ownerID, &kind, &record.SlotKey,
		&record.ActionKey, &status, &versionID, &errorCode, &record.CreatedAt); err != nil {
		return models.DispatchRecord{}, err
	}
	var err error
	if record.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return models.DispatchRecord{}, err
	}
	if record.OwnerID, err = id.ParseEmployeeID(ownerID); err != nil {
		return models.DispatchRecord{}, err
	}
	// Rejections for unknown action keys have no kind.
	if kind != "" {
		if record.Kind, err = id.ParseEntityKind(kind); err != nil {
			return models.DispatchRecord{}, err
		}
	}
	record.Status = models.DispatchStatus(status)
	if versionID.Valid {
		parsed, err := id.ParseVersionID(versionID.String)
		if err != nil {
			return models.DispatchRecord{}, err
		}
		record.VersionID = &parsed
	}
	if errorCode.Valid {
		record.ErrorCode = dErrors.Code(errorCode.String)
	}
	return record, nil
}

// translate maps driver-level connectivity failures to ErrUnavailable so the
// service reports storage_unavailable instead of a bare internal error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection, resource, operator intervention
			return fmt.Errorf("%w: %s", sentinel.ErrUnavailable, pqErr.Message)
		}
	}
	return err
}
