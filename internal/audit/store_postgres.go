package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "tempora/pkg/domain"
)

// PostgresStore persists journal entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var slotID, versionID, effectiveAt any
	if event.SlotID != nil {
		slotID = event.SlotID.String()
	}
	if event.VersionID != nil {
		versionID = event.VersionID.String()
	}
	if event.EffectiveAt != nil {
		effectiveAt = *event.EffectiveAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_journal (id, tenant_id, owner_id, slot_id, version_id, action_key, event_type, request_id, actor_id, client_ip, user_agent, effective_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, event.ID.String(), event.TenantID.String(), event.OwnerID.String(), slotID, versionID,
		event.ActionKey, string(event.Type), event.RequestID, event.ActorID, event.ClientIP,
		event.UserAgent, effectiveAt, event.RecordedAt)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, tenantID id.TenantID, ownerID id.EmployeeID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, owner_id, slot_id, version_id, action_key, event_type, request_id, actor_id, client_ip, user_agent, effective_at, recorded_at
		FROM action_journal
		WHERE tenant_id = $1 AND owner_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`, tenantID.String(), ownerID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event                 Event
			eventID, tenant, owner string
			slotID, versionID     sql.NullString
			eventType             string
			effectiveAt           sql.NullTime
		)
		if err := rows.Scan(&eventID, &tenant, &owner, &slotID, &versionID, &event.ActionKey,
			&eventType, &event.RequestID, &event.ActorID, &event.ClientIP, &event.UserAgent,
			&effectiveAt, &event.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if event.ID, err = uuid.Parse(eventID); err != nil {
			return nil, err
		}
		if event.TenantID, err = id.ParseTenantID(tenant); err != nil {
			return nil, err
		}
		if event.OwnerID, err = id.ParseEmployeeID(owner); err != nil {
			return nil, err
		}
		event.Type = EventType(eventType)
		if slotID.Valid {
			parsed, err := id.ParseSlotID(slotID.String)
			if err != nil {
				return nil, err
			}
			event.SlotID = &parsed
		}
		if versionID.Valid {
			parsed, err := id.ParseVersionID(versionID.String)
			if err != nil {
				return nil, err
			}
			event.VersionID = &parsed
		}
		if effectiveAt.Valid {
			at := effectiveAt.Time
			event.EffectiveAt = &at
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
