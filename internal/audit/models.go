// Package audit records the action journal: one event per dispatched change,
// correction, or idempotent replay. The journal is how a reader reconstructs
// "what we believed at the time" next to the superseded_by chains in the
// version store.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "tempora/pkg/domain"
)

// EventType classifies journal entries.
type EventType string

const (
	EventActionApplied     EventType = "action_applied"
	EventCorrectionApplied EventType = "correction_applied"
	EventDispatchReplayed  EventType = "dispatch_replayed"
	EventDispatchRejected  EventType = "dispatch_rejected"
)

// Event is emitted from the dispatcher to capture one journal entry. Keep it
// transport-agnostic so the Postgres store and the Kafka sink can fan out.
type Event struct {
	ID          uuid.UUID     `json:"id"`
	Type        EventType     `json:"type"`
	TenantID    id.TenantID   `json:"tenant_id"`
	OwnerID     id.EmployeeID `json:"owner_id"`
	SlotID      *id.SlotID    `json:"slot_id,omitempty"`
	VersionID   *id.VersionID `json:"version_id,omitempty"`
	ActionKey   string        `json:"action_key"`
	RequestID   string        `json:"request_id"`
	ActorID     string        `json:"actor_id,omitempty"`
	ClientIP    string        `json:"client_ip,omitempty"`
	UserAgent   string        `json:"user_agent,omitempty"`
	EffectiveAt *time.Time    `json:"effective_at,omitempty"`
	RecordedAt  time.Time     `json:"recorded_at"`
}
