package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketDeadlineChanged EventType = "ticket_deadline_changed"
	EventMessagePosted         EventType = "message_posted"
	EventAccountRoleChanged    EventType = "account_role_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	AccountID int64       `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// ActorOf describes account as an event actor.
func ActorOf(account domain.Account) Actor {
	return Actor{AccountID: account.ID, Role: account.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID int64       `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number             int       `json:"number"`
	UserID             int64     `json:"user_id"`
	ProcessingDeadline time.Time `json:"processing_deadline"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatusID int64                   `json:"old_status_id"`
	NewStatusID int64                   `json:"new_status_id"`
	NewStatus   domain.TicketStatusCode `json:"new_status"`
}

// TicketDeadlineChangedPayload payload.
type TicketDeadlineChangedPayload struct {
	OldDeadline time.Time `json:"old_deadline"`
	NewDeadline time.Time `json:"new_deadline"`
}

// MessagePostedPayload payload.
type MessagePostedPayload struct {
	RecipientID   *int64 `json:"recipient_id,omitempty"`
	HasAttachment bool   `json:"has_attachment"`
	BodyPreview   string `json:"body_preview"`
}

// AccountRoleChangedPayload payload.
type AccountRoleChangedPayload struct {
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}
