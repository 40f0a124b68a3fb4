package domain

import "time"

// TicketStatusCode identifies one of the seeded lifecycle states.
type TicketStatusCode string

const (
	TicketStatusPending   TicketStatusCode = "pending"
	TicketStatusCompleted TicketStatusCode = "completed"
	TicketStatusSuspended TicketStatusCode = "suspended"
)

// TicketStatus is a seeded lifecycle state. Any status may follow any other.
type TicketStatus struct {
	ID   int64
	Code TicketStatusCode
	Name string
}

// Ticket is a user-filed support request.
type Ticket struct {
	ID                 int64
	Number             int
	UserID             int64
	Description        string
	ErrorText          string
	ErrorAt            time.Time
	ProcessingDeadline time.Time
	StatusID           int64
	Status             *TicketStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
