package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CreateTicketRequest payload. ErrorDatetime accepts RFC3339 or the
// "2006-01-02T15:04" form produced by datetime-local inputs.
type CreateTicketRequest struct {
	Description   string `json:"description" form:"description"`
	ErrorText     string `json:"error_text" form:"error_text"`
	ErrorDatetime string `json:"error_datetime" form:"error_datetime"`
}

// UpdateDeadlineRequest payload; the deadline is a "2006-01-02" date.
type UpdateDeadlineRequest struct {
	ProcessingDeadline string `json:"processing_deadline" form:"processing_deadline"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	StatusID int64 `json:"status_id" form:"status_id"`
}

// StatusResponse is a ticket status.
type StatusResponse struct {
	ID   int64                   `json:"id"`
	Code domain.TicketStatusCode `json:"code"`
	Name string                  `json:"name"`
}

// TicketResponse is a persisted ticket.
type TicketResponse struct {
	ID                 int64           `json:"id"`
	Number             int             `json:"number"`
	UserID             int64           `json:"userId"`
	Description        string          `json:"description"`
	ErrorText          string          `json:"errorText"`
	ErrorAt            time.Time       `json:"errorAt"`
	ProcessingDeadline time.Time       `json:"processingDeadline"`
	Status             *StatusResponse `json:"status,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TicketListResponse is the ticket page; support callers also get the
// user cursor.
type TicketListResponse struct {
	Users   []AccountResponse `json:"users,omitempty"`
	Current *AccountResponse  `json:"current,omitempty"`
	Prev    *AccountResponse  `json:"prev,omitempty"`
	Next    *AccountResponse  `json:"next,omitempty"`
	Tickets []TicketResponse  `json:"tickets"`
}

// Status maps a ticket status.
func Status(s domain.TicketStatus) StatusResponse {
	return StatusResponse{ID: s.ID, Code: s.Code, Name: s.Name}
}

// Statuses maps a status list.
func Statuses(list []domain.TicketStatus) []StatusResponse {
	out := make([]StatusResponse, 0, len(list))
	for _, s := range list {
		out = append(out, Status(s))
	}
	return out
}

// Ticket maps a ticket.
func Ticket(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                 t.ID,
		Number:             t.Number,
		UserID:             t.UserID,
		Description:        t.Description,
		ErrorText:          t.ErrorText,
		ErrorAt:            t.ErrorAt,
		ProcessingDeadline: t.ProcessingDeadline,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	if t.Status != nil {
		status := Status(*t.Status)
		resp.Status = &status
	}
	return resp
}

// TicketList maps a listing.
func TicketList(listing *service.TicketListing) TicketListResponse {
	resp := TicketListResponse{Tickets: make([]TicketResponse, 0, len(listing.Tickets))}
	for i := range listing.Tickets {
		resp.Tickets = append(resp.Tickets, Ticket(&listing.Tickets[i]))
	}
	if listing.Users != nil {
		resp.Users = Accounts(listing.Users)
	}
	if listing.Cursor != nil {
		current := Account(listing.Cursor.Current)
		prevAccount, nextAccount := listing.Cursor.Neighbours(listing.Users)
		prev, next := Account(prevAccount), Account(nextAccount)
		resp.Current, resp.Prev, resp.Next = &current, &prev, &next
	}
	return resp
}
