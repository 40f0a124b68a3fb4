package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const deadlineLayout = "2006-01-02"

// errorDatetimeLayouts are the accepted forms of error_datetime.
var errorDatetimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// TicketsHandler manages ticket endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
	now     func() time.Time
}

// NewTicketsHandler constructs handler. A nil clock uses time.Now.
func NewTicketsHandler(ticketService *service.TicketService, clock func() time.Time) *TicketsHandler {
	if clock == nil {
		clock = time.Now
	}
	return &TicketsHandler{service: ticketService, now: clock}
}

// ListTickets GET /tickets?user_id=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	requested, err := optionalID(c.Query("user_id"), "user_id")
	if err != nil {
		return err
	}
	listing, err := h.service.ListTickets(c.UserContext(), caller.Account, requested)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketList(listing)})
}

// SearchOwners GET /tickets/users?search=.
func (h *TicketsHandler) SearchOwners(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	owners, err := h.service.SearchOwners(c.UserContext(), caller.Account, c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Accounts(owners)})
}

// ListStatuses GET /tickets/statuses.
func (h *TicketsHandler) ListStatuses(c *fiber.Ctx) error {
	statuses, err := h.service.ListStatuses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Statuses(statuses)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	now := h.now()
	var errorAt time.Time
	if strings.TrimSpace(req.ErrorDatetime) != "" {
		errorAt, err = parseErrorDatetime(req.ErrorDatetime, now.Location())
		if err != nil {
			return err
		}
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), caller.Account, service.TicketCreateInput{
		Description: req.Description,
		ErrorText:   req.ErrorText,
		ErrorAt:     errorAt,
	}, now)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.Ticket(ticket)})
}

// UpdateDeadline PATCH /tickets/:id/deadline.
func (h *TicketsHandler) UpdateDeadline(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c.Params("id"), "id")
	if err != nil {
		return err
	}
	var req dto.UpdateDeadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	today := h.now()
	deadline, err := time.ParseInLocation(deadlineLayout, strings.TrimSpace(req.ProcessingDeadline), today.Location())
	if err != nil {
		return apperrors.NewValidationError("processing_deadline must be a date (YYYY-MM-DD)", map[string]any{"field": "processing_deadline"})
	}
	ticket, err := h.service.UpdateDeadline(c.UserContext(), ticketID, deadline, caller.Account, today)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Ticket(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	ticketID, err := parseID(c.Params("id"), "id")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), ticketID, req.StatusID, caller.Account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Ticket(ticket)})
}

func parseErrorDatetime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range errorDatetimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewValidationError("error_datetime is not a valid date-time", map[string]any{"field": "error_datetime"})
}
