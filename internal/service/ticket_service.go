package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	statuses    repository.TicketStatusRepository
	accounts    repository.AccountRepository
	dispatcher  events.Dispatcher
	cfg         config.TicketConfig
	searchLimit int
	intN        func(n int) int
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	StatusRepo  repository.TicketStatusRepository
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	Config      config.TicketConfig
	SearchLimit int
	// IntN returns a uniform integer in [0, n). Defaults to math/rand.
	IntN func(n int) int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Description string
	ErrorText   string
	ErrorAt     time.Time
}

// TicketListing is what a caller sees on the ticket page. Support callers
// browse one user at a time, so Users and Cursor are only set for them.
type TicketListing struct {
	Users   []domain.Account
	Cursor  *Cursor
	Tickets []domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	intN := deps.IntN
	if intN == nil {
		intN = rand.Intn
	}
	limit := deps.SearchLimit
	if limit <= 0 {
		limit = 10
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		statuses:    deps.StatusRepo,
		accounts:    deps.AccountRepo,
		dispatcher:  deps.Dispatcher,
		cfg:         normalizeTicketConfig(deps.Config),
		searchLimit: limit,
		intN:        intN,
	}
}

func normalizeTicketConfig(cfg config.TicketConfig) config.TicketConfig {
	if cfg.NumberCeiling <= 0 {
		cfg.NumberCeiling = 999
	}
	if cfg.NumberRandomDraws < 0 {
		cfg.NumberRandomDraws = 0
	}
	if cfg.NumberMaxAttempts <= 0 {
		cfg.NumberMaxAttempts = 32
	}
	if cfg.DefaultDeadlineDays <= 0 {
		cfg.DefaultDeadlineDays = 3
	}
	return cfg
}

// CreateTicket files a ticket owned by creator. Administrators may not
// create tickets.
func (s *TicketService) CreateTicket(ctx context.Context, creator domain.Account, input TicketCreateInput, now time.Time) (*domain.Ticket, error) {
	if creator.Role != domain.RoleUser && creator.Role != domain.RoleSupport {
		return nil, apperrors.NewForbidden("administrators cannot create tickets")
	}

	description := strings.TrimSpace(input.Description)
	errorText := strings.TrimSpace(input.ErrorText)
	switch {
	case description == "":
		return nil, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	case errorText == "":
		return nil, apperrors.NewValidationError("error text is required", map[string]any{"field": "error_text"})
	case input.ErrorAt.IsZero():
		return nil, apperrors.NewValidationError("error datetime is required", map[string]any{"field": "error_at"})
	case input.ErrorAt.After(now):
		return nil, apperrors.NewValidationError("error datetime cannot be in the future", map[string]any{"field": "error_at"})
	}

	pending, err := s.statuses.GetByCode(ctx, domain.TicketStatusPending)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		UserID:             creator.ID,
		Description:        description,
		ErrorText:          errorText,
		ErrorAt:            input.ErrorAt,
		ProcessingDeadline: now.AddDate(0, 0, s.cfg.DefaultDeadlineDays),
		StatusID:           pending.ID,
		Status:             pending,
	}
	if err := s.insertWithNumber(ctx, ticket); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		Actor:     events.ActorOf(creator),
		Payload: events.TicketCreatedPayload{
			Number:             ticket.Number,
			UserID:             ticket.UserID,
			ProcessingDeadline: ticket.ProcessingDeadline,
		},
	})
	return ticket, nil
}

// insertWithNumber allocates a free number and inserts the ticket. A unique
// violation from a concurrent insert is retried with a fresh candidate.
func (s *TicketService) insertWithNumber(ctx context.Context, ticket *domain.Ticket) error {
	for attempt := 0; attempt < s.cfg.NumberMaxAttempts; attempt++ {
		number, err := s.candidateNumber(ctx)
		if errors.Is(err, repository.ErrNoFreeTicketNumber) {
			return apperrors.NewConflict("ticket numbers exhausted", map[string]any{"ceiling": s.cfg.NumberCeiling})
		}
		if err != nil {
			return apperrors.MapError(err)
		}

		ticket.Number = number
		err = s.tickets.Create(ctx, ticket)
		if errors.Is(err, repository.ErrTicketNumberTaken) {
			continue
		}
		if err != nil {
			return apperrors.MapError(err)
		}
		return nil
	}
	return apperrors.NewConflict("could not allocate a ticket number", map[string]any{
		"attempts": s.cfg.NumberMaxAttempts,
	})
}

// candidateNumber draws random numbers in [1, ceiling] and falls back to the
// lowest free number once the draws keep hitting used ones.
func (s *TicketService) candidateNumber(ctx context.Context) (int, error) {
	for draw := 0; draw < s.cfg.NumberRandomDraws; draw++ {
		number := s.intN(s.cfg.NumberCeiling) + 1
		taken, err := s.tickets.NumberExists(ctx, number)
		if err != nil {
			return 0, err
		}
		if !taken {
			return number, nil
		}
	}
	return s.tickets.LowestFreeNumber(ctx, s.cfg.NumberCeiling)
}

// UpdateDeadline moves the processing deadline. Only support may do this and
// the new date may not precede today; times of day are ignored.
func (s *TicketService) UpdateDeadline(ctx context.Context, ticketID int64, newDate time.Time, caller domain.Account, today time.Time) (*domain.Ticket, error) {
	if caller.Role != domain.RoleSupport {
		return nil, apperrors.NewForbidden("only support can change deadlines")
	}
	if newDate.IsZero() {
		return nil, apperrors.NewValidationError("processing deadline is required", map[string]any{"field": "processing_deadline"})
	}
	deadline := startOfDay(newDate)
	if dateBefore(newDate, today) {
		return nil, apperrors.NewValidationError("processing deadline cannot be in the past", map[string]any{
			"field": "processing_deadline",
		})
	}

	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	old := ticket.ProcessingDeadline
	ticket.ProcessingDeadline = deadline
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketDeadlineChanged,
		SubjectID: ticket.ID,
		Actor:     events.ActorOf(caller),
		Payload:   events.TicketDeadlineChangedPayload{OldDeadline: old, NewDeadline: deadline},
	})
	return ticket, nil
}

// UpdateStatus sets any seeded status on the ticket. Only support may do this.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID, statusID int64, caller domain.Account) (*domain.Ticket, error) {
	if caller.Role != domain.RoleSupport {
		return nil, apperrors.NewForbidden("only support can change status")
	}

	status, err := s.statuses.GetByID(ctx, statusID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status_id": statusID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket, err := s.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatusID := ticket.StatusID
	ticket.StatusID = status.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = status

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketStatusChanged,
		SubjectID: ticket.ID,
		Actor:     events.ActorOf(caller),
		Payload: events.TicketStatusChangedPayload{
			OldStatusID: oldStatusID,
			NewStatusID: status.ID,
			NewStatus:   status.Code,
		},
	})
	return ticket, nil
}

// ListTickets returns the tickets visible to caller. Support browses users
// with the same cyclic cursor as the chat; admin sees everything; users see
// their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, caller domain.Account, requestedUserID *int64) (*TicketListing, error) {
	switch caller.Role {
	case domain.RoleSupport:
		dir, err := DirectoryFor(caller.Role, s.accounts, s.searchLimit)
		if err != nil {
			return nil, apperrors.NewForbidden("unknown role")
		}
		users, err := dir.List(ctx, caller)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		listing := &TicketListing{Users: users, Tickets: []domain.Ticket{}}
		cursor, err := ResolveCursor(users, requestedUserID)
		if errors.Is(err, ErrNoCounterparts) {
			return listing, nil
		}
		listing.Cursor = &cursor
		listing.Tickets, err = s.list(ctx, &cursor.Current.ID)
		if err != nil {
			return nil, err
		}
		return listing, nil
	case domain.RoleAdmin:
		tickets, err := s.list(ctx, nil)
		if err != nil {
			return nil, err
		}
		return &TicketListing{Tickets: tickets}, nil
	case domain.RoleUser:
		own := caller.ID
		tickets, err := s.list(ctx, &own)
		if err != nil {
			return nil, err
		}
		return &TicketListing{Tickets: tickets}, nil
	}
	return nil, apperrors.NewForbidden("unknown role")
}

// SearchOwners lets support look up users to browse tickets for.
func (s *TicketService) SearchOwners(ctx context.Context, caller domain.Account, term string) ([]domain.Account, error) {
	if caller.Role != domain.RoleSupport {
		return nil, apperrors.NewForbidden("only support can search ticket owners")
	}
	dir, err := DirectoryFor(caller.Role, s.accounts, s.searchLimit)
	if err != nil {
		return nil, apperrors.NewForbidden("unknown role")
	}
	users, err := dir.Search(ctx, caller, term)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListStatuses returns the seeded statuses.
func (s *TicketService) ListStatuses(ctx context.Context) ([]domain.TicketStatus, error) {
	statuses, err := s.statuses.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return statuses, nil
}

func (s *TicketService) ticket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) list(ctx context.Context, userID *int64) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// startOfDay truncates t to midnight of its own calendar date.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dateBefore compares calendar dates, each read in its own location.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
