package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const ticketNumberConstraint = "tickets_ticket_number_key"

// TicketFilter captures listing parameters.
type TicketFilter struct {
	UserID *int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts the ticket; ErrTicketNumberTaken signals a number collision.
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	NumberExists(ctx context.Context, number int) (bool, error)
	// LowestFreeNumber returns the smallest unused number in [1, ceiling].
	LowestFreeNumber(ctx context.Context, ceiling int) (int, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.ticket_number, t.user_id, t.description, t.error_text, t.error_at,
               t.processing_deadline, t.status_id, t.created_at, t.updated_at,
               s.id, s.code, s.name
        FROM tickets t
        JOIN ticket_statuses s ON s.id = t.status_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, user_id, description, error_text, error_at, processing_deadline, status_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.UserID,
		ticket.Description,
		ticket.ErrorText,
		ticket.ErrorAt,
		ticket.ProcessingDeadline,
		ticket.StatusID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isUniqueViolation(err, ticketNumberConstraint) {
		return ErrTicketNumberTaken
	}
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET processing_deadline=$1, status_id=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ProcessingDeadline,
		ticket.StatusID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
}

func (r *ticketRepository) NumberExists(ctx context.Context, number int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_number=$1)`, number).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) LowestFreeNumber(ctx context.Context, ceiling int) (int, error) {
	const query = `
        SELECT n FROM generate_series(1, $1::int) AS n
        WHERE NOT EXISTS (SELECT 1 FROM tickets WHERE ticket_number = n)
        ORDER BY n LIMIT 1`
	var number int
	err := r.pool.QueryRow(ctx, query, ceiling).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoFreeTicketNumber
	}
	return number, err
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at ASC, t.id ASC`, ticketSelect, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var status domain.TicketStatus
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.UserID,
		&ticket.Description,
		&ticket.ErrorText,
		&ticket.ErrorAt,
		&ticket.ProcessingDeadline,
		&ticket.StatusID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&status.ID,
		&status.Code,
		&status.Name,
	); err != nil {
		return nil, err
	}
	ticket.Status = &status
	return &ticket, nil
}
