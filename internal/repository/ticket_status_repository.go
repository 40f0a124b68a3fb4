package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketStatusRepository reads the seeded ticket statuses.
type TicketStatusRepository interface {
	List(ctx context.Context) ([]domain.TicketStatus, error)
	GetByID(ctx context.Context, id int64) (*domain.TicketStatus, error)
	GetByCode(ctx context.Context, code domain.TicketStatusCode) (*domain.TicketStatus, error)
}

type ticketStatusRepository struct {
	pool *pgxpool.Pool
}

// NewTicketStatusRepository instantiates repository.
func NewTicketStatusRepository(pool *pgxpool.Pool) TicketStatusRepository {
	return &ticketStatusRepository{pool: pool}
}

func (r *ticketStatusRepository) List(ctx context.Context) ([]domain.TicketStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM ticket_statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketStatus{}
	for rows.Next() {
		var status domain.TicketStatus
		if err := rows.Scan(&status.ID, &status.Code, &status.Name); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *ticketStatusRepository) GetByID(ctx context.Context, id int64) (*domain.TicketStatus, error) {
	var status domain.TicketStatus
	err := r.pool.QueryRow(ctx, `SELECT id, code, name FROM ticket_statuses WHERE id=$1`, id).
		Scan(&status.ID, &status.Code, &status.Name)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *ticketStatusRepository) GetByCode(ctx context.Context, code domain.TicketStatusCode) (*domain.TicketStatus, error) {
	var status domain.TicketStatus
	err := r.pool.QueryRow(ctx, `SELECT id, code, name FROM ticket_statuses WHERE code=$1`, code).
		Scan(&status.ID, &status.Code, &status.Name)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
