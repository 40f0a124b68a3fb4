package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MessageRepository manages conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListThread returns every message of the thread, oldest first.
	ListThread(ctx context.Context, thread domain.Thread) ([]domain.Message, error)
	// CountFromSince counts messages written by sender to recipient after since.
	CountFromSince(ctx context.Context, senderID, recipientID int64, since time.Time) (int, error)
	// ExistsFromSince reports whether sender wrote to recipient after since.
	ExistsFromSince(ctx context.Context, senderID, recipientID int64, since time.Time) (bool, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

// Rows where sender occupies the column FromParticipantA points at.
const fromSenderToRecipient = `
        ((participant_a=$1 AND participant_b=$2 AND from_participant_a)
          OR (participant_a=$2 AND participant_b=$1 AND NOT from_participant_a))
        AND created_at > $3`

// Create inserts msg with its caller-assigned CreatedAt so unread watermarks
// and message timestamps come from the same clock.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (participant_a, participant_b, body, attachment, from_participant_a, is_read, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return r.pool.QueryRow(ctx, query,
		msg.ParticipantA,
		msg.ParticipantB,
		msg.Body,
		msg.Attachment,
		msg.FromParticipantA,
		msg.IsRead,
		msg.CreatedAt,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListThread(ctx context.Context, thread domain.Thread) ([]domain.Message, error) {
	const query = `
        SELECT id, participant_a, participant_b, body, attachment, from_participant_a, is_read, created_at
        FROM messages
        WHERE (participant_a=$1 AND participant_b=$2) OR (participant_a=$2 AND participant_b=$1)
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, thread.PartyX, thread.PartyY)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) CountFromSince(ctx context.Context, senderID, recipientID int64, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE`+fromSenderToRecipient,
		senderID, recipientID, since).Scan(&count)
	return count, err
}

func (r *messageRepository) ExistsFromSince(ctx context.Context, senderID, recipientID int64, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM messages WHERE`+fromSenderToRecipient+`)`,
		senderID, recipientID, since).Scan(&exists)
	return exists, err
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	result := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ParticipantA,
			&msg.ParticipantB,
			&msg.Body,
			&msg.Attachment,
			&msg.FromParticipantA,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
