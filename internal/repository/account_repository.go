package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Role       *domain.Role
	SearchTerm string
	ExcludeID  *int64
	Limit      int
}

// AccountRepository defines persistence access for accounts of every role.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// FirstByRole returns the earliest created account with the role.
	FirstByRole(ctx context.Context, role domain.Role) (*domain.Account, error)
	// List returns accounts ordered by first name, ties broken by id.
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
	// UpdateProfile writes names, email and password hash of account.
	UpdateProfile(ctx context.Context, account *domain.Account) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, first_name, last_name, email, password_hash, role, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (first_name, last_name, email, password_hash, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.FirstName,
		account.LastName,
		account.Email,
		account.PasswordHash,
		account.Role,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err, "") {
		return ErrEmailTaken
	}
	return err
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email)=LOWER($1)`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *accountRepository) FirstByRole(ctx context.Context, role domain.Role) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role=$1 ORDER BY created_at ASC, id ASC LIMIT 1`
	return scanAccount(r.pool.QueryRow(ctx, query, role))
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.ExcludeID != nil {
		args = append(args, *filter.ExcludeID)
		clauses = append(clauses, fmt.Sprintf("id<>$%d", len(args)))
	}
	if strings.TrimSpace(filter.SearchTerm) != "" {
		args = append(args, likePattern(filter.SearchTerm))
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(email) LIKE %[1]s OR LOWER(first_name) LIKE %[1]s OR LOWER(last_name) LIKE %[1]s OR LOWER(first_name || ' ' || last_name) LIKE %[1]s)", p))
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY first_name ASC, id ASC`,
		accountColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *accountRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET role=$1, updated_at=NOW() WHERE id=$2`, role, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) UpdateProfile(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts
        SET first_name=$1, last_name=$2, email=$3, password_hash=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.FirstName,
		account.LastName,
		account.Email,
		account.PasswordHash,
		account.ID,
	).Scan(&account.UpdatedAt)
	if isUniqueViolation(err, "") {
		return ErrEmailTaken
	}
	return err
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.FirstName,
		&account.LastName,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
