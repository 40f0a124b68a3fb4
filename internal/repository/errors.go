package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var (
	// ErrEmailTaken is returned when an account email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrTicketNumberTaken is returned when a concurrent insert claimed the same ticket number.
	ErrTicketNumberTaken = errors.New("ticket number already taken")
	// ErrNoFreeTicketNumber is returned when every number up to the ceiling is in use.
	ErrNoFreeTicketNumber = errors.New("no free ticket number")
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// likePattern builds a case-insensitive substring pattern with LIKE wildcards escaped.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
