package service

import (
	"errors"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrNoCounterparts is returned when a cursor is requested over an empty list.
var ErrNoCounterparts = errors.New("no counterparts")

// Cursor is a cyclic position within an ordered counterpart list.
type Cursor struct {
	Current domain.Account
	Index   int
	Prev    int
	Next    int
}

// ResolveCursor selects the requested counterpart, or the first one when the
// request is absent or unknown, and computes its cyclic neighbours.
func ResolveCursor(list []domain.Account, requestedID *int64) (Cursor, error) {
	n := len(list)
	if n == 0 {
		return Cursor{}, ErrNoCounterparts
	}

	index := 0
	if requestedID != nil {
		for i, account := range list {
			if account.ID == *requestedID {
				index = i
				break
			}
		}
	}

	return Cursor{
		Current: list[index],
		Index:   index,
		Prev:    (index - 1 + n) % n,
		Next:    (index + 1) % n,
	}, nil
}

// Neighbours returns the accounts at the cursor's prev and next positions.
func (c Cursor) Neighbours(list []domain.Account) (prev, next domain.Account) {
	return list[c.Prev], list[c.Next]
}
