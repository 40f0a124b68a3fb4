package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// CounterpartDirectory lists the accounts a caller may exchange messages
// and tickets with. One implementation exists per role.
type CounterpartDirectory interface {
	List(ctx context.Context, caller domain.Account) ([]domain.Account, error)
	Search(ctx context.Context, caller domain.Account, term string) ([]domain.Account, error)
}

// CounterpartRole is the role of the accounts role talks to.
func CounterpartRole(role domain.Role) (domain.Role, bool) {
	switch role {
	case domain.RoleSupport:
		return domain.RoleUser, true
	case domain.RoleAdmin, domain.RoleUser:
		return domain.RoleSupport, true
	}
	return "", false
}

// CanConverse reports whether role may message an account of counterpart.
// Support answers users and replies to the administrator; the administrator
// and users write to support.
func CanConverse(role, counterpart domain.Role) bool {
	switch role {
	case domain.RoleSupport:
		return counterpart == domain.RoleUser || counterpart == domain.RoleAdmin
	case domain.RoleAdmin, domain.RoleUser:
		return counterpart == domain.RoleSupport
	}
	return false
}

// DirectoryFor returns the directory strategy for role.
func DirectoryFor(role domain.Role, accounts repository.AccountRepository, searchLimit int) (CounterpartDirectory, error) {
	switch role {
	case domain.RoleSupport, domain.RoleAdmin:
		pool, _ := CounterpartRole(role)
		return &poolDirectory{accounts: accounts, pool: pool, limit: searchLimit}, nil
	case domain.RoleUser:
		return &assignedSupportDirectory{accounts: accounts}, nil
	}
	return nil, domain.ErrUnknownRole
}

// poolDirectory exposes every account of one role.
type poolDirectory struct {
	accounts repository.AccountRepository
	pool     domain.Role
	limit    int
}

func (d *poolDirectory) List(ctx context.Context, caller domain.Account) ([]domain.Account, error) {
	pool := d.pool
	return d.accounts.List(ctx, repository.AccountFilter{Role: &pool, ExcludeID: &caller.ID})
}

// Search matches term as a substring; an empty term yields the first page.
func (d *poolDirectory) Search(ctx context.Context, caller domain.Account, term string) ([]domain.Account, error) {
	pool := d.pool
	filter := repository.AccountFilter{Role: &pool, ExcludeID: &caller.ID}
	if strings.TrimSpace(term) == "" {
		filter.Limit = d.limit
	} else {
		filter.SearchTerm = term
	}
	return d.accounts.List(ctx, filter)
}

// assignedSupportDirectory gives a user the first-created support agent.
type assignedSupportDirectory struct {
	accounts repository.AccountRepository
}

func (d *assignedSupportDirectory) List(ctx context.Context, caller domain.Account) ([]domain.Account, error) {
	support, err := d.accounts.FirstByRole(ctx, domain.RoleSupport)
	if errors.Is(err, pgx.ErrNoRows) {
		return []domain.Account{}, nil
	}
	if err != nil {
		return nil, err
	}
	if support.ID == caller.ID {
		return []domain.Account{}, nil
	}
	return []domain.Account{*support}, nil
}

// Search ignores term: a user only ever has the assigned agent.
func (d *assignedSupportDirectory) Search(ctx context.Context, caller domain.Account, _ string) ([]domain.Account, error) {
	return d.List(ctx, caller)
}

// assignedSupport returns the agent a user's messages are routed to, or nil.
func assignedSupport(ctx context.Context, accounts repository.AccountRepository, caller domain.Account) (*domain.Account, error) {
	list, err := (&assignedSupportDirectory{accounts: accounts}).List(ctx, caller)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}
