package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AdminService manages role assignment.
type AdminService struct {
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
}

// NewAdminService builds the service.
func NewAdminService(accounts repository.AccountRepository, dispatcher events.Dispatcher) *AdminService {
	return &AdminService{accounts: accounts, dispatcher: dispatcher}
}

// ListAccounts returns every account but the caller, optionally filtered.
func (s *AdminService) ListAccounts(ctx context.Context, caller domain.Account, term string) ([]domain.Account, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	accounts, err := s.accounts.List(ctx, repository.AccountFilter{SearchTerm: term, ExcludeID: &caller.ID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return accounts, nil
}

// UpdateRole reassigns target's role. Existing messages are left as they are.
func (s *AdminService) UpdateRole(ctx context.Context, caller domain.Account, targetID int64, rawRole string) (*domain.Account, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": rawRole})
	}
	if targetID == caller.ID {
		return nil, apperrors.NewValidationError("administrators cannot change their own role", nil)
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("account", map[string]any{"id": targetID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if target.Role == role {
		return target, nil
	}

	old := target.Role
	if err := s.accounts.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.Role = role

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventAccountRoleChanged,
		SubjectID: target.ID,
		Actor:     events.ActorOf(caller),
		Payload:   events.AccountRoleChangedPayload{OldRole: old, NewRole: role},
	})
	return target, nil
}
