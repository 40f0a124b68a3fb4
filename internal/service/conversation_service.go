package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const messagePreviewLength = 80

// ConversationService resolves counterparts and threads for the chat.
type ConversationService struct {
	accounts    repository.AccountRepository
	messages    repository.MessageRepository
	attachments storage.AttachmentStore
	unread      *UnreadTracker
	dispatcher  events.Dispatcher
	searchLimit int
	now         func() time.Time
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	AccountRepo repository.AccountRepository
	MessageRepo repository.MessageRepository
	Attachments storage.AttachmentStore
	Unread      *UnreadTracker
	Dispatcher  events.Dispatcher
	SearchLimit int
	Clock       func() time.Time
}

// ChatView is the state of the chat page for one caller.
type ChatView struct {
	Counterparts []domain.Account
	// Cursor is nil when the caller has no counterparts.
	Cursor   *Cursor
	Messages []domain.Message
}

// ThreadView is one opened thread.
type ThreadView struct {
	Counterpart domain.Account
	Messages    []domain.Message
}

// CounterpartEntry is a search hit; Unread is only set for support callers.
type CounterpartEntry struct {
	Account domain.Account
	Unread  *UnreadState
}

// PostMessageInput describes an outgoing message.
type PostMessageInput struct {
	RecipientID *int64
	Body        string
	Attachment  []byte
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	limit := deps.SearchLimit
	if limit <= 0 {
		limit = 10
	}
	return &ConversationService{
		accounts:    deps.AccountRepo,
		messages:    deps.MessageRepo,
		attachments: deps.Attachments,
		unread:      deps.Unread,
		dispatcher:  deps.Dispatcher,
		searchLimit: limit,
		now:         clock,
	}
}

// GetThread returns every message exchanged between idA and idB, oldest
// first. The result does not depend on argument order.
func (s *ConversationService) GetThread(ctx context.Context, idA, idB int64) ([]domain.Message, error) {
	msgs, err := s.messages.ListThread(ctx, domain.NewThread(idA, idB))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// OpenChat lists the caller's counterparts, selects the requested one (or the
// first), loads the thread and records the view.
func (s *ConversationService) OpenChat(ctx context.Context, caller Caller, requestedID *int64) (*ChatView, error) {
	dir, err := s.directory(caller.Role())
	if err != nil {
		return nil, err
	}
	list, err := dir.List(ctx, caller.Account)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	view := &ChatView{Counterparts: list, Messages: []domain.Message{}}
	cursor, err := ResolveCursor(list, requestedID)
	if errors.Is(err, ErrNoCounterparts) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	view.Cursor = &cursor

	view.Messages, err = s.GetThread(ctx, caller.ID(), cursor.Current.ID)
	if err != nil {
		return nil, err
	}
	if err := s.recordView(ctx, caller, cursor.Current.ID); err != nil {
		return nil, err
	}
	return view, nil
}

// ViewThread opens the thread with one counterpart and records the view.
func (s *ConversationService) ViewThread(ctx context.Context, caller Caller, counterpartID int64) (*ThreadView, error) {
	counterpart, err := s.counterpart(ctx, caller, counterpartID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.GetThread(ctx, caller.ID(), counterpart.ID)
	if err != nil {
		return nil, err
	}
	if err := s.recordView(ctx, caller, counterpart.ID); err != nil {
		return nil, err
	}
	return &ThreadView{Counterpart: *counterpart, Messages: msgs}, nil
}

// SearchCounterparts searches the caller's directory. Support callers get
// each hit annotated with unread state; other roles do not.
func (s *ConversationService) SearchCounterparts(ctx context.Context, caller Caller, term string) ([]CounterpartEntry, error) {
	dir, err := s.directory(caller.Role())
	if err != nil {
		return nil, err
	}
	hits, err := dir.Search(ctx, caller.Account, term)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	entries := make([]CounterpartEntry, 0, len(hits))
	for _, hit := range hits {
		entry := CounterpartEntry{Account: hit}
		if caller.Role() == domain.RoleSupport && s.unread != nil {
			state, err := s.unread.State(ctx, caller.SessionID, caller.ID(), hit.ID, now)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			entry.Unread = &state
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PostMessage validates and stores a message from caller. Users are always
// routed to their assigned support agent; support and admin must name a
// recipient they may converse with.
func (s *ConversationService) PostMessage(ctx context.Context, caller Caller, input PostMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("message body is required", map[string]any{"field": "content"})
	}

	recipientID, err := s.resolveRecipient(ctx, caller, input.RecipientID)
	if err != nil {
		return nil, err
	}
	routing, err := domain.RouteMessage(caller.Role(), caller.ID(), recipientID)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	var attachment *string
	if len(input.Attachment) > 0 {
		if s.attachments == nil {
			return nil, apperrors.NewValidationError("attachments are not accepted", nil)
		}
		ref, err := s.attachments.Store(ctx, input.Attachment)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		attachment = &ref
	}

	// Stamped with the same clock as the unread watermark.
	msg := &domain.Message{
		ParticipantA:     routing.ParticipantA,
		ParticipantB:     routing.ParticipantB,
		Body:             input.Body,
		Attachment:       attachment,
		FromParticipantA: routing.FromParticipantA,
		CreatedAt:        s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		if attachment != nil {
			_ = s.attachments.Remove(ctx, *attachment)
		}
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventMessagePosted,
		SubjectID: msg.ID,
		Actor:     events.ActorOf(caller.Account),
		Payload: events.MessagePostedPayload{
			RecipientID:   recipientID,
			HasAttachment: attachment != nil,
			BodyPreview:   stringPreview(strings.TrimSpace(input.Body), messagePreviewLength),
		},
	})
	return msg, nil
}

func (s *ConversationService) resolveRecipient(ctx context.Context, caller Caller, requested *int64) (*int64, error) {
	switch caller.Role() {
	case domain.RoleUser:
		support, err := assignedSupport(ctx, s.accounts, caller.Account)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if support == nil {
			return nil, nil
		}
		id := support.ID
		return &id, nil
	case domain.RoleSupport, domain.RoleAdmin:
		if requested == nil {
			return nil, apperrors.NewValidationError("recipient_id is required", map[string]any{"field": "recipient_id"})
		}
		recipient, err := s.accounts.GetByID(ctx, *requested)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recipient", map[string]any{"id": *requested})
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !CanConverse(caller.Role(), recipient.Role) {
			return nil, apperrors.NewValidationError("recipient cannot receive messages from this role", map[string]any{
				"recipient_role": recipient.Role,
			})
		}
		id := recipient.ID
		return &id, nil
	}
	return nil, apperrors.NewForbidden("unknown role")
}

// counterpart loads counterpartID and checks the caller may talk to it.
func (s *ConversationService) counterpart(ctx context.Context, caller Caller, counterpartID int64) (*domain.Account, error) {
	if counterpartID == caller.ID() {
		return nil, apperrors.NewValidationError("cannot open a conversation with yourself", nil)
	}
	account, err := s.accounts.GetByID(ctx, counterpartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("counterpart", map[string]any{"id": counterpartID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !CanConverse(caller.Role(), account.Role) {
		return nil, apperrors.NewForbidden("not a counterpart of the caller")
	}
	return account, nil
}

func (s *ConversationService) directory(role domain.Role) (CounterpartDirectory, error) {
	dir, err := DirectoryFor(role, s.accounts, s.searchLimit)
	if err != nil {
		return nil, apperrors.NewForbidden("unknown role")
	}
	return dir, nil
}

func (s *ConversationService) recordView(ctx context.Context, caller Caller, counterpartID int64) error {
	if s.unread == nil {
		return nil
	}
	if err := s.unread.RecordView(ctx, caller.SessionID, caller.ID(), counterpartID, s.now()); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
