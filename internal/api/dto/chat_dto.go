package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Sender labels shown on thread messages.
const (
	LabelSelf    = "Me"
	LabelUser    = "User"
	LabelSupport = "Support"
)

// AccountResponse is a counterpart as listed in directories and search.
type AccountResponse struct {
	ID             int64       `json:"id"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	HasNewMessages *bool       `json:"hasNewMessages,omitempty"`
	UnreadCount    *int        `json:"unreadCount,omitempty"`
}

// MessageResponse is one thread entry.
type MessageResponse struct {
	ID            int64     `json:"id"`
	SenderLabel   string    `json:"senderLabel"`
	Body          string    `json:"body"`
	AttachmentURL *string   `json:"attachmentUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ChatResponse is the chat page state.
type ChatResponse struct {
	Counterparts []AccountResponse `json:"counterparts"`
	Current      *AccountResponse  `json:"current,omitempty"`
	Prev         *AccountResponse  `json:"prev,omitempty"`
	Next         *AccountResponse  `json:"next,omitempty"`
	Messages     []MessageResponse `json:"messages"`
}

// ThreadResponse is a single opened thread.
type ThreadResponse struct {
	Counterpart AccountResponse   `json:"counterpart"`
	Messages    []MessageResponse `json:"messages"`
}

// Account maps a domain account.
func Account(a domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      a.Role,
	}
}

// Accounts maps a list of accounts.
func Accounts(list []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, Account(a))
	}
	return out
}

// CounterpartEntries maps search hits, keeping unread annotations when present.
func CounterpartEntries(entries []service.CounterpartEntry) []AccountResponse {
	out := make([]AccountResponse, 0, len(entries))
	for _, entry := range entries {
		resp := Account(entry.Account)
		if entry.Unread != nil {
			has, count := entry.Unread.HasNewMessages, entry.Unread.Count
			resp.HasNewMessages = &has
			resp.UnreadCount = &count
		}
		out = append(out, resp)
	}
	return out
}

// SenderLabel names the author of msg as seen by viewerID.
func SenderLabel(msg domain.Message, viewerID int64, counterpart domain.Account) string {
	if sender, ok := msg.SenderID(); ok && sender == viewerID {
		return LabelSelf
	}
	if !msg.FromParticipantA {
		return LabelSupport
	}
	if counterpart.ID == msg.ParticipantA && counterpart.FirstName != "" {
		return counterpart.FirstName
	}
	return LabelUser
}

// Messages maps thread messages; resolve turns attachment references into URLs.
func Messages(msgs []domain.Message, viewerID int64, counterpart domain.Account, resolve func(string) string) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		resp := MessageResponse{
			ID:          msg.ID,
			SenderLabel: SenderLabel(msg, viewerID, counterpart),
			Body:        msg.Body,
			CreatedAt:   msg.CreatedAt,
		}
		if msg.Attachment != nil && resolve != nil {
			url := resolve(*msg.Attachment)
			resp.AttachmentURL = &url
		}
		out = append(out, resp)
	}
	return out
}

// Chat maps an opened chat view.
func Chat(view *service.ChatView, viewerID int64, resolve func(string) string) ChatResponse {
	resp := ChatResponse{
		Counterparts: Accounts(view.Counterparts),
		Messages:     []MessageResponse{},
	}
	if view.Cursor == nil {
		return resp
	}
	current := Account(view.Cursor.Current)
	prevAccount, nextAccount := view.Cursor.Neighbours(view.Counterparts)
	prev, next := Account(prevAccount), Account(nextAccount)
	resp.Current, resp.Prev, resp.Next = &current, &prev, &next
	resp.Messages = Messages(view.Messages, viewerID, view.Cursor.Current, resolve)
	return resp
}
