package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

// Caller is an authenticated account acting within a login session.
type Caller struct {
	Account   domain.Account
	SessionID string
}

// ID is the caller's account id.
func (c Caller) ID() int64 {
	return c.Account.ID
}

// Role is the caller's account role.
func (c Caller) Role() domain.Role {
	return c.Account.Role
}

// publishEvent hands event to the dispatcher. Delivery failures never fail
// the operation that emitted the event.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	return string(runes[:max]) + "..."
}
