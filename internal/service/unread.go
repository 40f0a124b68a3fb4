package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UnreadTracker keeps a per-session "last viewed" watermark for each
// counterpart and counts messages that arrived after it. Watermarks live
// only as long as the session.
type UnreadTracker struct {
	sessions session.Store
	messages repository.MessageRepository
	window   time.Duration
}

// UnreadState annotates a counterpart with messages newer than the watermark.
type UnreadState struct {
	HasNewMessages bool
	Count          int
}

// NewUnreadTracker builds a tracker; window is the look-back used when a
// counterpart was never viewed in the session.
func NewUnreadTracker(sessions session.Store, messages repository.MessageRepository, window time.Duration) *UnreadTracker {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &UnreadTracker{sessions: sessions, messages: messages, window: window}
}

func watermarkKey(observerID, counterpartID int64) string {
	return fmt.Sprintf("last_view:%d:%d", observerID, counterpartID)
}

// RecordView moves the watermark for counterpartID to now.
func (t *UnreadTracker) RecordView(ctx context.Context, sessionID string, observerID, counterpartID int64, now time.Time) error {
	err := t.sessions.Set(ctx, sessionID, watermarkKey(observerID, counterpartID), now.UTC().Format(time.RFC3339Nano))
	if errors.Is(err, session.ErrSessionNotFound) {
		return apperrors.NewUnauthorized("session expired")
	}
	return err
}

// Watermark returns the last view time, defaulting to now minus the window.
func (t *UnreadTracker) Watermark(ctx context.Context, sessionID string, observerID, counterpartID int64, now time.Time) (time.Time, error) {
	fallback := now.Add(-t.window)
	raw, ok, err := t.sessions.Get(ctx, sessionID, watermarkKey(observerID, counterpartID))
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return fallback, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fallback, nil
	}
	return parsed, nil
}

// HasUnread reports whether counterpartID wrote to observerID after the watermark.
func (t *UnreadTracker) HasUnread(ctx context.Context, sessionID string, observerID, counterpartID int64, now time.Time) (bool, error) {
	since, err := t.Watermark(ctx, sessionID, observerID, counterpartID, now)
	if err != nil {
		return false, err
	}
	return t.messages.ExistsFromSince(ctx, counterpartID, observerID, since)
}

// UnreadCount counts messages counterpartID wrote to observerID after the watermark.
func (t *UnreadTracker) UnreadCount(ctx context.Context, sessionID string, observerID, counterpartID int64, now time.Time) (int, error) {
	since, err := t.Watermark(ctx, sessionID, observerID, counterpartID, now)
	if err != nil {
		return 0, err
	}
	return t.messages.CountFromSince(ctx, counterpartID, observerID, since)
}

// State computes both indicators against a single watermark read.
func (t *UnreadTracker) State(ctx context.Context, sessionID string, observerID, counterpartID int64, now time.Time) (UnreadState, error) {
	count, err := t.UnreadCount(ctx, sessionID, observerID, counterpartID, now)
	if err != nil {
		return UnreadState{}, err
	}
	return UnreadState{HasNewMessages: count > 0, Count: count}, nil
}
