package domain

import (
	"errors"
	"time"
)

var (
	ErrRecipientRequired = errors.New("recipient required")
	ErrUnknownRole       = errors.New("unknown role")
)

// Message is one row of a conversation. ParticipantA/ParticipantB carry
// role-dependent meaning: for user<->support A is the user and B the support
// agent; for admin<->support A is the admin and B the support agent.
// FromParticipantA tells which side wrote the message.
type Message struct {
	ID               int64
	ParticipantA     int64
	ParticipantB     *int64
	Body             string
	Attachment       *string
	FromParticipantA bool
	IsRead           bool
	CreatedAt        time.Time
}

// SenderID returns the author of the message.
func (m Message) SenderID() (int64, bool) {
	if m.FromParticipantA {
		return m.ParticipantA, true
	}
	if m.ParticipantB == nil {
		return 0, false
	}
	return *m.ParticipantB, true
}

// RecipientID returns the addressee of the message, if any.
func (m Message) RecipientID() (int64, bool) {
	if !m.FromParticipantA {
		return m.ParticipantA, true
	}
	if m.ParticipantB == nil {
		return 0, false
	}
	return *m.ParticipantB, true
}

// Thread is the unordered pair of identities exchanging messages.
type Thread struct {
	PartyX int64
	PartyY int64
}

// NewThread builds the thread between x and y.
func NewThread(x, y int64) Thread {
	return Thread{PartyX: x, PartyY: y}
}

// Includes reports whether id is one of the parties.
func (t Thread) Includes(id int64) bool {
	return t.PartyX == id || t.PartyY == id
}

// Contains reports whether m belongs to the thread: (A,B) is (X,Y) or (Y,X).
func (t Thread) Contains(m Message) bool {
	if m.ParticipantB == nil {
		return false
	}
	a, b := m.ParticipantA, *m.ParticipantB
	return (a == t.PartyX && b == t.PartyY) || (a == t.PartyY && b == t.PartyX)
}

// Routing is the storage placement of an outgoing message.
type Routing struct {
	ParticipantA     int64
	ParticipantB     *int64
	FromParticipantA bool
}

// RouteMessage maps a sender and recipient onto the message columns.
// This is the only place that knows which role occupies which column.
// A user without an assigned support agent routes with a nil recipient.
func RouteMessage(senderRole Role, senderID int64, recipientID *int64) (Routing, error) {
	switch senderRole {
	case RoleSupport:
		if recipientID == nil {
			return Routing{}, ErrRecipientRequired
		}
		sender := senderID
		return Routing{ParticipantA: *recipientID, ParticipantB: &sender, FromParticipantA: false}, nil
	case RoleAdmin:
		if recipientID == nil {
			return Routing{}, ErrRecipientRequired
		}
		recipient := *recipientID
		return Routing{ParticipantA: senderID, ParticipantB: &recipient, FromParticipantA: true}, nil
	case RoleUser:
		var recipient *int64
		if recipientID != nil {
			id := *recipientID
			recipient = &id
		}
		return Routing{ParticipantA: senderID, ParticipantB: recipient, FromParticipantA: true}, nil
	default:
		return Routing{}, ErrUnknownRole
	}
}
