package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a customer has no live session
var ErrNotFound = errors.New("session not found")

// State is a position in the conversation flow
type State string

const (
	StateIdle                    State = "idle"
	StateMenu                    State = "menu"
	StateAwaitingOnlineDetails   State = "awaiting_online_details"
	StateAwaitingAssistedDetails State = "awaiting_assisted_details"
	StateAwaitingQuote           State = "awaiting_quote"
	StateAwaitingPayment         State = "awaiting_payment"
	StateAgent                   State = "agent"
)

// Known reports whether s is one of the defined states
func (s State) Known() bool {
	switch s {
	case StateIdle, StateMenu, StateAwaitingOnlineDetails, StateAwaitingAssistedDetails,
		StateAwaitingQuote, StateAwaitingPayment, StateAgent:
		return true
	}
	return false
}

// Session is the conversation state of one customer
type Session struct {
	Phone     string    `json:"phone"`
	State     State     `json:"state"`
	OrderType string    `json:"order_type,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an idle session for phone
func New(phone string) *Session {
	return &Session{Phone: phone, State: StateIdle}
}

// Store persists sessions
type Store interface {
	Get(ctx context.Context, phone string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, phone string) error
	// MarkSeen records a message ID and reports whether it was new
	MarkSeen(ctx context.Context, messageID string) (bool, error)
}
