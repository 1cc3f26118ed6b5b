package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/lock"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/messages"
	"github.com/munashe04/buyza/pkg/metrics"
	"github.com/munashe04/buyza/pkg/server/store"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

// Ledger is the part of the spreadsheet ledger the flow uses
type Ledger interface {
	SaveInteraction(ctx context.Context, in sheets.Interaction) (sheets.Result, error)
	CustomerOrders(ctx context.Context, phone string) ([]sheets.Order, error)
	LatestActiveOrder(ctx context.Context, phone string) (*sheets.Order, error)
	FindOrder(ctx context.Context, id string) (*sheets.Order, error)
	SetQuote(ctx context.Context, id, amount string) (*sheets.Order, error)
	SetOrderStatus(ctx context.Context, id, status string) (*sheets.Order, error)
}

// Ensure the spreadsheet ledger satisfies Ledger
var _ Ledger = (*sheets.Ledger)(nil)

// Config wires a Service
type Config struct {
	Ledger   Ledger
	Sessions session.Store
	Messages *messages.Catalog
	Sender   whatsapp.Sender
	// Orders mirrors ledger orders to PostgreSQL when set
	Orders store.OrderStore
}

// Service runs the conversation flow
type Service struct {
	ledger   Ledger
	sessions session.Store
	messages *messages.Catalog
	sender   whatsapp.Sender
	orders   store.OrderStore
	// phones serialises session updates per customer
	phones *lock.Keyed
}

// NewService creates a Service. A nil session store defaults to an
// in-memory store without expiry and a nil catalog to the built-in replies.
func NewService(cfg Config) *Service {
	s := &Service{
		ledger:   cfg.Ledger,
		sessions: cfg.Sessions,
		messages: cfg.Messages,
		sender:   cfg.Sender,
		orders:   cfg.Orders,
		phones:   lock.NewKeyed(),
	}
	if s.sessions == nil {
		s.sessions = session.NewMemoryStore(0)
	}
	if s.messages == nil {
		s.messages = messages.Default()
	}
	return s
}

// Ledger returns the ledger the service records to
func (s *Service) Ledger() Ledger {
	return s.ledger
}

// HandleIncoming processes every message of a webhook payload
func (s *Service) HandleIncoming(ctx context.Context, payload *whatsapp.WebhookPayload) error {
	var errs []error
	for _, msg := range payload.InboundMessages() {
		if err := s.handleMessage(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("message %s from %s: %w", msg.ID, msg.From, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) handleMessage(ctx context.Context, msg whatsapp.InboundMessage) error {
	logger := log.FromContext(ctx).With().
		Str("component", "flow").
		Str("phone", msg.From).
		Str("message_id", msg.ID).
		Logger()

	if msg.ID != "" {
		fresh, err := s.sessions.MarkSeen(ctx, msg.ID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("duplicate check failed, handling message anyway")
		case !fresh:
			metrics.IncDuplicateMessage()
			logger.Debug().Msg("ignoring duplicate message")
			return nil
		}
	}

	unlock := s.phones.Lock(msg.From)
	defer unlock()

	sess, err := s.loadSession(ctx, msg.From)
	if err != nil {
		return err
	}
	if !sess.State.Known() {
		sess.State = session.StateIdle
	}
	from := sess.State
	metrics.IncInboundMessage(string(from))

	t := newTurn(msg, sess)
	err = s.transition(ctx, t)
	if err != nil {
		// the stored session keeps its previous state
		logger.Error().Err(err).Str("state", string(from)).Msg("failed to handle message")
		t.sess.State = from
		t.replies = []string{s.messages.Render("temporary_error", nil)}
	} else if saveErr := s.sessions.Save(ctx, t.sess); saveErr != nil {
		err = fmt.Errorf("failed to save session: %w", saveErr)
	}

	if sendErr := s.send(ctx, msg.From, t.replies...); sendErr != nil {
		err = errors.Join(err, sendErr)
	}

	event := audit.MessageEvent{
		Phone:       msg.From,
		WAMessageID: msg.ID,
		FromState:   string(from),
		ToState:     string(t.sess.State),
		OrderID:     t.sess.OrderID,
		Success:     err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	}
	audit.Log(event)

	logger.Info().
		Str("from", string(from)).
		Str("to", string(t.sess.State)).
		Int("replies", len(t.replies)).
		Msg("handled message")
	return err
}

func (s *Service) send(ctx context.Context, to string, bodies ...string) error {
	var errs []error
	for _, body := range bodies {
		if strings.TrimSpace(body) == "" {
			continue
		}
		_, err := s.sender.SendText(ctx, to, body)
		metrics.IncOutboundMessage(err)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to send reply: %w", err))
		}
	}
	return errors.Join(errs...)
}

// turn is one inbound message being handled
type turn struct {
	msg     whatsapp.InboundMessage
	text    string
	lower   string
	sess    *session.Session
	replies []string
}

func newTurn(msg whatsapp.InboundMessage, sess *session.Session) *turn {
	text := normalize(msg.Text)
	return &turn{
		msg:   msg,
		text:  text,
		lower: strings.ToLower(text),
		sess:  sess,
	}
}

func (s *Service) reply(t *turn, key string, data interface{}) {
	t.replies = append(t.replies, s.messages.Render(key, data))
}

// keycap digits arrive as digit + U+FE0F + U+20E3
var keycapReplacer = strings.NewReplacer("\ufe0f", "", "\u20e3", "")

func normalize(text string) string {
	return strings.TrimSpace(keycapReplacer.Replace(text))
}

func isAny(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
