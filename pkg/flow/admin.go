package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
)

// SendQuote prices an order from the goods value an agent found, writes
// the quote and sends it to the customer, whose session then waits for
// YES or NO.
func (s *Service) SendQuote(ctx context.Context, orderID string, goodsValue int64) (pricing.Quote, error) {
	if goodsValue <= 0 {
		return pricing.Quote{}, pricing.ErrInvalidAmount
	}
	order, err := s.ledger.FindOrder(ctx, orderID)
	if err != nil {
		return pricing.Quote{}, err
	}
	unlock := s.phones.Lock(order.Phone)
	defer unlock()

	quote := pricing.NewQuote(goodsValue, order.Type, order.DeliveryTown)
	if err := s.applyQuote(ctx, order.ID, quote); err != nil {
		return pricing.Quote{}, err
	}

	sess, err := s.loadSession(ctx, order.Phone)
	if err != nil {
		return quote, err
	}
	sess.State = session.StateAwaitingQuote
	sess.OrderID = order.ID
	sess.OrderType = order.Type
	if err := s.sessions.Save(ctx, sess); err != nil {
		return quote, fmt.Errorf("failed to save session: %w", err)
	}

	body := s.messages.Render("quote", map[string]interface{}{"Quote": quote, "OrderID": order.ID})
	return quote, s.send(ctx, order.Phone, body)
}

// SetOrderStatus changes an order's ledger status and mirrors it
func (s *Service) SetOrderStatus(ctx context.Context, orderID, status string) (*sheets.Order, error) {
	order, err := s.ledger.SetOrderStatus(ctx, orderID, status)
	if err != nil {
		audit.Log(audit.OrderEvent{OrderID: orderID, Operation: "updated", Status: status, Error: err.Error()})
		return nil, err
	}
	audit.Log(audit.OrderEvent{
		OrderID: order.ID, Phone: order.Phone, Operation: "updated", Status: order.Status, Success: true,
	})
	s.mirrorStatus(ctx, order.ID, order.Status)
	return order, nil
}

// SendAgentMessage sends an agent's text to a customer and notes it on the
// customer's open order
func (s *Service) SendAgentMessage(ctx context.Context, to, body string) error {
	to = strings.TrimSpace(to)
	body = strings.TrimSpace(body)
	if to == "" || body == "" {
		return errors.New("recipient and body are required")
	}
	if err := s.send(ctx, to, s.messages.Render("agent_reply", map[string]interface{}{"Body": body})); err != nil {
		return err
	}
	_, err := s.ledger.LatestActiveOrder(ctx, to)
	noOrder := errors.Is(err, sheets.ErrNoActiveOrder)
	if err != nil && !noOrder {
		return err
	}
	// without an open order the note must not start one
	_, err = s.saveInteraction(ctx, sheets.Interaction{
		Type:        InteractionAgentReply,
		Phone:       to,
		Message:     "Agent: " + body,
		ProfileOnly: noOrder,
	})
	return err
}

func (s *Service) loadSession(ctx context.Context, phone string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, phone)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(phone), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}
