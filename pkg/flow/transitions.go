package flow

import (
	"context"
	"errors"
	"strings"

	"github.com/munashe04/buyza/pkg/payment"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
)

// Interaction types recorded in the ledger
const (
	InteractionGreeting            = "Greeting"
	InteractionAgentRequest        = "Agent Request"
	InteractionAgentChat           = "Agent Chat"
	InteractionAgentReply          = "Agent Reply"
	InteractionOnlineOrderStart    = "Online Order Start"
	InteractionOnlineOrderDetails  = "Online Order Details"
	InteractionAssistedOrderStart  = "Assisted Order Start"
	InteractionAssistedOrderDetail = "Assisted Order Details"
	InteractionQuoteAccept         = "Quote Accept"
	InteractionOrderCancel         = "Order Cancel"
	InteractionPayment             = "Payment Confirmation"
	InteractionFollowUp            = "Follow Up"
)

// Customer statuses written to the profile row
const (
	customerMenu            = "Menu"
	customerEscalated       = "Escalated"
	customerOnlineStarted   = "Online Order Started"
	customerAssistedStarted = "Assisted Order Started"
	customerQuoteAccepted   = "Quote Accepted"
	customerCancelled       = "Cancelled"
	customerPaymentSent     = "Payment Submitted"
)

var (
	menuWords     = []string{"menu", "0", "hi", "hello"}
	agentWords    = []string{"chat", "chat with assistant", "chat with agent", "agent"}
	onlineWords   = []string{"1", "online", "online order"}
	assistedWords = []string{"2", "assisted", "assisted order"}
	deliveryWords = []string{"3", "delivery"}
	faqWords      = []string{"4", "faq", "faqs"}
	yesWords      = []string{"yes", "y", "accept"}
	noWords       = []string{"no", "n", "cancel"}
)

func (s *Service) transition(ctx context.Context, t *turn) error {
	switch {
	case isAny(t.lower, menuWords...):
		return s.showMenu(ctx, t)
	case isAny(t.lower, agentWords...):
		return s.requestAgent(ctx, t)
	}

	if t.sess.State == session.StateAgent {
		if t.text == "" {
			return nil
		}
		_, err := s.record(ctx, t, sheets.Interaction{Type: InteractionAgentChat, Status: customerEscalated})
		return err
	}

	if t.text == "" {
		s.reply(t, "empty_message", nil)
		return nil
	}

	if t.lower == "track" || strings.HasPrefix(t.lower, "track ") {
		return s.track(ctx, t)
	}

	switch t.sess.State {
	case session.StateAwaitingOnlineDetails:
		return s.onlineDetails(ctx, t)
	case session.StateAwaitingAssistedDetails:
		return s.assistedDetails(ctx, t)
	case session.StateAwaitingQuote:
		return s.quoteReply(ctx, t)
	case session.StateAwaitingPayment:
		return s.paymentReply(ctx, t)
	}
	return s.menuChoice(ctx, t)
}

func (s *Service) showMenu(ctx context.Context, t *turn) error {
	if _, err := s.record(ctx, t, sheets.Interaction{
		Type:        InteractionGreeting,
		Status:      customerMenu,
		ProfileOnly: true,
	}); err != nil {
		return err
	}
	s.reply(t, "main_menu", nil)
	t.sess.State = session.StateMenu
	return nil
}

func (s *Service) requestAgent(ctx context.Context, t *turn) error {
	if _, err := s.record(ctx, t, sheets.Interaction{Type: InteractionAgentRequest, Status: customerEscalated}); err != nil {
		return err
	}
	s.reply(t, "agent_connecting", nil)
	t.sess.State = session.StateAgent
	return nil
}

func (s *Service) track(ctx context.Context, t *turn) error {
	id := strings.TrimSpace(t.text[len("track"):])
	if id == "" {
		s.reply(t, "track_usage", nil)
		return nil
	}
	order, err := s.ledger.FindOrder(ctx, id)
	if errors.Is(err, sheets.ErrOrderNotFound) {
		s.reply(t, "order_not_found", map[string]interface{}{"OrderID": id})
		return nil
	}
	if err != nil {
		return err
	}
	s.reply(t, "order_status", map[string]interface{}{
		"OrderID":       order.ID,
		"Status":        order.Status,
		"PaymentStatus": order.PaymentStatus,
	})
	return nil
}

func (s *Service) menuChoice(ctx context.Context, t *turn) error {
	switch {
	case isAny(t.lower, onlineWords...):
		return s.startOrder(ctx, t, InteractionOnlineOrderStart, customerOnlineStarted,
			sheets.OrderTypeOnline, "online_order_prompt", session.StateAwaitingOnlineDetails)
	case isAny(t.lower, assistedWords...):
		return s.startOrder(ctx, t, InteractionAssistedOrderStart, customerAssistedStarted,
			sheets.OrderTypeAssisted, "assisted_order_prompt", session.StateAwaitingAssistedDetails)
	case isAny(t.lower, deliveryWords...):
		s.reply(t, "delivery_info", map[string]interface{}{"Towns": pricing.Towns})
		return nil
	case isAny(t.lower, faqWords...):
		s.reply(t, "faqs", nil)
		return nil
	}

	if answer, ok := s.messages.FAQAnswer(t.text); ok {
		t.replies = append(t.replies, answer)
		return nil
	}

	if payment.IsConfirmation(t.text) {
		order, err := s.awaitingPaymentOrder(ctx, t)
		if err != nil {
			return err
		}
		if order != nil {
			return s.confirmPayment(ctx, t, order)
		}
		if !looksLikeOrder(t.lower) {
			s.reply(t, "no_pending_order", nil)
			return nil
		}
	}

	if looksLikeOrder(t.lower) {
		return s.onlineDetails(ctx, t)
	}

	if t.sess.State == session.StateMenu {
		s.reply(t, "unknown_option", nil)
	}
	s.reply(t, "main_menu", nil)
	t.sess.State = session.StateMenu
	return nil
}

func (s *Service) startOrder(ctx context.Context, t *turn, interaction, status, orderType, prompt string, next session.State) error {
	res, err := s.record(ctx, t, sheets.Interaction{Type: interaction, Status: status})
	if err != nil {
		return err
	}
	s.reply(t, prompt, nil)
	t.sess.State = next
	t.sess.OrderType = orderType
	t.sess.OrderID = res.OrderID
	return nil
}

func (s *Service) onlineDetails(ctx context.Context, t *turn) error {
	total, hasTotal := pricing.ExtractTotal(t.text)
	town, hasTown := pricing.ExtractTown(t.text)
	if !hasTotal || !hasTown {
		s.reply(t, "parse_failed", nil)
		t.sess.State = session.StateAwaitingOnlineDetails
		return nil
	}

	res, err := s.record(ctx, t, sheets.Interaction{Type: InteractionOnlineOrderDetails, Status: sheets.StatusDetailsProvided})
	if err != nil {
		return err
	}
	if res.OrderID == "" {
		// no open order to attach the details to
		res, err = s.record(ctx, t, sheets.Interaction{Type: InteractionOnlineOrderStart, Status: sheets.StatusDetailsProvided})
		if err != nil {
			return err
		}
	}

	quote := pricing.NewQuote(total, sheets.OrderTypeOnline, town)
	if err := s.applyQuote(ctx, res.OrderID, quote); err != nil {
		return err
	}

	s.reply(t, "quote", map[string]interface{}{"Quote": quote, "OrderID": res.OrderID})
	t.sess.State = session.StateAwaitingQuote
	t.sess.OrderType = sheets.OrderTypeOnline
	t.sess.OrderID = res.OrderID
	return nil
}

func (s *Service) assistedDetails(ctx context.Context, t *turn) error {
	res, err := s.record(ctx, t, sheets.Interaction{Type: InteractionAssistedOrderDetail, Status: sheets.StatusDetailsProvided})
	if err != nil {
		return err
	}
	if res.OrderID == "" {
		res, err = s.record(ctx, t, sheets.Interaction{Type: InteractionAssistedOrderStart, Status: sheets.StatusDetailsProvided})
		if err != nil {
			return err
		}
	}
	s.reply(t, "details_received", map[string]interface{}{"OrderID": res.OrderID})
	t.sess.State = session.StateAwaitingQuote
	t.sess.OrderType = sheets.OrderTypeAssisted
	t.sess.OrderID = res.OrderID
	return nil
}

func (s *Service) quoteReply(ctx context.Context, t *turn) error {
	switch {
	case isAny(t.lower, yesWords...):
		res, err := s.record(ctx, t, sheets.Interaction{Type: InteractionQuoteAccept, Status: customerQuoteAccepted})
		if err != nil {
			return err
		}
		s.reply(t, "payment_instructions", map[string]interface{}{"OrderID": orderRef(res, t)})
		t.sess.State = session.StateAwaitingPayment
	case isAny(t.lower, noWords...):
		res, err := s.record(ctx, t, sheets.Interaction{Type: InteractionOrderCancel, Status: customerCancelled})
		if err != nil {
			return err
		}
		s.reply(t, "order_cancelled", map[string]interface{}{"OrderID": orderRef(res, t)})
		t.sess.State = session.StateIdle
		t.sess.OrderType = ""
		t.sess.OrderID = ""
	default:
		if _, err := s.record(ctx, t, sheets.Interaction{Type: InteractionFollowUp}); err != nil {
			return err
		}
		s.reply(t, "quote_reminder", nil)
	}
	return nil
}

func (s *Service) paymentReply(ctx context.Context, t *turn) error {
	if !payment.IsConfirmation(t.text) {
		if _, err := s.record(ctx, t, sheets.Interaction{Type: InteractionFollowUp}); err != nil {
			return err
		}
		s.reply(t, "payment_reminder", map[string]interface{}{"OrderID": t.sess.OrderID})
		return nil
	}

	order, err := s.awaitingPaymentOrder(ctx, t)
	if err != nil {
		return err
	}
	if order == nil {
		s.reply(t, "no_pending_order", nil)
		t.sess.State = session.StateIdle
		t.sess.OrderID = ""
		return nil
	}
	return s.confirmPayment(ctx, t, order)
}

// awaitingPaymentOrder returns the customer's order in Awaiting Payment,
// preferring the one the session points at, then the newest, or nil
func (s *Service) awaitingPaymentOrder(ctx context.Context, t *turn) (*sheets.Order, error) {
	if t.sess.OrderID != "" {
		order, err := s.ledger.FindOrder(ctx, t.sess.OrderID)
		switch {
		case err == nil && order.Status == sheets.StatusAwaitingPayment:
			return order, nil
		case err != nil && !errors.Is(err, sheets.ErrOrderNotFound):
			return nil, err
		}
	}
	orders, err := s.ledger.CustomerOrders(ctx, t.msg.From)
	if err != nil {
		return nil, err
	}
	for i := len(orders) - 1; i >= 0; i-- {
		if orders[i].Status == sheets.StatusAwaitingPayment {
			return &orders[i], nil
		}
	}
	return nil, nil
}

func (s *Service) confirmPayment(ctx context.Context, t *turn, order *sheets.Order) error {
	message := t.text
	if ref := payment.Reference(t.text); ref != "" {
		message = "Payment ref: " + ref
	}
	if _, err := s.record(ctx, t, sheets.Interaction{
		Type:    InteractionPayment,
		Status:  customerPaymentSent,
		Message: message,
		OrderID: order.ID,
	}); err != nil {
		return err
	}
	s.mirrorPayment(ctx, order.ID)

	s.reply(t, "payment_received", map[string]interface{}{
		"OrderID":  order.ID,
		"Timeline": pricing.DeliveryTimeline(order.DeliveryTown),
	})
	t.sess.State = session.StateIdle
	t.sess.OrderType = ""
	t.sess.OrderID = ""
	return nil
}

// record saves an interaction for the turn's customer
func (s *Service) record(ctx context.Context, t *turn, in sheets.Interaction) (sheets.Result, error) {
	in.Phone = t.msg.From
	in.CustomerName = t.msg.ContactName
	if in.Message == "" {
		in.Message = t.text
	}
	return s.saveInteraction(ctx, in)
}

func orderRef(res sheets.Result, t *turn) string {
	if res.OrderID != "" {
		return res.OrderID
	}
	return t.sess.OrderID
}

func looksLikeOrder(lower string) bool {
	return strings.Contains(lower, "cart") || strings.Contains(lower, "total") || strings.Contains(lower, "delivery")
}
