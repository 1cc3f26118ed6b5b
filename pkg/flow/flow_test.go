package flow

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/messages"
	"github.com/munashe04/buyza/pkg/model"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

const customer = "263771234567"

func TestMain(m *testing.M) {
	audit.SetEnabled(false)
	os.Exit(m.Run())
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendText(ctx context.Context, to, body string) (*whatsapp.SendResponse, error) {
	args := m.Called(ctx, to, body)
	resp, _ := args.Get(0).(*whatsapp.SendResponse)
	return resp, args.Error(1)
}

// bodies returns the texts sent so far and forgets them
func (m *mockSender) bodies() []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "SendText" {
			out = append(out, c.Arguments.String(2))
		}
	}
	m.Calls = nil
	return out
}

type harness struct {
	svc      *Service
	ledger   *sheets.Ledger
	values   *sheets.MemoryValues
	sessions *session.MemoryStore
	sender   *mockSender
	catalog  *messages.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	values := sheets.NewMemoryValues()
	ledger := sheets.NewLedger(values)
	require.NoError(t, ledger.EnsureTabs(context.Background()))

	sender := &mockSender{}
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(&whatsapp.SendResponse{}, nil)

	h := &harness{
		ledger:   ledger,
		values:   values,
		sessions: session.NewMemoryStore(time.Hour),
		sender:   sender,
		catalog:  messages.Default(),
	}
	h.svc = NewService(Config{Ledger: ledger, Sessions: h.sessions, Messages: h.catalog, Sender: sender})
	return h
}

func (h *harness) say(t *testing.T, text string) []string {
	t.Helper()
	payload := whatsapp.SimulatedPayload(customer, text, time.Now())
	require.NoError(t, h.svc.HandleIncoming(context.Background(), &payload))
	return h.sender.bodies()
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	sess, err := h.sessions.Get(context.Background(), customer)
	require.NoError(t, err)
	return sess
}

func (h *harness) order(t *testing.T, id string) *sheets.Order {
	t.Helper()
	order, err := h.ledger.FindOrder(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (h *harness) render(key string, data interface{}) string {
	return h.catalog.Render(key, data)
}

func TestGreeting(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "Hi")
	assert.Equal(t, []string{h.render("main_menu", nil)}, replies)
	assert.Equal(t, session.StateMenu, h.session(t).State)

	customers := h.values.Rows(sheets.CustomersSheet)
	require.Len(t, customers, 2)
	assert.Equal(t, customer, customers[1][0])
	assert.Len(t, h.values.Rows(sheets.OrdersSheet), 1, "a greeting must not create an order")
}

func TestOnlineOrderToPayment(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "1️⃣")
	assert.Equal(t, []string{h.render("online_order_prompt", nil)}, replies)
	sess := h.session(t)
	assert.Equal(t, session.StateAwaitingOnlineDetails, sess.State)
	require.NotEmpty(t, sess.OrderID)
	orderID := sess.OrderID
	assert.Equal(t, sheets.OrderTypeOnline, h.order(t, orderID).Type)

	replies = h.say(t, "Cart link: https://takealot.com/x\nTotal: R850\nDelivery: Gweru")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Goods: R850.00")
	assert.Contains(t, replies[0], "Service fee (10%): R85.00")
	assert.Contains(t, replies[0], "Delivery cost: R180.00")
	assert.Contains(t, replies[0], "Subtotal: R1115.00")
	assert.Contains(t, replies[0], "Order ID: "+orderID)
	assert.Equal(t, session.StateAwaitingQuote, h.session(t).State)

	order := h.order(t, orderID)
	assert.Equal(t, "R1115.00", order.Quote)
	assert.Equal(t, sheets.StatusQuoteSent, order.Status)
	assert.Equal(t, "Gweru", order.DeliveryTown)

	replies = h.say(t, "YES")
	assert.Equal(t, []string{h.render("payment_instructions", map[string]interface{}{"OrderID": orderID})}, replies)
	assert.Equal(t, session.StateAwaitingPayment, h.session(t).State)
	assert.Equal(t, sheets.StatusAwaitingPayment, h.order(t, orderID).Status)

	replies = h.say(t, "I have paid, ref ECO123456")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "ETA: 3-5 business days.")
	sess = h.session(t)
	assert.Equal(t, session.StateIdle, sess.State)
	assert.Empty(t, sess.OrderID)

	order = h.order(t, orderID)
	assert.Equal(t, sheets.StatusPaymentPending, order.Status)
	assert.Equal(t, sheets.PaymentProofSubmitted, order.PaymentStatus)
}

func TestOnlineDetails_ParseFailure(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")

	replies := h.say(t, "just the link please")
	assert.Equal(t, []string{h.render("parse_failed", nil)}, replies)
	assert.Equal(t, session.StateAwaitingOnlineDetails, h.session(t).State)
}

func TestOrderLikeMessageFromIdle(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "Total: R400 Delivery: harare")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Subtotal: R590.00")

	sess := h.session(t)
	assert.Equal(t, session.StateAwaitingQuote, sess.State)
	order := h.order(t, sess.OrderID)
	assert.Equal(t, sheets.OrderTypeOnline, order.Type)
	assert.Equal(t, "R590.00", order.Quote)
}

func TestQuoteDeclined(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	h.say(t, "Total: R850 Delivery: Gweru")
	orderID := h.session(t).OrderID

	replies := h.say(t, "maybe later")
	assert.Equal(t, []string{h.render("quote_reminder", nil)}, replies)
	assert.Equal(t, session.StateAwaitingQuote, h.session(t).State)

	replies = h.say(t, "No")
	assert.Equal(t, []string{h.render("order_cancelled", map[string]interface{}{"OrderID": orderID})}, replies)
	assert.Equal(t, session.StateIdle, h.session(t).State)
	assert.Equal(t, sheets.StatusCancelled, h.order(t, orderID).Status)
}

func TestAssistedOrderAndAgentQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	replies := h.say(t, "2")
	assert.Equal(t, []string{h.render("assisted_order_prompt", nil)}, replies)
	orderID := h.session(t).OrderID
	require.NotEmpty(t, orderID)

	replies = h.say(t, "I want a 3-piece cookware set, non-stick, budget R600")
	assert.Equal(t, []string{h.render("details_received", map[string]interface{}{"OrderID": orderID})}, replies)
	assert.Equal(t, session.StateAwaitingQuote, h.session(t).State)
	assert.Equal(t, sheets.StatusNew, h.order(t, orderID).Status)

	h.say(t, "menu")

	quote, err := h.svc.SendQuote(ctx, orderID, 60000)
	require.NoError(t, err)
	assert.Equal(t, pricing.Quote{Goods: 60000, ServiceFee: 12000, DeliveryFee: 25000, Subtotal: 97000, Rate: 20}, quote)

	replies = h.sender.bodies()
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Service fee (20%): R120.00")
	assert.Contains(t, replies[0], "Subtotal: R970.00")

	sess := h.session(t)
	assert.Equal(t, session.StateAwaitingQuote, sess.State)
	assert.Equal(t, orderID, sess.OrderID)
	assert.Equal(t, "R970.00", h.order(t, orderID).Quote)
}

func TestSendQuote_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SendQuote(ctx, "BUYZA-0000-20240101-000000", 1000)
	assert.ErrorIs(t, err, sheets.ErrOrderNotFound)

	_, err = h.svc.SendQuote(ctx, "BUYZA-0000-20240101-000000", 0)
	assert.ErrorIs(t, err, pricing.ErrInvalidAmount)
}

func TestAgentChat(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	orderID := h.session(t).OrderID

	replies := h.say(t, "Chat with Assistant")
	assert.Equal(t, []string{h.render("agent_connecting", nil)}, replies)
	assert.Equal(t, session.StateAgent, h.session(t).State)

	replies = h.say(t, "is anyone there")
	assert.Empty(t, replies)
	assert.Contains(t, h.order(t, orderID).Details, "is anyone there")

	replies = h.say(t, "1")
	assert.Empty(t, replies, "menu options are plain chat while talking to an agent")

	replies = h.say(t, "MENU")
	assert.Equal(t, []string{h.render("main_menu", nil)}, replies)
	assert.Equal(t, session.StateMenu, h.session(t).State)
}

func TestAgentChatNeverChangesOrder(t *testing.T) {
	h := newHarness(t)
	h.say(t, "2")
	orderID := h.session(t).OrderID
	h.say(t, "I need a kettle, budget R400")
	h.say(t, "agent")
	before := h.order(t, orderID)

	for _, text := range []string{"no", "yes", "cancel", "Y"} {
		replies := h.say(t, text)
		assert.Empty(t, replies)

		order := h.order(t, orderID)
		assert.True(t, order.Active(), "%q must not close the order", text)
		assert.Equal(t, before.Status, order.Status, "%q must not move the order", text)
		assert.Equal(t, before.PaymentStatus, order.PaymentStatus)
		assert.Equal(t, session.StateAgent, h.session(t).State)
	}
	assert.Contains(t, h.order(t, orderID).Details, "|| no || yes || cancel || Y")
}

func TestFollowUpWhileAwaitingPayment(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	h.say(t, "Total: R850 Delivery: Gweru")
	orderID := h.session(t).OrderID
	h.say(t, "yes")

	replies := h.say(t, "no")
	assert.Equal(t, []string{h.render("payment_reminder", map[string]interface{}{"OrderID": orderID})}, replies)
	assert.Equal(t, session.StateAwaitingPayment, h.session(t).State)
	order := h.order(t, orderID)
	assert.Equal(t, sheets.StatusAwaitingPayment, order.Status, "a follow up never changes the order")
	assert.Equal(t, sheets.PaymentAwaiting, order.PaymentStatus)

	replies = h.say(t, "Paid, ref MP240611.1532.H12345")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "ETA: 3-5 business days.")
	assert.Equal(t, sheets.StatusPaymentPending, h.order(t, orderID).Status)
}

func TestQuoteReminderKeepsQuote(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	h.say(t, "Total: R850 Delivery: Gweru")
	orderID := h.session(t).OrderID

	for _, text := range []string{"hmm", "let me think"} {
		replies := h.say(t, text)
		assert.Equal(t, []string{h.render("quote_reminder", nil)}, replies)
	}
	order := h.order(t, orderID)
	assert.Equal(t, sheets.StatusQuoteSent, order.Status)
	assert.Equal(t, "R1115.00", order.Quote)
}

func TestPaymentTargetsAwaitingOrder(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	h.say(t, "Total: R850 Delivery: Gweru")
	first := h.session(t).OrderID
	h.say(t, "yes")

	h.say(t, "menu")
	h.say(t, "2")
	second := h.session(t).OrderID
	require.NotEqual(t, first, second)
	h.say(t, "menu")

	latest, err := h.ledger.LatestActiveOrder(context.Background(), customer)
	require.NoError(t, err)
	require.Equal(t, second, latest.ID, "the newer order is the latest active one")

	replies := h.say(t, "Paid, ref MP240611.1532.H12345")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "ETA: 3-5 business days.")

	paid := h.order(t, first)
	assert.Equal(t, sheets.StatusPaymentPending, paid.Status)
	assert.Equal(t, sheets.PaymentProofSubmitted, paid.PaymentStatus)

	untouched := h.order(t, second)
	assert.Equal(t, sheets.StatusNew, untouched.Status)
	assert.Equal(t, sheets.PaymentPending, untouched.PaymentStatus)
	assert.Equal(t, "2", untouched.Details)
}

func TestSendQuoteWaitsForCustomerTurn(t *testing.T) {
	h := newHarness(t)
	h.say(t, "2")
	orderID := h.session(t).OrderID
	h.say(t, "I need a kettle, budget R400")
	h.say(t, "menu")

	unlock := h.svc.phones.Lock(customer)
	done := make(chan error, 1)
	go func() {
		_, err := h.svc.SendQuote(context.Background(), orderID, 40000)
		done <- err
	}()

	select {
	case err := <-done:
		unlock()
		t.Fatalf("SendQuote finished while the customer's turn was in progress: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, session.StateMenu, h.session(t).State)

	unlock()
	require.NoError(t, <-done)
	sess := h.session(t)
	assert.Equal(t, session.StateAwaitingQuote, sess.State)
	assert.Equal(t, orderID, sess.OrderID)
}

func TestTrack(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	orderID := h.session(t).OrderID

	replies := h.say(t, "track "+orderID)
	assert.Equal(t, []string{h.render("order_status", map[string]interface{}{
		"OrderID": orderID, "Status": sheets.StatusNew, "PaymentStatus": sheets.PaymentPending,
	})}, replies)
	assert.Equal(t, session.StateAwaitingOnlineDetails, h.session(t).State, "tracking keeps the state")

	replies = h.say(t, "track BUYZA-0000-20200101-000000")
	assert.Equal(t, []string{h.render("order_not_found", map[string]interface{}{"OrderID": "BUYZA-0000-20200101-000000"})}, replies)

	replies = h.say(t, "Track")
	assert.Equal(t, []string{h.render("track_usage", nil)}, replies)
}

func TestMenuOptions(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "3")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Harare, Bulawayo, Gweru, Mutare, Masvingo, Chinhoyi")

	replies = h.say(t, "FAQ")
	assert.Equal(t, []string{h.render("faqs", nil)}, replies)

	replies = h.say(t, "How do I pay?")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "EcoCash")
}

func TestUnknownOption(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "banana")
	assert.Equal(t, []string{h.render("main_menu", nil)}, replies, "idle customers get the menu")
	assert.Equal(t, session.StateMenu, h.session(t).State)

	replies = h.say(t, "banana")
	assert.Equal(t, []string{h.render("unknown_option", nil), h.render("main_menu", nil)}, replies)
}

func TestEmptyMessage(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "   ")
	assert.Equal(t, []string{h.render("empty_message", nil)}, replies)
}

func TestPaymentFromMenu(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	h.say(t, "Total: R100 Delivery: Harare")
	h.say(t, "yes")
	orderID := h.session(t).OrderID

	h.say(t, "menu")
	replies := h.say(t, "POP attached")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "ETA: 3 business days.")
	assert.Equal(t, sheets.StatusPaymentPending, h.order(t, orderID).Status)
}

func TestPaymentWithoutPendingOrder(t *testing.T) {
	h := newHarness(t)

	replies := h.say(t, "paid")
	assert.Equal(t, []string{h.render("no_pending_order", nil)}, replies)
}

func TestPaymentReminder(t *testing.T) {
	h := newHarness(t)
	h.say(t, "1")
	h.say(t, "Total: R100 Delivery: Harare")
	h.say(t, "yes")
	orderID := h.session(t).OrderID

	replies := h.say(t, "when do i pay")
	assert.Equal(t, []string{h.render("payment_reminder", map[string]interface{}{"OrderID": orderID})}, replies)
	assert.Equal(t, session.StateAwaitingPayment, h.session(t).State)
}

func TestDuplicateMessagesIgnored(t *testing.T) {
	h := newHarness(t)

	payload := whatsapp.SimulatedPayload(customer, "hi", time.Now())
	payload.Entry[0].Changes[0].Value.Messages[0].ID = "wamid.fixed"

	require.NoError(t, h.svc.HandleIncoming(context.Background(), &payload))
	require.NoError(t, h.svc.HandleIncoming(context.Background(), &payload))
	assert.Len(t, h.sender.bodies(), 1)
}

func TestMultipleMessagesInPayload(t *testing.T) {
	h := newHarness(t)

	payload := whatsapp.SimulatedPayload(customer, "hi", time.Now())
	other := whatsapp.SimulatedPayload("263779999999", "3", time.Now())
	payload.Entry = append(payload.Entry, other.Entry...)

	require.NoError(t, h.svc.HandleIncoming(context.Background(), &payload))
	assert.Len(t, h.sender.bodies(), 2)
}

func TestSendFailureIsReturned(t *testing.T) {
	values := sheets.NewMemoryValues()
	ledger := sheets.NewLedger(values)
	require.NoError(t, ledger.EnsureTabs(context.Background()))

	sender := &mockSender{}
	sendErr := &whatsapp.APIError{StatusCode: 500, Message: "boom"}
	sender.On("SendText", mock.Anything, customer, mock.Anything).Return(nil, sendErr)

	sessions := session.NewMemoryStore(time.Hour)
	svc := NewService(Config{Ledger: ledger, Sessions: sessions, Sender: sender})

	payload := whatsapp.SimulatedPayload(customer, "hi", time.Now())
	err := svc.HandleIncoming(context.Background(), &payload)

	var apiErr *whatsapp.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)

	sess, err := sessions.Get(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, session.StateMenu, sess.State, "the session is saved before replying")
}

func TestLedgerFailureKeepsState(t *testing.T) {
	// no tabs, so every read fails
	ledger := sheets.NewLedger(sheets.NewMemoryValues())
	sender := &mockSender{}
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(&whatsapp.SendResponse{}, nil)
	sessions := session.NewMemoryStore(time.Hour)
	svc := NewService(Config{Ledger: ledger, Sessions: sessions, Sender: sender})

	payload := whatsapp.SimulatedPayload(customer, "1", time.Now())
	err := svc.HandleIncoming(context.Background(), &payload)
	assert.ErrorIs(t, err, sheets.ErrSheetNotFound)

	assert.Equal(t, []string{messages.Default().Render("temporary_error", nil)}, sender.bodies())
	_, err = sessions.Get(context.Background(), customer)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSetOrderStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.say(t, "1")
	orderID := h.session(t).OrderID

	order, err := h.svc.SetOrderStatus(ctx, orderID, "processing")
	require.NoError(t, err)
	assert.Equal(t, sheets.StatusProcessing, order.Status)

	_, err = h.svc.SetOrderStatus(ctx, orderID, "teleported")
	assert.ErrorIs(t, err, sheets.ErrUnknownStatus)
}

func TestSendAgentMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.say(t, "2")
	orderID := h.session(t).OrderID

	require.NoError(t, h.svc.SendAgentMessage(ctx, customer, "Found two sets for you"))
	assert.Equal(t, []string{h.render("agent_reply", map[string]interface{}{"Body": "Found two sets for you"})}, h.sender.bodies())
	assert.Contains(t, h.order(t, orderID).Details, "Agent: Found two sets for you")

	assert.Error(t, h.svc.SendAgentMessage(ctx, customer, "  "))
}

func TestSendAgentMessage_NoOpenOrder(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.svc.SendAgentMessage(context.Background(), customer, "Your order is on its way"))
	assert.Len(t, h.values.Rows(sheets.OrdersSheet), 1, "an agent note must not open an order")
}

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderStore) UpdateStatus(ctx context.Context, ref string, status model.Status) error {
	return m.Called(ctx, ref, status).Error(0)
}

func (m *mockOrderStore) UpdateQuote(ctx context.Context, ref string, quote pricing.Quote) error {
	return m.Called(ctx, ref, quote).Error(0)
}

func (m *mockOrderStore) FindByRef(ctx context.Context, ref string) (*model.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func (m *mockOrderStore) FindByCustomerPhone(ctx context.Context, phone string) ([]model.Order, error) {
	args := m.Called(ctx, phone)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func TestOrderMirror(t *testing.T) {
	h := newHarness(t)
	orders := &mockOrderStore{}
	h.svc.orders = orders

	orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.CustomerPhone == customer && o.OrderType == sheets.OrderTypeOnline && o.Status == model.StatusNew
	})).Return(nil)
	orders.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	orders.On("UpdateQuote", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	h.say(t, "1")
	orderID := h.session(t).OrderID
	h.say(t, "Total: R850 Delivery: Gweru")
	h.say(t, "yes")
	h.say(t, "paid")

	orders.AssertCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	orders.AssertCalled(t, "UpdateQuote", mock.Anything, orderID, pricing.NewQuote(85000, sheets.OrderTypeOnline, "Gweru"))
	orders.AssertCalled(t, "UpdateStatus", mock.Anything, orderID, model.StatusAwaitingPayment)
	orders.AssertCalled(t, "UpdateStatus", mock.Anything, orderID, model.StatusPaid)
	orders.AssertCalled(t, "UpdateStatus", mock.Anything, orderID, model.StatusProcessing)
}

func TestOrderMirrorFailureDoesNotBreakFlow(t *testing.T) {
	h := newHarness(t)
	orders := &mockOrderStore{}
	h.svc.orders = orders
	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	replies := h.say(t, "1")
	assert.Equal(t, []string{h.render("online_order_prompt", nil)}, replies)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1", normalize(" 1️⃣ "))
	assert.Equal(t, "2", normalize("2⃣"))
	assert.Equal(t, "hello", normalize("hello"))
}
