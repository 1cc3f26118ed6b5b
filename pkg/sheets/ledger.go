package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/munashe04/buyza/pkg/lock"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/metrics"
	"github.com/munashe04/buyza/pkg/pricing"
)

// Tab names
const (
	CustomersSheet = "Customers"
	OrdersSheet    = "Orders"
)

// CustomerHeaders is the header row of the Customers tab (A-I)
var CustomerHeaders = []string{
	"Phone Number", "Customer Name", "Total Orders", "Last Interaction",
	"Current Status", "Preferred Town", "Customer Tier", "Agent Notes", "Last Updated",
}

// OrderHeaders is the header row of the Orders tab (A-J)
var OrderHeaders = []string{
	"Order ID", "Phone Number", "Order Type", "Order Details", "Quote Amount",
	"Payment Status", "Order Status", "Delivery Town", "Created Date", "Last Updated",
}

// Customers columns, 0-based
const (
	custPhone = iota
	custName
	custTotalOrders
	custLastInteraction
	custStatus
	custTown
	custTier
	custNotes
	custUpdated
)

// Orders columns, 0-based
const (
	ordID = iota
	ordPhone
	ordType
	ordDetails
	ordQuote
	ordPayment
	ordStatus
	ordTown
	ordCreated
	ordUpdated
)

// Order statuses
const (
	StatusNew             = "New"
	StatusPending         = "Pending"
	StatusAwaitingDetails = "Awaiting Details"
	StatusDetailsProvided = "Details Provided"
	StatusQuoteSent       = "Quote Sent"
	StatusAwaitingPayment = "Awaiting Payment"
	StatusPaymentPending  = "Payment Pending"
	StatusProcessing      = "Processing"
	StatusCompleted       = "Completed"
	StatusDelivered       = "Delivered"
	StatusCancelled       = "Cancelled"
	StatusRejected        = "Rejected"
	StatusExpired         = "Expired"
)

// Payment statuses
const (
	PaymentPending        = "Pending"
	PaymentAwaiting       = "Awaiting Payment"
	PaymentProofSubmitted = "Proof Submitted"
)

// Order types
const (
	OrderTypeOnline   = "Online Order"
	OrderTypeAssisted = "Assisted Order"
	OrderTypeGeneral  = "General Order"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	orderIDLayout   = "20060102-150405"
	maxDetailsLen   = 200
	newCustomerTier = "New"
)

var activeStatuses = []string{
	StatusNew, StatusPending, StatusAwaitingDetails, StatusDetailsProvided,
	StatusQuoteSent, StatusAwaitingPayment, StatusPaymentPending, StatusProcessing,
}

var completedStatuses = []string{
	StatusCompleted, StatusDelivered, StatusCancelled, StatusRejected, StatusExpired,
}

var orderKeywords = []string{"cart", "total", "order", "buy", "product", "takealot", "pnp", "http"}

var (
	// ErrNoActiveOrder is returned when a customer has no open order
	ErrNoActiveOrder = errors.New("no active order")
	// ErrOrderNotFound is returned when no row has the order ID
	ErrOrderNotFound = errors.New("order not found")
	// ErrUnknownStatus is returned for a status outside the known set
	ErrUnknownStatus = errors.New("unknown order status")
)

// IsActiveStatus reports whether an order in status is still open
func IsActiveStatus(status string) bool {
	return contains(activeStatuses, strings.TrimSpace(status))
}

// CanonicalStatus returns the known status matching s case-insensitively
func CanonicalStatus(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, known := range append(append([]string{}, activeStatuses...), completedStatuses...) {
		if strings.EqualFold(known, s) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Order is one row of the Orders tab
type Order struct {
	ID            string `json:"order_id"`
	Phone         string `json:"phone_number"`
	Type          string `json:"order_type"`
	Details       string `json:"order_details"`
	Quote         string `json:"quote_amount"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"order_status"`
	DeliveryTown  string `json:"delivery_town"`
	CreatedAt     string `json:"created_date"`
	UpdatedAt     string `json:"last_updated"`
	// Row is the 1-based sheet row
	Row int `json:"-"`
}

// Active reports whether the order is still open
func (o Order) Active() bool { return IsActiveStatus(o.Status) }

func orderFromRow(cells []string, row int) Order {
	c := pad(cells, len(OrderHeaders))
	return Order{
		ID:            c[ordID],
		Phone:         c[ordPhone],
		Type:          c[ordType],
		Details:       c[ordDetails],
		Quote:         c[ordQuote],
		PaymentStatus: c[ordPayment],
		Status:        c[ordStatus],
		DeliveryTown:  c[ordTown],
		CreatedAt:     c[ordCreated],
		UpdatedAt:     c[ordUpdated],
		Row:           row,
	}
}

func (o Order) cells() []string {
	return []string{
		o.ID, o.Phone, o.Type, o.Details, o.Quote,
		o.PaymentStatus, o.Status, o.DeliveryTown, o.CreatedAt, o.UpdatedAt,
	}
}

// Interaction is one customer event to record
type Interaction struct {
	// Type names the event, e.g. "Online Order Start" or "Quote Accept"
	Type         string
	Phone        string
	CustomerName string
	Message      string
	// Quote is an agent supplied amount; "-" means none
	Quote string
	// Status is the customer's current status for the profile row
	Status string
	// ProfileOnly records the interaction on the customer row and leaves
	// orders alone
	ProfileOnly bool
	// OrderID targets one of the customer's orders instead of the latest
	// active one
	OrderID string
}

// Result describes what SaveInteraction did to the Orders tab
type Result struct {
	OrderID       string
	OrderType     string
	Created       bool
	Updated       bool
	OrderStatus   string
	PaymentStatus string
}

// Ledger records customers and orders in the spreadsheet
type Ledger struct {
	values   Values
	now      func() time.Time
	phones   *lock.Keyed
	appendMu sync.Mutex
	logger   zerolog.Logger
}

// NewLedger creates a ledger on top of values
func NewLedger(values Values) *Ledger {
	return &Ledger{
		values: values,
		now:    time.Now,
		phones: lock.NewKeyed(),
		logger: log.WithComponent("sheets"),
	}
}

// EnsureTabs creates the Customers and Orders tabs when missing and writes
// their header rows
func (l *Ledger) EnsureTabs(ctx context.Context) error {
	titles, err := l.values.SheetTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sheets: %w", err)
	}

	for _, tab := range []struct {
		name    string
		headers []string
	}{
		{CustomersSheet, CustomerHeaders},
		{OrdersSheet, OrderHeaders},
	} {
		if !contains(titles, tab.name) {
			if err := l.values.AddSheet(ctx, tab.name); err != nil {
				return fmt.Errorf("failed to create sheet %s: %w", tab.name, err)
			}
			l.logger.Info().Str("sheet", tab.name).Msg("created sheet")
		}

		header, err := l.values.Get(ctx, rowRange(tab.name, 1, len(tab.headers)))
		if err != nil {
			return fmt.Errorf("failed to read %s header: %w", tab.name, err)
		}
		if len(header) > 0 && len(header[0]) > 0 {
			continue
		}
		if err := l.values.Update(ctx, rowRange(tab.name, 1, len(tab.headers)), [][]string{tab.headers}); err != nil {
			return fmt.Errorf("failed to write %s header: %w", tab.name, err)
		}
		l.logger.Info().Str("sheet", tab.name).Msg("wrote header row")
	}
	return nil
}

// SaveInteraction updates the customer's profile and creates or updates
// their order according to the interaction.
func (l *Ledger) SaveInteraction(ctx context.Context, in Interaction) (Result, error) {
	if in.Phone == "" {
		return Result{}, fmt.Errorf("phone number is required")
	}
	unlock := l.phones.Lock(in.Phone)
	defer unlock()

	if err := l.upsertCustomer(ctx, in); err != nil {
		l.logger.Warn().Err(err).Str("phone", in.Phone).Msg("failed to update customer profile")
	}
	if in.ProfileOnly {
		return Result{}, nil
	}

	orders, err := l.CustomerOrders(ctx, in.Phone)
	if err != nil {
		return Result{}, err
	}

	var target *Order
	if in.OrderID != "" {
		if target = orderByID(orders, in.OrderID); target == nil {
			return Result{}, fmt.Errorf("%w: %s", ErrOrderNotFound, in.OrderID)
		}
	} else {
		target = latestActive(orders)
		if isExplicitStart(in.Type) || (target == nil && isOrderRelated(in.Message)) {
			return l.createOrder(ctx, in)
		}
		if target == nil {
			return Result{}, nil
		}
	}

	o := *target
	lowerType := strings.ToLower(in.Type)
	message := strings.TrimSpace(in.Message)
	switch {
	case isConversational(lowerType):
		// chat never moves an order, whatever the customer types
		o.Details = appendNote(o.Details, in.Message)
	case strings.Contains(lowerType, "details"):
		o.Details = truncateDetails(in.Message)
		if town := pricing.DetectTown(in.Message); town != "" {
			o.DeliveryTown = town
		}
		if hasQuote(in.Quote) {
			o.Quote = in.Quote
		}
	case strings.EqualFold(message, "yes") || strings.Contains(lowerType, "accept"):
		o.PaymentStatus = PaymentAwaiting
		o.Status = StatusAwaitingPayment
	case strings.EqualFold(message, "no") || strings.Contains(lowerType, "cancel"):
		o.Status = StatusCancelled
	case strings.Contains(lowerType, "payment"):
		o.PaymentStatus = PaymentProofSubmitted
		o.Status = StatusPaymentPending
	default:
		o.Details = appendNote(o.Details, in.Message)
	}

	if err := l.writeOrder(ctx, &o); err != nil {
		return Result{}, err
	}
	return Result{
		OrderID:       o.ID,
		OrderType:     o.Type,
		Updated:       true,
		OrderStatus:   o.Status,
		PaymentStatus: o.PaymentStatus,
	}, nil
}

// CustomerOrders returns the customer's orders in sheet order
func (l *Ledger) CustomerOrders(ctx context.Context, phone string) ([]Order, error) {
	all, err := l.allOrders(ctx)
	if err != nil {
		return nil, err
	}
	var out []Order
	for _, o := range all {
		if o.Phone == phone {
			out = append(out, o)
		}
	}
	return out, nil
}

// LatestActiveOrder returns the most recently created open order
func (l *Ledger) LatestActiveOrder(ctx context.Context, phone string) (*Order, error) {
	orders, err := l.CustomerOrders(ctx, phone)
	if err != nil {
		return nil, err
	}
	if o := latestActive(orders); o != nil {
		return o, nil
	}
	return nil, ErrNoActiveOrder
}

// FindOrder looks an order up by ID
func (l *Ledger) FindOrder(ctx context.Context, id string) (*Order, error) {
	all, err := l.allOrders(ctx)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	for i := range all {
		if strings.EqualFold(all[i].ID, id) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

// SetQuote records a quote amount and moves the order to Quote Sent
func (l *Ledger) SetQuote(ctx context.Context, id, amount string) (*Order, error) {
	return l.modifyOrder(ctx, id, func(o *Order) {
		o.Quote = amount
		o.Status = StatusQuoteSent
	})
}

// SetOrderStatus changes an order's status
func (l *Ledger) SetOrderStatus(ctx context.Context, id, status string) (*Order, error) {
	canonical, err := CanonicalStatus(status)
	if err != nil {
		return nil, err
	}
	return l.modifyOrder(ctx, id, func(o *Order) {
		o.Status = canonical
	})
}

func (l *Ledger) modifyOrder(ctx context.Context, id string, apply func(*Order)) (*Order, error) {
	found, err := l.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := l.phones.Lock(found.Phone)
	defer unlock()

	// re-read under the customer's lock
	o, err := l.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(o)
	if err := l.writeOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (l *Ledger) writeOrder(ctx context.Context, o *Order) error {
	o.UpdatedAt = l.timestamp()
	if err := l.values.Update(ctx, rowRange(OrdersSheet, o.Row, len(OrderHeaders)), [][]string{o.cells()}); err != nil {
		return fmt.Errorf("failed to update order %s: %w", o.ID, err)
	}
	return nil
}

func (l *Ledger) allOrders(ctx context.Context) ([]Order, error) {
	rows, err := l.values.Get(ctx, OrdersSheet+"!A2:J")
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	out := make([]Order, 0, len(rows))
	for i, cells := range rows {
		if len(cells) == 0 || cells[ordID] == "" {
			continue
		}
		out = append(out, orderFromRow(cells, i+2))
	}
	return out, nil
}

func (l *Ledger) createOrder(ctx context.Context, in Interaction) (Result, error) {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	ids, err := l.values.Get(ctx, OrdersSheet+"!A2:A")
	if err != nil {
		return Result{}, fmt.Errorf("failed to read order ids: %w", err)
	}
	taken := make(map[string]bool, len(ids))
	for _, row := range ids {
		if len(row) > 0 {
			taken[row[0]] = true
		}
	}

	now := l.now()
	id := orderID(in.Phone, now)
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("%s-%d", orderID(in.Phone, now), n)
	}

	orderType := determineOrderType(in.Type, in.Message)
	o := Order{
		ID:            id,
		Phone:         in.Phone,
		Type:          orderType,
		Details:       truncateDetails(in.Message),
		PaymentStatus: PaymentPending,
		Status:        StatusNew,
		DeliveryTown:  pricing.DetectTown(in.Message),
		CreatedAt:     now.Format(timestampLayout),
		UpdatedAt:     now.Format(timestampLayout),
	}
	if hasQuote(in.Quote) {
		o.Quote = in.Quote
	}

	if err := l.values.Append(ctx, OrdersSheet+"!A:J", [][]string{o.cells()}); err != nil {
		return Result{}, fmt.Errorf("failed to append order: %w", err)
	}

	if err := l.incrementOrderCount(ctx, in.Phone); err != nil {
		l.logger.Warn().Err(err).Str("phone", in.Phone).Msg("failed to increment order count")
	}

	metrics.IncOrderCreated(orderType)
	l.logger.Info().Str("order_id", id).Str("phone", in.Phone).Str("type", orderType).Msg("created order")

	return Result{
		OrderID:       id,
		OrderType:     orderType,
		Created:       true,
		OrderStatus:   o.Status,
		PaymentStatus: o.PaymentStatus,
	}, nil
}

// findCustomer returns the customer's row number and cells, or 0
func (l *Ledger) findCustomer(ctx context.Context, phone string) (int, []string, error) {
	rows, err := l.values.Get(ctx, CustomersSheet+"!A2:I")
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read customers: %w", err)
	}
	for i, cells := range rows {
		if len(cells) > 0 && cells[custPhone] == phone {
			return i + 2, pad(cells, len(CustomerHeaders)), nil
		}
	}
	return 0, nil, nil
}

func (l *Ledger) upsertCustomer(ctx context.Context, in Interaction) error {
	row, cells, err := l.findCustomer(ctx, in.Phone)
	if err != nil {
		return err
	}
	now := l.timestamp()

	if row == 0 {
		cells = make([]string, len(CustomerHeaders))
		cells[custPhone] = in.Phone
		cells[custName] = in.CustomerName
		cells[custTotalOrders] = "0"
		cells[custLastInteraction] = in.Message
		cells[custStatus] = in.Status
		cells[custTown] = pricing.DetectTown(in.Message)
		cells[custTier] = newCustomerTier
		cells[custUpdated] = now

		l.appendMu.Lock()
		defer l.appendMu.Unlock()
		if err := l.values.Append(ctx, CustomersSheet+"!A:I", [][]string{cells}); err != nil {
			return fmt.Errorf("failed to append customer: %w", err)
		}
		return nil
	}

	if in.Message != "" {
		cells[custLastInteraction] = in.Message
	}
	if in.Status != "" {
		cells[custStatus] = in.Status
	}
	if in.CustomerName != "" && cells[custName] == "" {
		cells[custName] = in.CustomerName
	}
	cells[custUpdated] = now

	if err := l.values.Update(ctx, rowRange(CustomersSheet, row, len(CustomerHeaders)), [][]string{cells}); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

func (l *Ledger) incrementOrderCount(ctx context.Context, phone string) error {
	row, cells, err := l.findCustomer(ctx, phone)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}
	current, _ := strconv.Atoi(strings.TrimSpace(cells[custTotalOrders]))
	ref := cellRef(CustomersSheet, custTotalOrders+1, row)
	return l.values.Update(ctx, ref, [][]string{{strconv.Itoa(current + 1)}})
}

func (l *Ledger) timestamp() string {
	return l.now().Format(timestampLayout)
}

func orderByID(orders []Order, id string) *Order {
	id = strings.TrimSpace(id)
	for i := range orders {
		if strings.EqualFold(orders[i].ID, id) {
			o := orders[i]
			return &o
		}
	}
	return nil
}

// conversationalTypes only ever add notes to an order
var conversationalTypes = []string{"chat", "follow up", "reply", "request"}

func isConversational(lowerType string) bool {
	for _, k := range conversationalTypes {
		if strings.Contains(lowerType, k) {
			return true
		}
	}
	return false
}

func appendNote(details, message string) string {
	note := truncateDetails(message)
	if details != "" {
		note = details + " || " + note
	}
	return note
}

func latestActive(orders []Order) *Order {
	for i := len(orders) - 1; i >= 0; i-- {
		if orders[i].Active() {
			o := orders[i]
			return &o
		}
	}
	return nil
}

func orderID(phone string, at time.Time) string {
	last4 := phone
	if len(phone) > 4 {
		last4 = phone[len(phone)-4:]
	}
	return "BUYZA-" + last4 + "-" + at.Format(orderIDLayout)
}

func isExplicitStart(interactionType string) bool {
	return strings.Contains(interactionType, "Start") || strings.Contains(strings.ToLower(interactionType), "new")
}

func isOrderRelated(message string) bool {
	low := strings.ToLower(message)
	for _, k := range orderKeywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}

func determineOrderType(interactionType, message string) string {
	lowType := strings.ToLower(interactionType)
	low := strings.ToLower(message)
	switch {
	case strings.Contains(lowType, "assisted"):
		return OrderTypeAssisted
	case strings.Contains(lowType, "online"):
		return OrderTypeOnline
	case strings.Contains(low, "cart") || strings.Contains(low, "takealot") || strings.Contains(low, "pnp"):
		return OrderTypeOnline
	case strings.Contains(low, "need") || strings.Contains(low, "help") || strings.Contains(low, "looking for"):
		return OrderTypeAssisted
	}
	return OrderTypeGeneral
}

func truncateDetails(message string) string {
	runes := []rune(message)
	if len(runes) > maxDetailsLen {
		return string(runes[:maxDetailsLen]) + "..."
	}
	return message
}

func hasQuote(q string) bool {
	q = strings.TrimSpace(q)
	return q != "" && q != "-"
}

func pad(cells []string, n int) []string {
	out := make([]string, n)
	copy(out, cells)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
