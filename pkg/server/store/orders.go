package store

import (
	"context"
	"errors"

	"github.com/munashe04/buyza/pkg/model"
	"github.com/munashe04/buyza/pkg/pricing"
)

// ErrOrderNotFound is returned when no mirrored order has the reference
var ErrOrderNotFound = errors.New("order not found")

// OrderStore abstracts the order mirror
type OrderStore interface {
	// CreateOrder inserts a new order. OrderRef must be unique.
	CreateOrder(ctx context.Context, order *model.Order) error

	// UpdateStatus changes the status of the order with ref.
	// Returns ErrOrderNotFound if no order matches.
	UpdateStatus(ctx context.Context, ref string, status model.Status) error

	// UpdateQuote stores the price breakdown of the order with ref.
	// Returns ErrOrderNotFound if no order matches.
	UpdateQuote(ctx context.Context, ref string, quote pricing.Quote) error

	// FindByRef returns one order.
	// Returns ErrOrderNotFound if no order matches.
	FindByRef(ctx context.Context, ref string) (*model.Order, error)

	// FindByCustomerPhone returns the customer's orders, newest first.
	FindByCustomerPhone(ctx context.Context, phone string) ([]model.Order, error)
}
