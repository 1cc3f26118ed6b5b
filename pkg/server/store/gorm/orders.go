package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/munashe04/buyza/pkg/model"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/server/store"
)

// Ensure OrderStore implements store.OrderStore
var _ store.OrderStore = (*OrderStore)(nil)

// OrderStore implements store.OrderStore using GORM
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates a new OrderStore
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// CreateOrder inserts a new order
func (s *OrderStore) CreateOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// UpdateStatus changes an order's status
func (s *OrderStore) UpdateStatus(ctx context.Context, ref string, status model.Status) error {
	return s.update(ctx, ref, map[string]interface{}{"status": status})
}

// UpdateQuote stores an order's price breakdown
func (s *OrderStore) UpdateQuote(ctx context.Context, ref string, quote pricing.Quote) error {
	return s.update(ctx, ref, map[string]interface{}{
		"goods_value":   quote.Goods,
		"service_fee":   quote.ServiceFee,
		"delivery_fee":  quote.DeliveryFee,
		"subtotal":      quote.Subtotal,
		"delivery_town": quote.Town,
	})
}

func (s *OrderStore) update(ctx context.Context, ref string, values map[string]interface{}) error {
	tx := s.db.WithContext(ctx).Model(&model.Order{}).Where("order_ref = ?", ref).Updates(values)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrOrderNotFound
	}
	return nil
}

// FindByRef returns the order with the ledger reference
func (s *OrderStore) FindByRef(ctx context.Context, ref string) (*model.Order, error) {
	var order model.Order
	tx := s.db.WithContext(ctx).Where("order_ref = ?", ref).First(&order)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrOrderNotFound
		}
		return nil, tx.Error
	}
	return &order, nil
}

// FindByCustomerPhone returns a customer's orders, newest first
func (s *OrderStore) FindByCustomerPhone(ctx context.Context, phone string) ([]model.Order, error) {
	var orders []model.Order
	tx := s.db.WithContext(ctx).Where("customer_phone = ?", phone).Order("created_at desc").Find(&orders)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return orders, nil
}
