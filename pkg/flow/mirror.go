package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/model"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/server/store"
	"github.com/munashe04/buyza/pkg/sheets"
)

// saveInteraction records in the ledger, then mirrors and audits any order
// it created or changed
func (s *Service) saveInteraction(ctx context.Context, in sheets.Interaction) (sheets.Result, error) {
	res, err := s.ledger.SaveInteraction(ctx, in)
	if err != nil {
		return res, fmt.Errorf("failed to record %s: %w", in.Type, err)
	}

	switch {
	case res.Created:
		audit.Log(audit.OrderEvent{
			OrderID: res.OrderID, Phone: in.Phone, Operation: "created", Status: res.OrderStatus, Success: true,
		})
		s.mirrorCreate(ctx, &model.Order{
			OrderRef:      res.OrderID,
			CustomerPhone: in.Phone,
			OrderType:     res.OrderType,
			Details:       in.Message,
			DeliveryTown:  pricing.DetectTown(in.Message),
			Status:        model.StatusNew,
		})
	case res.Updated:
		audit.Log(audit.OrderEvent{
			OrderID: res.OrderID, Phone: in.Phone, Operation: "updated", Status: res.OrderStatus, Success: true,
		})
		s.mirrorStatus(ctx, res.OrderID, res.OrderStatus)
	}
	return res, nil
}

// applyQuote writes the quote subtotal to the ledger and the breakdown to
// the mirror
func (s *Service) applyQuote(ctx context.Context, orderID string, quote pricing.Quote) error {
	order, err := s.ledger.SetQuote(ctx, orderID, pricing.Format(quote.Subtotal))
	if err != nil {
		audit.Log(audit.OrderEvent{OrderID: orderID, Operation: "quoted", Error: err.Error()})
		return fmt.Errorf("failed to quote order %s: %w", orderID, err)
	}
	audit.Log(audit.OrderEvent{
		OrderID: order.ID, Phone: order.Phone, Operation: "quoted", Status: order.Status, Success: true,
	})

	if s.orders == nil {
		return nil
	}
	if err := s.orders.UpdateQuote(ctx, order.ID, quote); err != nil {
		s.mirrorFailed(ctx, err, order.ID, "quote")
	}
	return nil
}

func (s *Service) mirrorCreate(ctx context.Context, order *model.Order) {
	if s.orders == nil {
		return
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.mirrorFailed(ctx, err, order.OrderRef, "create")
	}
}

// mirrorStatus copies a ledger status to the mirror when it maps to one
func (s *Service) mirrorStatus(ctx context.Context, orderID, sheetStatus string) {
	if s.orders == nil {
		return
	}
	status, ok := model.StatusFromSheet(sheetStatus)
	if !ok {
		return
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		s.mirrorFailed(ctx, err, orderID, "status")
	}
}

// mirrorPayment moves a paid order on to processing. The ledger's
// Payment Pending already mirrored as PAID.
func (s *Service) mirrorPayment(ctx context.Context, orderID string) {
	if s.orders == nil {
		return
	}
	if err := s.orders.UpdateStatus(ctx, orderID, model.StatusProcessing); err != nil {
		s.mirrorFailed(ctx, err, orderID, "status")
	}
}

func (s *Service) mirrorFailed(ctx context.Context, err error, orderID, op string) {
	logger := log.FromContext(ctx).With().Str("component", "flow").Str("order_id", orderID).Str("op", op).Logger()
	if errors.Is(err, store.ErrOrderNotFound) {
		// orders created before the mirror was enabled
		logger.Debug().Msg("order missing from mirror")
		return
	}
	logger.Warn().Err(err).Msg("failed to mirror order")
}
