// Package store provides storage abstractions for the Buyza server.
//
// This package defines interfaces for database operations, allowing the
// flow and the endpoints to be decoupled from the specific database
// implementation and tested with mocks.
//
// # Available Stores
//
//   - OrderStore: PostgreSQL mirror of ledger orders
//   - HealthStore: Database connectivity check for readiness
//
// # Usage
//
//	orders := gormstore.NewOrderStore(db)
//	order, err := orders.FindByRef(ctx, "BUYZA-4567-20240611-101500")
//	if err != nil {
//	    if errors.Is(err, store.ErrOrderNotFound) {
//	        // Handle not found
//	    }
//	}
package store
