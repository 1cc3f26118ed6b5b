package model

import "strings"

//go:generate go run github.com/dmarkham/enumer -type Status -trimprefix Status -transform snake-upper -json -text -sql -output status.gen.go

// Status is the lifecycle of a mirrored order
type Status int

const (
	StatusNew Status = iota
	StatusAwaitingPayment
	StatusPaid
	StatusProcessing
	StatusShipped
	StatusDelivered
	StatusCancelled
)

var sheetStatuses = map[string]Status{
	"new":              StatusNew,
	"pending":          StatusNew,
	"awaiting details": StatusNew,
	"details provided": StatusNew,
	"quote sent":       StatusNew,
	"awaiting payment": StatusAwaitingPayment,
	"payment pending":  StatusPaid,
	"processing":       StatusProcessing,
	"shipped":          StatusShipped,
	"completed":        StatusDelivered,
	"delivered":        StatusDelivered,
	"cancelled":        StatusCancelled,
	"rejected":         StatusCancelled,
	"expired":          StatusCancelled,
}

// StatusFromSheet maps a ledger order status to the mirror's status. The
// second result is false for statuses the ledger does not define.
func StatusFromSheet(s string) (Status, bool) {
	st, ok := sheetStatuses[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Final reports whether no further transitions are expected
func (i Status) Final() bool {
	return i == StatusDelivered || i == StatusCancelled
}
