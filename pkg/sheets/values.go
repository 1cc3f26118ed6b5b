package sheets

import (
	"context"
	"errors"
	"time"

	"github.com/munashe04/buyza/pkg/metrics"
)

// ErrSheetNotFound is returned when a range names a tab that does not exist
var ErrSheetNotFound = errors.New("sheet not found")

// Values is the subset of the Sheets API used by the ledger. Ranges use A1
// notation, e.g. "Orders!A2:J".
type Values interface {
	Get(ctx context.Context, a1Range string) ([][]string, error)
	Append(ctx context.Context, a1Range string, rows [][]string) error
	Update(ctx context.Context, a1Range string, rows [][]string) error
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string) error
}

// Instrument wraps v so that every call is recorded in metrics
func Instrument(v Values) Values {
	return instrumented{next: v}
}

type instrumented struct {
	next Values
}

func observe(op string, start time.Time, err error) {
	metrics.ObserveSheetsOperation(op, time.Since(start).Seconds(), err)
}

func (i instrumented) Get(ctx context.Context, a1Range string) (rows [][]string, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, a1Range)
}

func (i instrumented) Append(ctx context.Context, a1Range string, rows [][]string) (err error) {
	defer func(start time.Time) { observe("append", start, err) }(time.Now())
	return i.next.Append(ctx, a1Range, rows)
}

func (i instrumented) Update(ctx context.Context, a1Range string, rows [][]string) (err error) {
	defer func(start time.Time) { observe("update", start, err) }(time.Now())
	return i.next.Update(ctx, a1Range, rows)
}

func (i instrumented) SheetTitles(ctx context.Context) (titles []string, err error) {
	defer func(start time.Time) { observe("titles", start, err) }(time.Now())
	return i.next.SheetTitles(ctx)
}

func (i instrumented) AddSheet(ctx context.Context, title string) (err error) {
	defer func(start time.Time) { observe("add_sheet", start, err) }(time.Now())
	return i.next.AddSheet(ctx, title)
}
