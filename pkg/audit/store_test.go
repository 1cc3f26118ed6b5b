package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := OrderEvent{
		OrderID:   "BUYZA-4567-20240611-101500",
		Phone:     "263771234567",
		Operation: "created",
		Status:    "New",
		Success:   true,
	}

	mock.ExpectExec(`INSERT INTO audit_events`).
		WithArgs(
			FacilityUser,                 // facility
			int(SeverityNotice),          // severity
			sqlmock.AnyArg(),             // timestamp
			sqlmock.AnyArg(),             // hostname
			"buyza",                      // appname
			sqlmock.AnyArg(),             // procid
			"order",                      // msgid
			"263771234567",               // phone
			"BUYZA-4567-20240611-101500", // order_id
			sqlmock.AnyArg(),             // sdata (JSON)
			sqlmock.AnyArg(),             // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(event); err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	mock.ExpectExec(`INSERT INTO audit_events`).WillReturnError(errors.New("connection reset"))

	err = store.Save(AdminEvent{Agent: "tendai", Operation: "message", Target: "263771234567"})
	if err == nil {
		t.Fatal("expected error from Save()")
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Save(WebhookEvent{Operation: WebhookVerify}); err != nil {
		t.Errorf("Save() with nil db error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db error = %v", err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	mock.ExpectClose()

	store := NewStoreWithDB(db)
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNewStoreWithoutURL(t *testing.T) {
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store != nil {
		t.Errorf("expected nil store without a database URL")
	}
}

func TestStoreSaveWithoutSubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_events`).
		WithArgs(
			FacilityAuth, int(SeverityInfo),
			sqlmock.AnyArg(), sqlmock.AnyArg(), "buyza", sqlmock.AnyArg(),
			"webhook",
			nil, // phone
			nil, // order_id
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := NewStoreWithDB(db).Save(WebhookEvent{Operation: WebhookVerify, ClientIP: "10.0.0.1", Success: true}); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreTrail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2024, 6, 11, 10, 15, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "timestamp", "severity", "msgid", "phone", "order_id", "message"}).
		AddRow(2, at, int(SeverityNotice), "order", "263771234567", "BUYZA-1", "order BUYZA-1 quoted (status Quote Sent)").
		AddRow(1, at, int(SeverityNotice), "order", "263771234567", "BUYZA-1", "order BUYZA-1 created (status New)")
	mock.ExpectQuery(`SELECT id, timestamp, severity, msgid, .* FROM audit_events WHERE msgid = \$1 AND order_id = \$2 ORDER BY id DESC LIMIT \$3`).
		WithArgs("order", "BUYZA-1", 10).
		WillReturnRows(rows)

	records, err := NewStoreWithDB(db).Trail(context.Background(), Filter{Msgid: "order", OrderID: "BUYZA-1", Limit: 10})
	if err != nil {
		t.Fatalf("Trail() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != 2 || records[0].Severity != SeverityNotice || records[0].Phone != "263771234567" {
		t.Errorf("unexpected newest record %+v", records[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreTrailUnfiltered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM audit_events ORDER BY id DESC$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "severity", "msgid", "phone", "order_id", "message"}))

	records, err := NewStoreWithDB(db).Trail(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Trail() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
