package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const insertEvent = `
	INSERT INTO audit_events (facility, severity, timestamp, hostname, appname, procid, msgid, phone, order_id, sdata, message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Store writes audit events to the audit_events table, keyed by the
// customer phone and order they concern so an order's trail can be read back
type Store struct {
	db       *sql.DB
	hostname string
}

// Record is one stored audit event
type Record struct {
	ID        int64
	Timestamp time.Time
	Severity  Severity
	Msgid     string
	Phone     string
	OrderID   string
	Message   string
}

// Filter narrows Trail. Empty fields match everything.
type Filter struct {
	Msgid   string
	Phone   string
	OrderID string
	Limit   int
}

// NewStore opens an audit store on dbURL. An empty URL disables the store
// and returns nil.
func NewStore(dbURL string) (*Store, error) {
	if dbURL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	return NewStoreWithDB(db), nil
}

// NewStoreWithDB creates a store on an existing connection
func NewStoreWithDB(db *sql.DB) *Store {
	hostname, _ := os.Hostname()
	return &Store{db: db, hostname: hostname}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists an event
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}

	sd := event.StructuredData()
	sdataJSON, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	phone, orderID := eventSubject(sd)

	_, err = s.db.Exec(insertEvent,
		event.Facility(),
		int(event.Severity()),
		time.Now().UTC(),
		s.hostname,
		appName,
		strconv.Itoa(os.Getpid()),
		event.MessageID(),
		nullable(phone),
		nullable(orderID),
		sdataJSON,
		event.Message(),
	)
	return err
}

// Trail returns stored events matching f, newest first
func (s *Store) Trail(ctx context.Context, f Filter) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}

	var (
		where []string
		args  []interface{}
	)
	for _, c := range []struct{ column, value string }{
		{"msgid", f.Msgid},
		{"phone", f.Phone},
		{"order_id", f.OrderID},
	} {
		if c.value == "" {
			continue
		}
		args = append(args, c.value)
		where = append(where, fmt.Sprintf("%s = $%d", c.column, len(args)))
	}

	query := "SELECT id, timestamp, severity, msgid, COALESCE(phone, ''), COALESCE(order_id, ''), message FROM audit_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var sev int
		if err := rows.Scan(&r.ID, &r.Timestamp, &sev, &r.Msgid, &r.Phone, &r.OrderID, &r.Message); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		r.Severity = Severity(sev)
		out = append(out, r)
	}
	return out, rows.Err()
}

// eventSubject picks the customer phone and order ID out of structured data
func eventSubject(sd map[string]map[string]string) (phone, orderID string) {
	return sd[SDIDSubject]["phone"], sd[SDIDOrder]["id"]
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
