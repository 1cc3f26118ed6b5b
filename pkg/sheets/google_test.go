package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSheetsAPI serves the Sheets v4 REST calls used by GoogleValues on top
// of a MemoryValues grid
type fakeSheetsAPI struct {
	t        *testing.T
	grid     *MemoryValues
	requests []string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	const prefix = "/v4/spreadsheets/sheet-123"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case rest == "" && r.Method == http.MethodGet:
		titles, _ := f.grid.SheetTitles(ctx)
		var sheets []map[string]interface{}
		for _, title := range titles {
			sheets = append(sheets, map[string]interface{}{"properties": map[string]string{"title": title}})
		}
		writeJSON(w, map[string]interface{}{"sheets": sheets})

	case rest == ":batchUpdate" && r.Method == http.MethodPost:
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		for _, rq := range req.Requests {
			if err := f.grid.AddSheet(ctx, rq.AddSheet.Properties.Title); err != nil {
				writeError(w, err.Error())
				return
			}
		}
		writeJSON(w, map[string]string{"spreadsheetId": "sheet-123"})

	case strings.HasPrefix(rest, "/values/"):
		a1, _ := url.PathUnescape(strings.TrimPrefix(rest, "/values/"))
		switch r.Method {
		case http.MethodGet:
			rows, err := f.grid.Get(ctx, a1)
			if err != nil {
				writeError(w, "Unable to parse range: "+a1)
				return
			}
			writeJSON(w, map[string]interface{}{"range": a1, "values": rows})
		case http.MethodPost, http.MethodPut:
			assert.Equal(f.t, "RAW", r.URL.Query().Get("valueInputOption"))
			var body struct {
				Values [][]string `json:"values"`
			}
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			var err error
			if strings.HasSuffix(a1, ":append") {
				err = f.grid.Append(ctx, strings.TrimSuffix(a1, ":append"), body.Values)
			} else {
				err = f.grid.Update(ctx, a1, body.Values)
			}
			if err != nil {
				writeError(w, "Unable to parse range: "+a1)
				return
			}
			writeJSON(w, map[string]string{"spreadsheetId": "sheet-123"})
		}
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": 400, "message": msg, "status": "INVALID_ARGUMENT"},
	})
}

func newFakeGoogle(t *testing.T) (*GoogleValues, *fakeSheetsAPI) {
	t.Helper()
	fake := &fakeSheetsAPI{t: t, grid: NewMemoryValues()}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	values, err := NewGoogleValues(context.Background(), GoogleConfig{
		SpreadsheetID:   "sheet-123",
		ApplicationName: "Buyza Bot",
		Endpoint:        srv.URL + "/",
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	return values, fake
}

func TestGoogleValues_RoundTrip(t *testing.T) {
	ctx := context.Background()
	values, fake := newFakeGoogle(t)

	require.NoError(t, values.AddSheet(ctx, "Orders"))
	titles, err := values.SheetTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders"}, titles)

	require.NoError(t, values.Update(ctx, "Orders!A1:B1", [][]string{{"Order ID", "Phone Number"}}))
	require.NoError(t, values.Append(ctx, "Orders!A:J", [][]string{{"BUYZA-4567-20240611-101500", "263771234567"}}))

	rows, err := values.Get(ctx, "Orders!A2:J")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"BUYZA-4567-20240611-101500", "263771234567"}}, rows)
	assert.Contains(t, fake.requests, "POST /v4/spreadsheets/sheet-123:batchUpdate")
}

func TestGoogleValues_MissingSheet(t *testing.T) {
	values, _ := newFakeGoogle(t)

	_, err := values.Get(context.Background(), "Nope!A1")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestGoogleValues_LedgerEndToEnd(t *testing.T) {
	ctx := context.Background()
	values, fake := newFakeGoogle(t)

	ledger := NewLedger(Instrument(values))
	require.NoError(t, ledger.EnsureTabs(ctx))

	res, err := ledger.SaveInteraction(ctx, Interaction{
		Type:    "Online Order Start",
		Phone:   "263771234567",
		Message: "1",
	})
	require.NoError(t, err)
	assert.True(t, res.Created)

	assert.Equal(t, OrderHeaders, fake.grid.Rows(OrdersSheet)[0])
	assert.Len(t, fake.grid.Rows(CustomersSheet), 2)
}

func TestNewGoogleValues_Validation(t *testing.T) {
	_, err := NewGoogleValues(context.Background(), GoogleConfig{})
	assert.ErrorContains(t, err, "spreadsheet id is required")

	_, err = NewGoogleValues(context.Background(), GoogleConfig{SpreadsheetID: "x"})
	assert.ErrorContains(t, err, "credentials are required")

	_, err = NewGoogleValues(context.Background(), GoogleConfig{SpreadsheetID: "x", CredentialsJSON: []byte("{")})
	assert.ErrorContains(t, err, "invalid service account credentials")
}
