package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const valueInputRaw = "RAW"

// GoogleConfig configures the Sheets API backend
type GoogleConfig struct {
	SpreadsheetID   string
	CredentialsJSON []byte
	ApplicationName string
	// Endpoint and HTTPClient override the API location and transport.
	// When HTTPClient is set credentials are not used.
	Endpoint   string
	HTTPClient *http.Client
}

// GoogleValues implements Values on the Sheets v4 API
type GoogleValues struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// Ensure GoogleValues implements Values
var _ Values = (*GoogleValues)(nil)

// NewGoogleValues creates a Sheets client authenticated with a service
// account key
func NewGoogleValues(ctx context.Context, cfg GoogleConfig) (*GoogleValues, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	var opts []option.ClientOption
	if cfg.ApplicationName != "" {
		opts = append(opts, option.WithUserAgent(cfg.ApplicationName))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		if len(cfg.CredentialsJSON) == 0 {
			return nil, fmt.Errorf("service account credentials are required")
		}
		creds, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("invalid service account credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// Get reads a range as formatted strings
func (g *GoogleValues) Get(ctx context.Context, a1Range string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("get "+a1Range, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, cells)
	}
	return out, nil
}

// Append adds rows after the table found in the range
func (g *GoogleValues) Append(ctx context.Context, a1Range string, rows [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, a1Range, valueRange(rows)).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError("append "+a1Range, err)
	}
	return nil
}

// Update overwrites the range
func (g *GoogleValues) Update(ctx context.Context, a1Range string, rows [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, a1Range, valueRange(rows)).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError("update "+a1Range, err)
	}
	return nil
}

// SheetTitles lists the spreadsheet's tabs
func (g *GoogleValues) SheetTitles(ctx context.Context) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("get spreadsheet", err)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

// AddSheet creates a new tab
func (g *GoogleValues) AddSheet(ctx context.Context, title string) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return wrapAPIError("add sheet "+title, err)
	}
	return nil
}

func valueRange(rows [][]string) *sheetsapi.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		values[i] = cells
	}
	return &sheetsapi.ValueRange{Values: values}
}

// wrapAPIError maps "Unable to parse range" answers to ErrSheetNotFound
func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest && containsFold(apiErr.Message, "unable to parse range") {
		return fmt.Errorf("sheets %s: %w: %s", op, ErrSheetNotFound, apiErr.Message)
	}
	return fmt.Errorf("sheets %s: %w", op, err)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
