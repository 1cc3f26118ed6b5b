package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// MaxTextLength is the Cloud API limit for a text message body
const MaxTextLength = 4096

const (
	defaultGraphURL     = "https://graph.facebook.com"
	defaultGraphVersion = "v19.0"
)

// Sender sends text messages to WhatsApp users
type Sender interface {
	SendText(ctx context.Context, to, body string) (*SendResponse, error)
}

// ClientConfig configures a Cloud API client
type ClientConfig struct {
	GraphURL      string
	GraphVersion  string
	PhoneNumberID string
	AccessToken   string
	// SendRate limits outbound requests per second. Zero disables pacing.
	SendRate   int
	HTTPClient *http.Client
}

// Client talks to the Graph API messages endpoint
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
	limiter       *rate.Limiter
}

// Ensure Client implements Sender
var _ Sender = (*Client)(nil)

// NewClient creates a new Cloud API client
func NewClient(cfg ClientConfig) *Client {
	graphURL := strings.TrimRight(cfg.GraphURL, "/")
	if graphURL == "" {
		graphURL = defaultGraphURL
	}
	version := cfg.GraphVersion
	if version == "" {
		version = defaultGraphVersion
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendRate)
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       graphURL + "/" + version,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		limiter:       limiter,
	}
}

type textMessageRequest struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type,omitempty"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             Text   `json:"text"`
}

type readRequest struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// SendResponse is the Graph API answer to a message send
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the ID of the first sent message, if any
func (r *SendResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// APIError is a non-2xx answer from the Graph API
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("whatsapp api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("whatsapp api: status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Temporary reports whether retrying the request may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a plain text message. Bodies longer than MaxTextLength
// characters are truncated.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	if to == "" {
		return nil, fmt.Errorf("whatsapp: recipient is required")
	}
	req := textMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             Text{Body: truncate(body, MaxTextLength)},
	}
	var resp SendResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead marks an inbound message as read
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.post(ctx, readRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}, nil)
}

func (c *Client) post(ctx context.Context, payload interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("whatsapp: rate limiter: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: encode request: %w", err)
	}

	url := c.baseURL + "/" + c.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("whatsapp: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(respBody, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Type = env.Error.Type
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("whatsapp: decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
