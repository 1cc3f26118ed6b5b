package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/munashe04/buyza/pkg/config"
	"github.com/munashe04/buyza/pkg/flow"
	"github.com/munashe04/buyza/pkg/server"
	"github.com/munashe04/buyza/pkg/server/endpoints"
	gormstore "github.com/munashe04/buyza/pkg/server/store/gorm"
	"github.com/munashe04/buyza/pkg/session"
	"github.com/munashe04/buyza/pkg/sheets"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

const (
	testVerifyToken   = "integration-verify"
	testAppSecret     = "integration-secret"
	testJWTSecret     = "integration-admin"
	testPhoneNumberID = "1000001"
)

// OutboundMessage is a text message the bot sent through the Graph API
type OutboundMessage struct {
	To   string
	Body string
}

// GraphAPI is a fake Cloud API messages endpoint that records sends
type GraphAPI struct {
	srv   *httptest.Server
	mu    sync.Mutex
	sent  []OutboundMessage
	count int64
}

func newGraphAPI() *GraphAPI {
	g := &GraphAPI{}
	g.srv = httptest.NewServer(http.HandlerFunc(g.handle))
	return g
}

func (g *GraphAPI) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/"+testPhoneNumberID+"/messages") {
		http.NotFound(w, r)
		return
	}
	var req struct {
		To   string `json:"to"`
		Type string `json:"type"`
		Text struct {
			Body string `json:"body"`
		} `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Type == "text" {
		g.mu.Lock()
		g.sent = append(g.sent, OutboundMessage{To: req.To, Body: req.Text.Body})
		g.mu.Unlock()
	}
	id := atomic.AddInt64(&g.count, 1)
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"messaging_product":"whatsapp","messages":[{"id":"wamid.%d"}]}`, id)
}

// Sent returns the messages sent to a phone number
func (g *GraphAPI) Sent(to string) []OutboundMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []OutboundMessage
	for _, m := range g.sent {
		if m.To == to {
			out = append(out, m)
		}
	}
	return out
}

// Close stops the fake API
func (g *GraphAPI) Close() {
	g.srv.Close()
}

// ServerInstance is a bot server wired to the test database, an in-memory
// ledger and the fake Graph API
type ServerInstance struct {
	Server    *server.Server
	ServerURL string
	Graph     *GraphAPI
	Values    *sheets.MemoryValues
	Ledger    *sheets.Ledger

	http *httptest.Server
}

// StartServer creates and starts a server instance for one scenario
func StartServer(tc *TestContext) (*ServerInstance, error) {
	graph := newGraphAPI()

	values := sheets.NewMemoryValues()
	ledger := sheets.NewLedger(values)
	if err := ledger.EnsureTabs(context.Background()); err != nil {
		graph.Close()
		return nil, fmt.Errorf("failed to prepare ledger: %w", err)
	}

	cfg := &config.BotConfig{
		WhatsAppVerifyToken:    testVerifyToken,
		WhatsAppAppSecret:      testAppSecret,
		WhatsAppPhoneNumberID:  testPhoneNumberID,
		WhatsAppSignatureCheck: true,
		WhatsAppGraphURL:       graph.srv.URL,
		WhatsAppGraphVersion:   "v19.0",
		WhatsAppSendRate:       100,
		SessionBackend:         config.SessionBackendMemory,
		SessionTTL:             3600,
		WebhookRateLimit:       1000,
		AdminJWTSecret:         testJWTSecret,
		DatabaseURL:            tc.DatabaseURL,
	}

	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		GraphURL:      cfg.WhatsAppGraphURL,
		GraphVersion:  cfg.WhatsAppGraphVersion,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		SendRate:      cfg.WhatsAppSendRate,
		HTTPClient:    graph.srv.Client(),
	})

	orders := gormstore.NewOrderStore(tc.DB)
	svc := flow.NewService(flow.Config{
		Ledger:   ledger,
		Sessions: session.NewMemoryStore(cfg.SessionTTLDuration()),
		Sender:   sender,
		Orders:   orders,
	})

	s := server.NewServer(cfg, svc, "127.0.0.1", "0")
	s.Orders = orders
	s.HealthStore = gormstore.NewHealthStore(tc.DB)
	endpoints.RegisterAll(s)

	ts := httptest.NewServer(s.Handler())

	return &ServerInstance{
		Server:    s,
		ServerURL: ts.URL,
		Graph:     graph,
		Values:    values,
		Ledger:    ledger,
		http:      ts,
	}, nil
}

// Stop shuts down the server instance
func (si *ServerInstance) Stop() {
	if si.http != nil {
		si.http.Close()
	}
	if si.Graph != nil {
		si.Graph.Close()
	}
}
