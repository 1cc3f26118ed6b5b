package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/model"
	"github.com/munashe04/buyza/pkg/pricing"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	instance     *ServerInstance
	response     *http.Response
	responseBody []byte
	authToken    string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.instance != nil {
			s.instance.Stop()
		}
		return ctx, nil
	})

	// Background steps
	sc.Step(`^the bot is running$`, s.theBotIsRunning)

	// Webhook steps
	sc.Step(`^Meta verifies the webhook with token "([^"]*)" and challenge "([^"]*)"$`, s.metaVerifiesTheWebhook)
	sc.Step(`^customer "([^"]*)" sends "([^"]*)"$`, s.customerSends)
	sc.Step(`^customer "([^"]*)" sends:$`, s.customerSendsDoc)
	sc.Step(`^customer "([^"]*)" sends "([^"]*)" with an invalid signature$`, s.customerSendsWithInvalidSignature)
	sc.Step(`^I simulate customer "([^"]*)" sending "([^"]*)"$`, s.iSimulateCustomerSending)

	// Reply steps
	sc.Step(`^the bot should reply to "([^"]*)" with a message containing "([^"]*)"$`, s.theBotShouldReplyWith)
	sc.Step(`^the bot should have sent (\d+) messages? to "([^"]*)"$`, s.theBotShouldHaveSent)

	// Ledger and mirror steps
	sc.Step(`^the ledger should have (\d+) orders? for "([^"]*)"$`, s.theLedgerShouldHaveOrders)
	sc.Step(`^the latest order of "([^"]*)" should have ledger status "([^"]*)"$`, s.theLatestOrderShouldHaveLedgerStatus)
	sc.Step(`^the latest order of "([^"]*)" should be mirrored with status "([^"]*)"$`, s.theLatestOrderShouldBeMirrored)
	sc.Step(`^the mirrored order of "([^"]*)" should have a subtotal of "([^"]*)"$`, s.theMirroredOrderShouldHaveSubtotal)
	sc.Step(`^an audit record "([^"]*)" should exist$`, s.anAuditRecordShouldExist)
	sc.Step(`^the audit trail for customer "([^"]*)" should include "([^"]*)"$`, s.theAuditTrailForCustomerShouldInclude)

	// Response steps
	sc.Step(`^I request "([^"]*)"$`, s.iRequest)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response body should be "([^"]*)"$`, s.theResponseBodyShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)

	s.registerAdminSteps(sc)
}

// Background steps

func (s *StepsContext) theBotIsRunning() error {
	instance, err := StartServer(s.tc)
	if err != nil {
		return err
	}
	s.instance = instance
	return nil
}

// Webhook steps

func (s *StepsContext) metaVerifiesTheWebhook(token, challenge string) error {
	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", token)
	q.Set("hub.challenge", challenge)
	return s.do(http.MethodGet, "/chatbot/webhook?"+q.Encode(), nil, nil)
}

func (s *StepsContext) webhookBody(from, message string) ([]byte, error) {
	return json.Marshal(whatsapp.SimulatedPayload(from, message, time.Now()))
}

func (s *StepsContext) customerSends(from, message string) error {
	body, err := s.webhookBody(from, message)
	if err != nil {
		return err
	}
	return s.do(http.MethodPost, "/chatbot/webhook", body, map[string]string{
		"Content-Type":        "application/json",
		"X-Hub-Signature-256": whatsapp.SignatureHeaderValue(body, testAppSecret),
	})
}

func (s *StepsContext) customerSendsDoc(from string, doc *godog.DocString) error {
	return s.customerSends(from, doc.Content)
}

func (s *StepsContext) customerSendsWithInvalidSignature(from, message string) error {
	body, err := s.webhookBody(from, message)
	if err != nil {
		return err
	}
	return s.do(http.MethodPost, "/chatbot/webhook", body, map[string]string{
		"Content-Type":        "application/json",
		"X-Hub-Signature-256": whatsapp.SignatureHeaderValue(body, "wrong-secret"),
	})
}

func (s *StepsContext) iSimulateCustomerSending(from, message string) error {
	body, err := json.Marshal(map[string]string{"from": from, "message": message})
	if err != nil {
		return err
	}
	return s.do(http.MethodPost, "/chatbot/simulate", body, map[string]string{
		"Content-Type": "application/json",
	})
}

// Reply steps

func (s *StepsContext) theBotShouldReplyWith(to, substr string) error {
	sent := s.instance.Graph.Sent(to)
	if len(sent) == 0 {
		return fmt.Errorf("no messages sent to %s", to)
	}
	last := sent[len(sent)-1]
	if !strings.Contains(last.Body, substr) {
		return fmt.Errorf("expected last message to %s to contain %q, got:\n%s", to, substr, last.Body)
	}
	return nil
}

func (s *StepsContext) theBotShouldHaveSent(count int, to string) error {
	if got := len(s.instance.Graph.Sent(to)); got != count {
		return fmt.Errorf("expected %d messages to %s, got %d", count, to, got)
	}
	return nil
}

// Ledger and mirror steps

func (s *StepsContext) theLedgerShouldHaveOrders(count int, phone string) error {
	orders, err := s.instance.Ledger.CustomerOrders(context.Background(), phone)
	if err != nil {
		return err
	}
	if len(orders) != count {
		return fmt.Errorf("expected %d ledger orders for %s, got %d", count, phone, len(orders))
	}
	return nil
}

func (s *StepsContext) latestLedgerOrderID(phone string) (string, error) {
	orders, err := s.instance.Ledger.CustomerOrders(context.Background(), phone)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "", fmt.Errorf("no ledger orders for %s", phone)
	}
	return orders[len(orders)-1].ID, nil
}

func (s *StepsContext) theLatestOrderShouldHaveLedgerStatus(phone, status string) error {
	id, err := s.latestLedgerOrderID(phone)
	if err != nil {
		return err
	}
	order, err := s.instance.Ledger.FindOrder(context.Background(), id)
	if err != nil {
		return err
	}
	if order.Status != status {
		return fmt.Errorf("expected ledger status %q, got %q", status, order.Status)
	}
	return nil
}

func (s *StepsContext) latestMirroredOrder(phone string) (*model.Order, error) {
	var order model.Order
	err := s.tc.DB.Where("customer_phone = ?", phone).Order("id DESC").First(&order).Error
	if err != nil {
		return nil, fmt.Errorf("no mirrored order for %s: %w", phone, err)
	}
	return &order, nil
}

func (s *StepsContext) theLatestOrderShouldBeMirrored(phone, status string) error {
	order, err := s.latestMirroredOrder(phone)
	if err != nil {
		return err
	}
	if order.Status.String() != status {
		return fmt.Errorf("expected mirrored status %s, got %s", status, order.Status)
	}
	return nil
}

func (s *StepsContext) theMirroredOrderShouldHaveSubtotal(phone, subtotal string) error {
	order, err := s.latestMirroredOrder(phone)
	if err != nil {
		return err
	}
	if got := pricing.Format(order.Subtotal); got != subtotal {
		return fmt.Errorf("expected subtotal %s, got %s", subtotal, got)
	}
	return nil
}

func (s *StepsContext) anAuditRecordShouldExist(msgid string) error {
	records, err := audit.NewStoreWithDB(s.tc.RawDB).Trail(context.Background(), audit.Filter{Msgid: msgid, Limit: 1})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("no audit records with msgid " + msgid)
	}
	return nil
}

func (s *StepsContext) theAuditTrailForCustomerShouldInclude(phone, msgid string) error {
	records, err := audit.NewStoreWithDB(s.tc.RawDB).Trail(context.Background(), audit.Filter{Phone: phone})
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Msgid == msgid {
			return nil
		}
	}
	return fmt.Errorf("audit trail for %s has no %q record in %d records", phone, msgid, len(records))
}

// Response steps

func (s *StepsContext) iRequest(path string) error {
	return s.do(http.MethodGet, path, nil, nil)
}

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.response == nil {
		return errors.New("no response received")
	}
	if s.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldBe(expected string) error {
	if got := strings.TrimSpace(string(s.responseBody)); got != expected {
		return fmt.Errorf("expected body %q, got %q", expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(field, expected string) error {
	var body map[string]interface{}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	var cur interface{} = body
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field %s not found in %s", field, string(s.responseBody))
		}
		cur = obj[part]
	}
	if got := fmt.Sprint(cur); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

// do sends a request to the server under test and records the response
func (s *StepsContext) do(method, path string, body []byte, headers map[string]string) error {
	if s.instance == nil {
		return errors.New("the bot is not running")
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.instance.ServerURL+path, reader)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}
