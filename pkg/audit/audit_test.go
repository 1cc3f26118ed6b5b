package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.hostname = "bot-1"
	logger.pid = 42
	logger.now = func() time.Time { return time.Date(2024, 6, 11, 10, 15, 0, 0, time.UTC) }

	logger.Log(WebhookEvent{Operation: WebhookSignature, ClientIP: "192.168.1.1", Success: true})

	want := `<38>1 2024-06-11T10:15:00.000Z bot-1 buyza 42 webhook ` +
		`[action@32473 operation="signature" result="success"][client@32473 ip="192.168.1.1"] ` +
		"webhook signature succeeded from 192.168.1.1\n"
	if got := buf.String(); got != want {
		t.Errorf("Log() =\n%q\nwant\n%q", got, want)
	}
}

func TestLoggerMissingHostname(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.hostname = ""

	logger.Log(OrderEvent{OrderID: "BUYZA-1", Operation: "created", Status: "New", Success: true})

	if !strings.Contains(buf.String(), " - buyza ") {
		t.Errorf("expected nil hostname in %q", buf.String())
	}
}

func TestEscapeSDValue(t *testing.T) {
	got := escapeSDValue(`a"b]c\d`)
	want := `"a\"b\]c\\d"`
	if got != want {
		t.Errorf("escapeSDValue() = %s, want %s", got, want)
	}
}

func TestMessageEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   MessageEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name: "handled",
			event: MessageEvent{
				Phone: "263771234567", WAMessageID: "wamid.1",
				FromState: "menu", ToState: "awaiting_online_details", Success: true,
			},
			wantMsg: "263771234567 message handled (menu -> awaiting_online_details)",
			wantSev: SeverityInfo,
		},
		{
			name: "failed",
			event: MessageEvent{
				Phone: "263771234567", WAMessageID: "wamid.2",
				FromState: "awaiting_quote", Error: "sheets unavailable",
			},
			wantMsg: "263771234567 message failed in state awaiting_quote: sheets unavailable",
			wantSev: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.event.Severity(); got != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", got, tt.wantSev)
			}
			if got := tt.event.Facility(); got != FacilityUser {
				t.Errorf("Facility() = %v, want %v", got, FacilityUser)
			}
			if got := tt.event.MessageID(); got != "message" {
				t.Errorf("MessageID() = %q, want message", got)
			}
		})
	}
}

func TestMessageEventOrderData(t *testing.T) {
	sd := MessageEvent{Phone: "263771234567", WAMessageID: "wamid.7", OrderID: "BUYZA-1", Success: true}.StructuredData()
	if sd[SDIDOrder]["id"] != "BUYZA-1" {
		t.Errorf("expected order id in structured data, got %v", sd)
	}
	if sd[SDIDSubject]["message"] != "wamid.7" {
		t.Errorf("expected WhatsApp message id in subject, got %v", sd[SDIDSubject])
	}

	sd = MessageEvent{Phone: "263771234567", Success: true}.StructuredData()
	if _, ok := sd[SDIDOrder]; ok {
		t.Errorf("expected no order element without an order, got %v", sd)
	}
}

func TestOrderEvent(t *testing.T) {
	ok := OrderEvent{OrderID: "BUYZA-1", Phone: "263771234567", Operation: "cancelled", Status: "Cancelled", Success: true}
	if got := ok.Message(); got != "order BUYZA-1 cancelled (status Cancelled)" {
		t.Errorf("Message() = %q", got)
	}
	if ok.Severity() != SeverityNotice {
		t.Errorf("Severity() = %v, want notice", ok.Severity())
	}
	if ok.StructuredData()[SDIDOrder]["status"] != "Cancelled" {
		t.Errorf("StructuredData() = %v", ok.StructuredData())
	}

	failed := OrderEvent{OrderID: "BUYZA-1", Operation: "quoted", Error: "row missing"}
	if got := failed.Message(); got != "order BUYZA-1 could not be quoted: row missing" {
		t.Errorf("Message() = %q", got)
	}
	if failed.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want error", failed.Severity())
	}
}

func TestWebhookEvent(t *testing.T) {
	e := WebhookEvent{Operation: WebhookVerify, ClientIP: "10.0.0.1", Error: "token mismatch"}
	if got := e.Message(); got != "webhook verify failed from 10.0.0.1: token mismatch" {
		t.Errorf("Message() = %q", got)
	}
	if e.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want warning", e.Severity())
	}
	if e.Facility() != FacilityAuth {
		t.Errorf("Facility() = %v, want auth", e.Facility())
	}
	if e.StructuredData()[SDIDAction]["result"] != "failure" {
		t.Errorf("StructuredData() = %v", e.StructuredData())
	}
}

func TestAdminEvent(t *testing.T) {
	e := AdminEvent{Agent: "tendai", ClientIP: "10.0.0.1", Operation: "quote", Target: "BUYZA-1", Success: true}
	if got := e.Message(); got != "tendai performed quote on BUYZA-1" {
		t.Errorf("Message() = %q", got)
	}
	if e.Facility() != FacilityAuthPriv {
		t.Errorf("Facility() = %v, want authpriv", e.Facility())
	}
	if e.StructuredData()[SDIDAgent]["user"] != "tendai" {
		t.Errorf("StructuredData() = %v", e.StructuredData())
	}

	failed := AdminEvent{Agent: "tendai", Operation: "status", Target: "BUYZA-2", Error: "unknown order status"}
	if got := failed.Message(); got != "tendai failed to perform status on BUYZA-2: unknown order status" {
		t.Errorf("Message() = %q", got)
	}
}

func TestSetEnabled(t *testing.T) {
	original := IsEnabled()
	t.Cleanup(func() { SetEnabled(original) })

	var buf bytes.Buffer
	DefaultLogger.SetWriter(&buf)
	t.Cleanup(func() { DefaultLogger.SetWriter(&bytes.Buffer{}) })

	SetEnabled(false)
	Log(WebhookEvent{Operation: WebhookVerify, Success: true})
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
}
