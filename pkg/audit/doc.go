// Package audit provides audit logging for bot and agent operations.
//
// This package implements structured audit logging in RFC5424 syslog
// format for customer messages, order changes, webhook verification and
// admin API actions.
//
// # Event Types
//
//   - MessageEvent: an inbound message was handled by the flow
//   - OrderEvent: a ledger order was created or changed
//   - WebhookEvent: subscription handshake or signature check
//   - AdminEvent: an agent acted through the admin API
//
// # Usage
//
//	audit.Log(audit.OrderEvent{
//	    OrderID:   "BUYZA-4567-20240611-101500",
//	    Operation: "created",
//	    Status:    "New",
//	    Success:   true,
//	})
//
// Events are written to stdout and, when AUDIT_DATABASE_URL is set, to the
// audit_events table. BUYZA_AUDIT_ENABLED=false turns auditing off.
package audit
