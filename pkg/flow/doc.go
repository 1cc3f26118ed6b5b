// Package flow is the conversation engine behind the WhatsApp webhook.
//
// Service.HandleIncoming takes a decoded webhook payload and, for every
// inbound message, drops duplicates, loads the customer's session, applies
// the menu state machine, records the interaction in the spreadsheet
// ledger, saves the session and sends the replies. Failures for one
// message do not stop the others; HandleIncoming returns them joined.
//
// # States
//
//	idle -> menu -> awaiting_online_details -> awaiting_quote -> awaiting_payment -> idle
//	                awaiting_assisted_details -> awaiting_quote
//	any  -> agent (until "menu")
//
// Agents drive the rest of the order through SendQuote, SetOrderStatus
// and SendAgentMessage, which the admin API exposes.
package flow
