// Package session keeps per-customer conversation state.
//
// A Session records where a customer is in the menu flow and which order
// the conversation is about. Sessions expire after the configured TTL of
// inactivity. The store also remembers inbound WhatsApp message IDs so that
// webhook retries from Meta are handled once.
//
// Two backends are provided: an in-process store for single instance
// deployments and tests, and a Redis store for deployments that run more
// than one replica.
package session
