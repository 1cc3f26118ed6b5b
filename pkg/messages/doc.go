// Package messages holds the bot's reply catalog.
//
// Replies are text/template strings keyed by name. The defaults are
// embedded from default.yaml; an operator can overlay their own wording with
// BUYZA_MESSAGES_PATH, and the server reloads that file when it changes.
//
// The catalog also carries the FAQ question and answer pairs.
package messages
