// Package payment recognises customer payment confirmations.
package payment
