// Package pricing computes Buyza order quotes.
//
// Amounts are int64 cents in South African rand. A quote is the goods value
// plus a service fee (10% for online orders, 20% for assisted orders) plus a
// delivery fee that depends on the Zimbabwean delivery town.
package pricing
