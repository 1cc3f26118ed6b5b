// Package sheets keeps the Buyza customer and order ledger in a Google
// Sheets spreadsheet.
//
// The spreadsheet has two tabs:
//
//   - Customers (A-I): one profile row per phone number
//   - Orders (A-J): one row per order, appended and never deleted
//
// Values abstracts the handful of Sheets API calls the ledger needs. The
// Google backend talks to the Sheets v4 API with a service account; the
// memory backend keeps the grid in process for tests and offline runs.
//
// Rows are never reordered, so a row number found by a lookup stays valid.
// Read-modify-write sequences for one phone number are serialised.
package sheets
