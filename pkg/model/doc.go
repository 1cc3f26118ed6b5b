// Package model defines the database models for the Buyza order mirror.
//
// The Google Sheets ledger is the system of record. When DATABASE_URL is
// set, orders are also written to PostgreSQL so that they can be queried
// and reported on with SQL.
//
// # Database Schema
//
//   - orders: one row per ledger order, keyed by the ledger order reference
package model
