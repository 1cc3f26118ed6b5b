// Command buyzactl runs and operates the Buyza WhatsApp order bot.
//
// Customers message the bot on WhatsApp to place online or assisted
// orders. Every interaction is recorded in a Google Sheets spreadsheet
// with a Customers tab and an Orders tab, which agents work from
// directly. When DATABASE_URL is set orders are also mirrored into
// PostgreSQL and audit records are kept in the messages table.
//
// # Quick Start
//
//	# Create the Customers and Orders tabs
//	buyzactl sheets init
//
//	# Run database migrations (only when using the order mirror)
//	buyzactl db migrate
//
//	# Start the server
//	buyzactl server
//
//	# Send a test message through the running bot
//	buyzactl simulate 263771234567 hi
//
// # Environment Variables
//
//   - WHATSAPP_VERIFY_TOKEN: token echoed during webhook verification
//   - WHATSAPP_ACCESS_TOKEN: Cloud API bearer token
//   - WHATSAPP_APP_SECRET: secret for X-Hub-Signature-256 validation
//   - WHATSAPP_PHONE_NUMBER_ID: business number messages are sent from
//   - GOOGLE_SHEETS_SPREADSHEET_ID: spreadsheet holding the ledger
//   - GOOGLE_CREDENTIALS_BASE64: base64 encoded service account JSON
//   - BUYZA_SESSION_BACKEND: memory or redis
//   - REDIS_URL: redis connection URL
//   - DATABASE_URL: PostgreSQL connection string for the order mirror
//   - BUYZA_ADMIN_JWT_SECRET: enables the admin API
//   - LOG_LEVEL: log level (debug, info, warn, error)
//   - PORT: server port (default: 8000)
//
// Run "buyzactl configuration show" to see every attribute and where its
// value came from.
package main
