// Package config provides configuration management for the Buyza bot.
//
// This package handles loading and validating bot configuration from a YAML
// file and environment variables. Every attribute remembers where its value
// came from so that `buyzactl configuration show` can explain it.
//
// # Configuration Sources
//
// Configuration is loaded from (highest precedence last):
//
//   - Built-in defaults
//   - Configuration file ($BUYZA_CONFIG_PATH/buyza.yml)
//   - Environment variables
//
// # Key Configuration Options
//
//   - WHATSAPP_VERIFY_TOKEN: Webhook verification token
//   - WHATSAPP_ACCESS_TOKEN: Cloud API bearer token
//   - WHATSAPP_APP_SECRET: App secret for X-Hub-Signature-256
//   - WHATSAPP_PHONE_NUMBER_ID: Sending phone number
//   - GOOGLE_SHEETS_SPREADSHEET_ID: Target spreadsheet
//   - GOOGLE_CREDENTIALS_BASE64: Base64 service account JSON
//   - DATABASE_URL: Optional order mirror database
//   - REDIS_URL: Session store when BUYZA_SESSION_BACKEND=redis
package config
