package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/buyza/config"
	ConfigFileName    = "buyza.yml"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// BotConfig holds all bot configuration settings
type BotConfig struct {
	// WhatsAppVerifyToken is echoed back during the webhook subscription handshake
	WhatsAppVerifyToken string `yaml:"whatsapp_verify_token" json:"whatsapp_verify_token"`

	// WhatsAppAccessToken is the Cloud API bearer token used to send messages
	WhatsAppAccessToken string `yaml:"whatsapp_access_token" json:"whatsapp_access_token"`

	// WhatsAppAppSecret signs inbound webhook bodies (X-Hub-Signature-256)
	WhatsAppAppSecret string `yaml:"whatsapp_app_secret" json:"whatsapp_app_secret"`

	// WhatsAppPhoneNumberID is the business phone number messages are sent from
	WhatsAppPhoneNumberID string `yaml:"whatsapp_phone_number_id" json:"whatsapp_phone_number_id"`

	// WhatsAppSignatureCheck toggles webhook signature validation
	WhatsAppSignatureCheck bool `yaml:"whatsapp_signature_check" json:"whatsapp_signature_check"`

	// WhatsAppGraphURL is the Graph API base URL
	WhatsAppGraphURL string `yaml:"whatsapp_graph_url" json:"whatsapp_graph_url"`

	// WhatsAppGraphVersion is the Graph API version path segment
	WhatsAppGraphVersion string `yaml:"whatsapp_graph_version" json:"whatsapp_graph_version"`

	// WhatsAppSendRate is the maximum number of outbound messages per second
	WhatsAppSendRate int `yaml:"whatsapp_send_rate" json:"whatsapp_send_rate"`

	// SheetsSpreadsheetID is the spreadsheet holding the Customers and Orders tabs
	SheetsSpreadsheetID string `yaml:"sheets_spreadsheet_id" json:"sheets_spreadsheet_id"`

	// SheetsCredentialsBase64 is the base64 encoded service account JSON
	SheetsCredentialsBase64 string `yaml:"sheets_credentials_base64" json:"sheets_credentials_base64"`

	// SheetsApplicationName is reported to the Sheets API as the user agent
	SheetsApplicationName string `yaml:"sheets_application_name" json:"sheets_application_name"`

	// SessionBackend selects where conversation sessions live (memory or redis)
	SessionBackend string `yaml:"session_backend" json:"session_backend"`

	// RedisURL is the redis connection URL for the redis session backend
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	// SessionTTL is the idle lifetime of a conversation session in seconds
	SessionTTL int `yaml:"session_ttl" json:"session_ttl"`

	// DatabaseURL enables the PostgreSQL order mirror when set
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// AdminJWTSecret enables the admin API and signs agent tokens
	AdminJWTSecret string `yaml:"admin_jwt_secret" json:"admin_jwt_secret"`

	// WebhookRateLimit is the number of webhook requests allowed per minute per IP
	WebhookRateLimit int `yaml:"webhook_rate_limit" json:"webhook_rate_limit"`

	// MessagesPath points at a YAML reply catalog overriding the built-in one
	MessagesPath string `yaml:"messages_path" json:"messages_path"`

	// LogLevel is the zerolog level name
	LogLevel string `yaml:"log_level" json:"log_level"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// fileConfig mirrors BotConfig for YAML decoding. Booleans are pointers so
// an explicit false in the file can be told apart from an absent key.
type fileConfig struct {
	WhatsAppVerifyToken     string `yaml:"whatsapp_verify_token"`
	WhatsAppAccessToken     string `yaml:"whatsapp_access_token"`
	WhatsAppAppSecret       string `yaml:"whatsapp_app_secret"`
	WhatsAppPhoneNumberID   string `yaml:"whatsapp_phone_number_id"`
	WhatsAppSignatureCheck  *bool  `yaml:"whatsapp_signature_check"`
	WhatsAppGraphURL        string `yaml:"whatsapp_graph_url"`
	WhatsAppGraphVersion    string `yaml:"whatsapp_graph_version"`
	WhatsAppSendRate        int    `yaml:"whatsapp_send_rate"`
	SheetsSpreadsheetID     string `yaml:"sheets_spreadsheet_id"`
	SheetsCredentialsBase64 string `yaml:"sheets_credentials_base64"`
	SheetsApplicationName   string `yaml:"sheets_application_name"`
	SessionBackend          string `yaml:"session_backend"`
	RedisURL                string `yaml:"redis_url"`
	SessionTTL              int    `yaml:"session_ttl"`
	DatabaseURL             string `yaml:"database_url"`
	AdminJWTSecret          string `yaml:"admin_jwt_secret"`
	WebhookRateLimit        int    `yaml:"webhook_rate_limit"`
	MessagesPath            string `yaml:"messages_path"`
	LogLevel                string `yaml:"log_level"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *BotConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *BotConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *BotConfig {
	return &BotConfig{
		WhatsAppSignatureCheck: true,
		WhatsAppGraphURL:       "https://graph.facebook.com",
		WhatsAppGraphVersion:   "v19.0",
		WhatsAppSendRate:       20,
		SheetsApplicationName:  "Buyza Bot",
		SessionBackend:         SessionBackendMemory,
		SessionTTL:             86400,
		WebhookRateLimit:       600,
		LogLevel:               "info",
		sources:                make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*BotConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("BUYZA_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&file)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"whatsapp_verify_token", "whatsapp_access_token", "whatsapp_app_secret",
		"whatsapp_phone_number_id", "whatsapp_signature_check", "whatsapp_graph_url",
		"whatsapp_graph_version", "whatsapp_send_rate", "sheets_spreadsheet_id",
		"sheets_credentials_base64", "sheets_application_name", "session_backend",
		"redis_url", "session_ttl", "database_url", "admin_jwt_secret",
		"webhook_rate_limit", "messages_path", "log_level",
	}
}

func (c *BotConfig) setString(dst *string, name, value, source string) {
	if value == "" {
		return
	}
	*dst = value
	c.sources[name] = source
}

func (c *BotConfig) setInt(dst *int, name string, value int, source string) {
	if value == 0 {
		return
	}
	*dst = value
	c.sources[name] = source
}

func (c *BotConfig) applyFileConfig(file *fileConfig) {
	c.setString(&c.WhatsAppVerifyToken, "whatsapp_verify_token", file.WhatsAppVerifyToken, "file")
	c.setString(&c.WhatsAppAccessToken, "whatsapp_access_token", file.WhatsAppAccessToken, "file")
	c.setString(&c.WhatsAppAppSecret, "whatsapp_app_secret", file.WhatsAppAppSecret, "file")
	c.setString(&c.WhatsAppPhoneNumberID, "whatsapp_phone_number_id", file.WhatsAppPhoneNumberID, "file")
	if file.WhatsAppSignatureCheck != nil {
		c.WhatsAppSignatureCheck = *file.WhatsAppSignatureCheck
		c.sources["whatsapp_signature_check"] = "file"
	}
	c.setString(&c.WhatsAppGraphURL, "whatsapp_graph_url", file.WhatsAppGraphURL, "file")
	c.setString(&c.WhatsAppGraphVersion, "whatsapp_graph_version", file.WhatsAppGraphVersion, "file")
	c.setInt(&c.WhatsAppSendRate, "whatsapp_send_rate", file.WhatsAppSendRate, "file")
	c.setString(&c.SheetsSpreadsheetID, "sheets_spreadsheet_id", file.SheetsSpreadsheetID, "file")
	c.setString(&c.SheetsCredentialsBase64, "sheets_credentials_base64", file.SheetsCredentialsBase64, "file")
	c.setString(&c.SheetsApplicationName, "sheets_application_name", file.SheetsApplicationName, "file")
	c.setString(&c.SessionBackend, "session_backend", file.SessionBackend, "file")
	c.setString(&c.RedisURL, "redis_url", file.RedisURL, "file")
	c.setInt(&c.SessionTTL, "session_ttl", file.SessionTTL, "file")
	c.setString(&c.DatabaseURL, "database_url", file.DatabaseURL, "file")
	c.setString(&c.AdminJWTSecret, "admin_jwt_secret", file.AdminJWTSecret, "file")
	c.setInt(&c.WebhookRateLimit, "webhook_rate_limit", file.WebhookRateLimit, "file")
	c.setString(&c.MessagesPath, "messages_path", file.MessagesPath, "file")
	c.setString(&c.LogLevel, "log_level", file.LogLevel, "file")
}

func (c *BotConfig) applyEnvConfig() {
	c.setString(&c.WhatsAppVerifyToken, "whatsapp_verify_token", os.Getenv("WHATSAPP_VERIFY_TOKEN"), "environment")
	c.setString(&c.WhatsAppAccessToken, "whatsapp_access_token", os.Getenv("WHATSAPP_ACCESS_TOKEN"), "environment")
	c.setString(&c.WhatsAppAppSecret, "whatsapp_app_secret", os.Getenv("WHATSAPP_APP_SECRET"), "environment")
	c.setString(&c.WhatsAppPhoneNumberID, "whatsapp_phone_number_id", os.Getenv("WHATSAPP_PHONE_NUMBER_ID"), "environment")
	if val := os.Getenv("WHATSAPP_SIGNATURE_CHECK"); val != "" {
		c.WhatsAppSignatureCheck = parseBool(val)
		c.sources["whatsapp_signature_check"] = "environment"
	}
	c.setString(&c.WhatsAppGraphURL, "whatsapp_graph_url", os.Getenv("WHATSAPP_GRAPH_URL"), "environment")
	c.setString(&c.WhatsAppGraphVersion, "whatsapp_graph_version", os.Getenv("WHATSAPP_GRAPH_VERSION"), "environment")
	c.setInt(&c.WhatsAppSendRate, "whatsapp_send_rate", envInt("WHATSAPP_SEND_RATE"), "environment")
	c.setString(&c.SheetsSpreadsheetID, "sheets_spreadsheet_id", os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"), "environment")
	creds := os.Getenv("GOOGLE_CREDENTIALS_BASE64")
	if creds == "" {
		creds = os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON_BASE64")
	}
	c.setString(&c.SheetsCredentialsBase64, "sheets_credentials_base64", creds, "environment")
	c.setString(&c.SheetsApplicationName, "sheets_application_name", os.Getenv("GOOGLE_SHEETS_APPLICATION_NAME"), "environment")
	c.setString(&c.SessionBackend, "session_backend", os.Getenv("BUYZA_SESSION_BACKEND"), "environment")
	c.setString(&c.RedisURL, "redis_url", os.Getenv("REDIS_URL"), "environment")
	c.setInt(&c.SessionTTL, "session_ttl", envInt("BUYZA_SESSION_TTL"), "environment")
	c.setString(&c.DatabaseURL, "database_url", os.Getenv("DATABASE_URL"), "environment")
	c.setString(&c.AdminJWTSecret, "admin_jwt_secret", os.Getenv("BUYZA_ADMIN_JWT_SECRET"), "environment")
	c.setInt(&c.WebhookRateLimit, "webhook_rate_limit", envInt("BUYZA_WEBHOOK_RATE_LIMIT"), "environment")
	c.setString(&c.MessagesPath, "messages_path", os.Getenv("BUYZA_MESSAGES_PATH"), "environment")
	c.setString(&c.LogLevel, "log_level", os.Getenv("LOG_LEVEL"), "environment")
}

func envInt(name string) int {
	val := os.Getenv(name)
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(val string) bool {
	return val == "true" || val == "1" || val == "yes"
}

// ConfigFilePath returns the path to the config file
func (c *BotConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *BotConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// SessionTTLDuration returns the session TTL as a duration
func (c *BotConfig) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// CredentialsJSON decodes the base64 service account credentials
func (c *BotConfig) CredentialsJSON() ([]byte, error) {
	if c.SheetsCredentialsBase64 == "" {
		return nil, fmt.Errorf("missing GOOGLE_CREDENTIALS_BASE64 environment variable")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.SheetsCredentialsBase64))
	if err != nil {
		return nil, fmt.Errorf("invalid sheets_credentials_base64: %w", err)
	}
	return data, nil
}

// AdminEnabled reports whether the admin API is configured
func (c *BotConfig) AdminEnabled() bool {
	return c.AdminJWTSecret != ""
}

// Validate validates the configuration
func (c *BotConfig) Validate() error {
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required when session_backend is %q", SessionBackendRedis)
		}
	default:
		return fmt.Errorf("invalid session_backend value: %s", c.SessionBackend)
	}

	if c.SheetsCredentialsBase64 != "" {
		if _, err := c.CredentialsJSON(); err != nil {
			return err
		}
	}

	if c.WhatsAppSendRate <= 0 {
		return fmt.Errorf("whatsapp_send_rate must be positive, got %d", c.WhatsAppSendRate)
	}
	if c.WebhookRateLimit <= 0 {
		return fmt.Errorf("webhook_rate_limit must be positive, got %d", c.WebhookRateLimit)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %d", c.SessionTTL)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources.
// Secret values are masked.
func (c *BotConfig) Attributes() []Attribute {
	attr := func(name, value string) Attribute {
		if isSensitive(name) && value != "" {
			value = maskedValue
		}
		return Attribute{Name: name, Value: value, Source: c.Source(name)}
	}
	return []Attribute{
		attr("whatsapp_verify_token", c.WhatsAppVerifyToken),
		attr("whatsapp_access_token", c.WhatsAppAccessToken),
		attr("whatsapp_app_secret", c.WhatsAppAppSecret),
		attr("whatsapp_phone_number_id", c.WhatsAppPhoneNumberID),
		attr("whatsapp_signature_check", strconv.FormatBool(c.WhatsAppSignatureCheck)),
		attr("whatsapp_graph_url", c.WhatsAppGraphURL),
		attr("whatsapp_graph_version", c.WhatsAppGraphVersion),
		attr("whatsapp_send_rate", strconv.Itoa(c.WhatsAppSendRate)),
		attr("sheets_spreadsheet_id", c.SheetsSpreadsheetID),
		attr("sheets_credentials_base64", c.SheetsCredentialsBase64),
		attr("sheets_application_name", c.SheetsApplicationName),
		attr("session_backend", c.SessionBackend),
		attr("redis_url", c.RedisURL),
		attr("session_ttl", strconv.Itoa(c.SessionTTL)),
		attr("database_url", c.DatabaseURL),
		attr("admin_jwt_secret", c.AdminJWTSecret),
		attr("webhook_rate_limit", strconv.Itoa(c.WebhookRateLimit)),
		attr("messages_path", c.MessagesPath),
		attr("log_level", c.LogLevel),
	}
}

// FormatText returns a text representation of the configuration
func (c *BotConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *BotConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
