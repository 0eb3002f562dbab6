// internal/common/config/config.go
package config

import "fmt"

// Delivery modes recognized per source.
const (
	DeliveryModeNotify = "notify"
	DeliveryModeExport = "export"
)

// Notify channels.
const (
	ChannelDiscord = "discord"
	ChannelEmail   = "email"
)

// Export formats.
const (
	FormatDelimitedText     = "delimited-text"
	FormatSpreadsheetBinary = "spreadsheet-binary"
)

// Dedup store backends.
const (
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
)

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	Logging LoggingConfig  `mapstructure:"logging"`
	HTTP    HTTPConfig     `mapstructure:"http"`
	Export  ExportConfig   `mapstructure:"export"`
	Google  GoogleConfig   `mapstructure:"google"`
	Store   StoreConfig    `mapstructure:"store"`
	Notify  NotifyConfig   `mapstructure:"notify"`
	Sources []SourceConfig `mapstructure:"sources"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// GoogleConfig holds the Forms/Sheets API settings.
type GoogleConfig struct {
	FormsBaseURL  string `mapstructure:"forms_base_url"`
	SheetsBaseURL string `mapstructure:"sheets_base_url"`
	AccessToken   string `mapstructure:"access_token"`
	Timeout       int    `mapstructure:"timeout_ms"` // milliseconds
}

// StoreConfig selects and configures the dedup store backend.
type StoreConfig struct {
	Backend    string         `mapstructure:"backend"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Address       string `mapstructure:"address"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	MembershipTTL int    `mapstructure:"membership_ttl_ms"` // milliseconds
}

// NotifyConfig holds settings for the notification sinks.
type NotifyConfig struct {
	Discord struct {
		WebhookURL string `mapstructure:"webhook_url"`
		EmbedColor string `mapstructure:"embed_color"`
		Timeout    int    `mapstructure:"timeout_ms"` // milliseconds
	} `mapstructure:"discord"`

	Email struct {
		Enabled bool     `mapstructure:"enabled"`
		Region  string   `mapstructure:"region"`
		From    string   `mapstructure:"from"`
		To      []string `mapstructure:"to"`
	} `mapstructure:"email"`
}

// SourceConfig identifies one form source and how its new rows are delivered.
// Loaded once at process start; immutable for the process lifetime.
type SourceConfig struct {
	ID              string            `mapstructure:"id"`
	DeliveryMode    string            `mapstructure:"delivery_mode"`
	IntervalSeconds int               `mapstructure:"interval_seconds"`
	Channel         string            `mapstructure:"channel"`
	ExportFormat    string            `mapstructure:"export_format"`
	FileName        string            `mapstructure:"file_name"`
	SingleColumn    string            `mapstructure:"single_column"`
	TxtFileName     string            `mapstructure:"txt_file_name"`
	ColumnMapping   map[string]string `mapstructure:"column_mapping"`
}
