// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GOOGLE_ACCESS_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from several locations so the loader works from
// the repo root, cmd/, and test directories alike.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from cwd looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills credentials from the environment when the
// config file left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Google.AccessToken == "" {
		if val := os.Getenv("GOOGLE_ACCESS_TOKEN"); val != "" {
			cfg.Google.AccessToken = val
		}
	}

	if cfg.Notify.Discord.WebhookURL == "" {
		if val := os.Getenv("DISCORD_WEBHOOK_URL"); val != "" {
			cfg.Notify.Discord.WebhookURL = val
		}
	}

	if cfg.Store.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Store.Postgres.User = val
		}
	}
	if cfg.Store.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Store.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "formsync"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}

	if cfg.Google.FormsBaseURL == "" {
		cfg.Google.FormsBaseURL = "https://forms.googleapis.com/v1"
	}
	if cfg.Google.SheetsBaseURL == "" {
		cfg.Google.SheetsBaseURL = "https://sheets.googleapis.com/v4"
	}
	if cfg.Google.Timeout == 0 {
		cfg.Google.Timeout = 30000
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendSQLite
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "formsync.db"
	}
	if cfg.Store.Postgres.MaxConnections == 0 {
		cfg.Store.Postgres.MaxConnections = 25
	}
	if cfg.Store.Postgres.MaxIdle == 0 {
		cfg.Store.Postgres.MaxIdle = 5
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = "disable"
	}
	if cfg.Store.Redis.MembershipTTL == 0 {
		cfg.Store.Redis.MembershipTTL = 300000
	}

	if cfg.Notify.Discord.EmbedColor == "" {
		cfg.Notify.Discord.EmbedColor = "#5865F2"
	}
	if cfg.Notify.Discord.Timeout == 0 {
		cfg.Notify.Discord.Timeout = 10000
	}

	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.DeliveryMode == "" {
			src.DeliveryMode = DeliveryModeNotify
		}
		if src.IntervalSeconds == 0 {
			src.IntervalSeconds = 3600
		}
		if src.Channel == "" {
			src.Channel = ChannelDiscord
		}
		if src.ExportFormat == "" {
			src.ExportFormat = FormatDelimitedText
		}
	}
}

// validateConfig validates critical configuration fields. A failure here
// aborts startup.
func validateConfig(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	if cfg.Store.Backend != StoreBackendSQLite && cfg.Store.Backend != StoreBackendPostgres {
		return fmt.Errorf("store.backend must be %q or %q", StoreBackendSQLite, StoreBackendPostgres)
	}
	if cfg.Store.Backend == StoreBackendPostgres {
		if cfg.Store.Postgres.Host == "" {
			return fmt.Errorf("store.postgres.host is required")
		}
		if cfg.Store.Postgres.Database == "" {
			return fmt.Errorf("store.postgres.database is required")
		}
		if cfg.Store.Postgres.User == "" {
			return fmt.Errorf("store.postgres.user is required")
		}
	}
	if cfg.Store.Redis.Enabled && cfg.Store.Redis.Address == "" {
		return fmt.Errorf("store.redis.address is required when redis is enabled")
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if err := validateSourceSchema(src); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate source id %q", i, src.ID)
		}
		seen[src.ID] = true

		if src.DeliveryMode == DeliveryModeNotify && src.Channel == ChannelDiscord && cfg.Notify.Discord.WebhookURL == "" {
			return fmt.Errorf("sources[%d]: notify.discord.webhook_url is required for discord delivery", i)
		}
		if src.DeliveryMode == DeliveryModeNotify && src.Channel == ChannelEmail && !cfg.Notify.Email.Enabled {
			return fmt.Errorf("sources[%d]: notify.email must be enabled for email delivery", i)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
