package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Ledger backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	DiscordBot DiscordBotConfig
	PostgreSQL PostgreSQLConfig
	Ledger     LedgerConfig
	Voice      VoiceConfig
	Payment    PaymentConfig
	Razorpay   RazorpayConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// DiscordBotConfig holds Discord bot configuration. The bot is disabled when Token is empty.
type DiscordBotConfig struct {
	Token string
}

// PostgreSQLConfig holds database configuration
type PostgreSQLConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	Schema       string
	PoolMaxConns int
}

// LedgerConfig selects and seeds the ledger/directory store
type LedgerConfig struct {
	Backend        string
	FilePath       string
	SQLitePath     string
	OpeningBalance int64
	SeedContacts   []ContactSeed
}

// ContactSeed is a contact inserted when the store is first created
type ContactSeed struct {
	Name   string
	Mobile string
	UPI    string
}

// VoiceConfig tunes recipient matching
type VoiceConfig struct {
	Scorer         string
	MatchThreshold float64
}

// PaymentConfig controls payment-request QR codes
type PaymentConfig struct {
	QRScheme string
	QRDir    string
	Currency string
}

// RazorpayConfig holds payment gateway credentials. Order creation is disabled without keys.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "5000")

	v.SetDefault("PostgreSQL.Host", "localhost")
	v.SetDefault("PostgreSQL.Port", 5432)
	v.SetDefault("PostgreSQL.User", "postgres")
	v.SetDefault("PostgreSQL.DBName", "voice-upi")
	v.SetDefault("PostgreSQL.Schema", "public")
	v.SetDefault("PostgreSQL.PoolMaxConns", 10)

	v.SetDefault("Ledger.Backend", BackendFile)
	v.SetDefault("Ledger.FilePath", "db.json")
	v.SetDefault("Ledger.SQLitePath", "voiceupi.db")
	v.SetDefault("Ledger.OpeningBalance", 5000)
	v.SetDefault("Ledger.SeedContacts", []map[string]string{
		{"name": "Ramesh", "mobile": "9999999999", "upi": "ramesh@upi"},
		{"name": "Sita", "mobile": "8888888888", "upi": "sita@upi"},
	})

	v.SetDefault("Voice.Scorer", "positional")
	v.SetDefault("Voice.MatchThreshold", 0.3)

	v.SetDefault("Payment.QRScheme", "upi")
	v.SetDefault("Payment.QRDir", "")
	v.SetDefault("Payment.Currency", "INR")

	v.SetDefault("Razorpay.BaseURL", "https://api.razorpay.com/v1")

	v.SetDefault("Log.Level", "info")
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error: defaults and VOICEUPI_* variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("VOICEUPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = "config.yaml"
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Ledger.Backend == BackendFile && cfg.Ledger.FilePath != "" {
		if abs, err := filepath.Abs(cfg.Ledger.FilePath); err == nil {
			cfg.Ledger.FilePath = abs
		}
	}
	if cfg.Ledger.Backend == BackendSQLite && cfg.Ledger.SQLitePath != ":memory:" {
		if abs, err := filepath.Abs(cfg.Ledger.SQLitePath); err == nil {
			cfg.Ledger.SQLitePath = abs
		}
	}

	return &cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory, BackendFile:
	case BackendSQLite:
		if c.Ledger.SQLitePath == "" {
			return fmt.Errorf("ledger sqlite path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.PostgreSQL.Host == "" || c.PostgreSQL.DBName == "" {
			return fmt.Errorf("database configuration is incomplete")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}

	if c.Ledger.Backend == BackendFile && c.Ledger.FilePath == "" {
		return fmt.Errorf("ledger file path is required for the file backend")
	}

	if c.Ledger.OpeningBalance < 0 {
		return fmt.Errorf("opening balance must not be negative")
	}

	if c.Voice.MatchThreshold < 0 || c.Voice.MatchThreshold >= 1 {
		return fmt.Errorf("match threshold must be in [0,1)")
	}

	switch c.Voice.Scorer {
	case "positional", "token":
	default:
		return fmt.Errorf("unknown scorer %q", c.Voice.Scorer)
	}

	switch c.Payment.QRScheme {
	case "upi", "promptpay":
	default:
		return fmt.Errorf("unknown QR scheme %q", c.Payment.QRScheme)
	}

	return nil
}

// isMissingFile reports whether viper failed because an explicit config file does not exist
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the file")
}

// Redacted returns a copy of c with credentials masked, for display
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.DiscordBot.Token = mask(c.DiscordBot.Token)
	c.PostgreSQL.Password = mask(c.PostgreSQL.Password)
	c.Razorpay.KeySecret = mask(c.Razorpay.KeySecret)
	c.Ledger.SeedContacts = append([]ContactSeed(nil), c.Ledger.SeedContacts...)
	return c
}
