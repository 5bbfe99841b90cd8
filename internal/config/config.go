package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Development bool
	// API configuration
	APIPort       int
	AdminAPIToken string
	// Storage configuration
	Storage          string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// Telegram configuration
	TelegramBotToken string
	// AdminIDs are the Telegram user IDs of operators receiving alerts
	AdminIDs []int64

	// SMTP configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string
	AdminEmails  []string

	// Timezone is used for daily jobs
	Timezone string

	// Job cadences
	ExpireSweepInterval time.Duration
	VerifySweepInterval time.Duration
	ReconcileInterval   time.Duration
	CleanupAt           string
	PrizeAlertInterval  time.Duration

	// Subscription verification
	VerifyBatchSize   int
	VerifyMinAge      time.Duration
	VerifySpacing     time.Duration
	MembershipTimeout time.Duration

	// Retention
	ViolationRetention            time.Duration
	InactiveSubscriptionRetention time.Duration
	HotOfferRetention             time.Duration

	HotOfferMultiplier decimal.Decimal
	NotifyWorkers      int
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		APIPort:          getEnvAsInt("API_PORT", 6533),
		AdminAPIToken:    getEnv("ADMIN_API_TOKEN", ""),
		Storage:          getEnv("STORAGE", StoragePostgres),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "rota"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminIDs:         getEnvAsInt64Slice("ADMIN_IDS", nil),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SMTPSender:       getEnv("SMTP_SENDER", ""),
		AdminEmails:      getEnvAsStringSlice("ADMIN_EMAILS", nil),
		Timezone:         getEnv("TIMEZONE", "UTC"),

		ExpireSweepInterval: getEnvAsDuration("EXPIRE_SWEEP_INTERVAL", time.Minute),
		VerifySweepInterval: getEnvAsDuration("VERIFY_SWEEP_INTERVAL", 5*time.Minute),
		ReconcileInterval:   getEnvAsDuration("RECONCILE_INTERVAL", 30*time.Minute),
		CleanupAt:           getEnv("CLEANUP_AT", "03:00"),
		PrizeAlertInterval:  getEnvAsDuration("PRIZE_ALERT_INTERVAL", time.Hour),

		VerifyBatchSize:   getEnvAsInt("VERIFY_BATCH_SIZE", 50),
		VerifyMinAge:      getEnvAsDuration("VERIFY_MIN_AGE", time.Hour),
		VerifySpacing:     getEnvAsDuration("VERIFY_SPACING", time.Second),
		MembershipTimeout: getEnvAsDuration("MEMBERSHIP_TIMEOUT", 10*time.Second),

		ViolationRetention:            getEnvAsDuration("VIOLATION_RETENTION", 30*24*time.Hour),
		InactiveSubscriptionRetention: getEnvAsDuration("INACTIVE_SUBSCRIPTION_RETENTION", 30*24*time.Hour),
		HotOfferRetention:             getEnvAsDuration("HOT_OFFER_RETENTION", 24*time.Hour),

		HotOfferMultiplier: getEnvAsDecimal("HOT_OFFER_MULTIPLIER", decimal.NewFromInt(2)),
		NotifyWorkers:      getEnvAsInt("NOTIFY_WORKERS", 4),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	switch c.Storage {
	case StoragePostgres:
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}

	if _, _, err := c.CleanupTime(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	for name, d := range map[string]time.Duration{
		"EXPIRE_SWEEP_INTERVAL": c.ExpireSweepInterval,
		"VERIFY_SWEEP_INTERVAL": c.VerifySweepInterval,
		"RECONCILE_INTERVAL":    c.ReconcileInterval,
		"PRIZE_ALERT_INTERVAL":  c.PrizeAlertInterval,
		"MEMBERSHIP_TIMEOUT":    c.MembershipTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.VerifyBatchSize <= 0 {
		return fmt.Errorf("VERIFY_BATCH_SIZE must be positive")
	}
	if c.VerifySpacing < 0 {
		return fmt.Errorf("VERIFY_SPACING must not be negative")
	}
	if c.HotOfferMultiplier.IsNegative() {
		return fmt.Errorf("HOT_OFFER_MULTIPLIER must not be negative")
	}
	if c.NotifyWorkers <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS must be positive")
	}

	return nil
}

// CleanupTime parses CleanupAt ("HH:MM") into hour and minute.
func (c *Config) CleanupTime() (int, int, error) {
	t, err := time.Parse("15:04", c.CleanupAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid CLEANUP_AT %q, expected HH:MM: %w", c.CleanupAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SMTPEnabled reports whether email alerts can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPSender != "" && len(c.AdminEmails) > 0
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDecimal(name string, defaultValue decimal.Decimal) decimal.Decimal {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := decimal.NewFromString(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(name string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseInt64List parses a comma separated list of IDs, skipping blanks.
func ParseInt64List(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func getEnvAsInt64Slice(name string, defaultValue []int64) []int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := ParseInt64List(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
