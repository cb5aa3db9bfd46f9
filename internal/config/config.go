package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is read from the environment, with .env as a fallback.
type Config struct {
	Environment string `mapstructure:"ENV"`
	Timezone    string `mapstructure:"TIMEZONE"`

	DBDSN      string `mapstructure:"DB_DSN"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	FromEmail    string `mapstructure:"FROM_EMAIL"`
	FromName     string `mapstructure:"FROM_NAME"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"` // comma separated
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	EventsPollInterval time.Duration `mapstructure:"EVENTS_POLL_INTERVAL"`

	NotifyPollInterval time.Duration `mapstructure:"NOTIFY_POLL_INTERVAL"`
	NotifyBatchSize    int           `mapstructure:"NOTIFY_BATCH_SIZE"`
	NotifyMaxAttempts  int           `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
	NotifyRetryDelay   time.Duration `mapstructure:"NOTIFY_RETRY_DELAY"`
}

var keys = []string{
	"ENV", "TIMEZONE",
	"DB_DSN", "DB_MAX_CONNS",
	"TELEGRAM_TOKEN",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASSWORD", "FROM_EMAIL", "FROM_NAME",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "EVENTS_POLL_INTERVAL",
	"NOTIFY_POLL_INTERVAL", "NOTIFY_BATCH_SIZE", "NOTIFY_MAX_ATTEMPTS", "NOTIFY_RETRY_DELAY",
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("FROM_NAME", "Office Hours")
	v.SetDefault("KAFKA_TOPIC", "appointment-events")
	v.SetDefault("EVENTS_POLL_INTERVAL", "1s")
	v.SetDefault("NOTIFY_POLL_INTERVAL", "5s")
	v.SetDefault("NOTIFY_BATCH_SIZE", 20)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFY_RETRY_DELAY", "30s")

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and that the timezone resolves.
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required but not set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.NotifyBatchSize <= 0 || c.NotifyMaxAttempts <= 0 || c.NotifyPollInterval <= 0 {
		return errors.New("NOTIFY_* settings must be positive")
	}
	return nil
}

// Location is the zone "today" is computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmailEnabled reports whether an SMTP relay is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// Brokers splits KAFKA_BROKERS; empty entries are dropped.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
